// Package validation provides input validation for Veriforge.
package validation

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Contract name validation
// Simple names: alphanumeric with hyphens and underscores, 1-64 chars
var contractNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// ValidateContractName validates a contract record name
func ValidateContractName(name string) error {
	if name == "" {
		return errors.New("contract name cannot be empty")
	}
	if len(name) > 64 {
		return errors.New("contract name too long (max 64 chars)")
	}
	if !contractNameRegex.MatchString(name) {
		return errors.New("invalid contract name: must be alphanumeric with hyphens or underscores, starting with a letter")
	}
	// Prevent path traversal and consecutive hyphens
	if strings.Contains(name, "..") || strings.Contains(name, "--") {
		return errors.New("invalid characters in contract name")
	}
	return nil
}

// ValidateCompilerVersion validates a solc version string such as
// "0.8.28" or "v0.8.28+commit.7893614a".
func ValidateCompilerVersion(v string) error {
	normalized := strings.TrimPrefix(v, "v")
	if normalized == "" {
		return errors.New("compiler version cannot be empty")
	}

	// Strip the commit suffix before the semver check
	if idx := strings.Index(normalized, "+"); idx != -1 {
		normalized = normalized[:idx]
	}

	versionWithV := "v" + normalized
	if !semver.IsValid(versionWithV) {
		return errors.New("invalid compiler version: must be in format X.Y.Z")
	}

	parts := strings.SplitN(normalized, "-", 2)
	if strings.Count(parts[0], ".") < 2 {
		return errors.New("invalid compiler version: must be in format X.Y.Z (major.minor.patch)")
	}

	return nil
}

// NormalizeVersion normalizes a version string (strips leading 'v')
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// CompareVersions compares two versions
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	n1 := "v" + NormalizeVersion(v1)
	n2 := "v" + NormalizeVersion(v2)
	return semver.Compare(n1, n2)
}

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ValidateABI checks that a string looks like a JSON ABI document
func ValidateABI(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return errors.New("abi cannot be empty")
	}
	if !strings.HasPrefix(trimmed, "[") {
		return errors.New("abi must be a JSON array")
	}
	return nil
}

// ValidateBytecode checks that a string looks like hex creation bytecode
func ValidateBytecode(raw string) error {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return errors.New("bytecode cannot be empty")
	}
	if len(trimmed)%2 != 0 {
		return errors.New("bytecode must be an even number of hex characters")
	}
	for _, c := range trimmed {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("bytecode contains non-hex characters")
		}
	}
	return nil
}
