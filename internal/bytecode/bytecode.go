// Package bytecode compares deployed EVM bytecode against compiled artifacts.
package bytecode

import (
	"bytes"
	"encoding/hex"
	"regexp"
	"strings"
)

// CBOR metadata marker (Solidity >=0.6.0) - "ipfs" in CBOR
var metadataMarker = []byte{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73}

// Library placeholder pattern: __$<34 hex chars>$__
var libraryPlaceholder = regexp.MustCompile(`__\$[a-f0-9]{34}\$__`)

// Result describes how closely on-chain code matched the artifact.
type Result struct {
	Match     bool
	MatchType string // "full", "partial", "none"
	Message   string
}

// StripMetadata removes the CBOR metadata appended to bytecode
func StripMetadata(bytecode []byte) []byte {
	// Find last occurrence of metadata marker
	idx := bytes.LastIndex(bytecode, metadataMarker)
	if idx == -1 {
		return bytecode // No metadata found
	}
	// Back up to find the length prefix (2 bytes before marker)
	if idx >= 2 {
		return bytecode[:idx-2]
	}
	return bytecode
}

// Compare compares on-chain bytecode to artifact bytecode
func Compare(deployed, artifact []byte, libraries map[string]string) *Result {
	// Handle hex-encoded bytecode
	if len(artifact) > 2 && artifact[0] == '0' && artifact[1] == 'x' {
		decoded, err := hex.DecodeString(string(artifact[2:]))
		if err == nil {
			artifact = decoded
		}
	}

	// Substitute library placeholders if present
	if len(libraries) > 0 {
		artifact = substituteLibraries(artifact, libraries)
	}

	// Try exact match first
	if bytes.Equal(deployed, artifact) {
		return &Result{
			Match:     true,
			MatchType: "full",
			Message:   "Bytecode matches exactly including metadata",
		}
	}

	// Strip metadata and compare
	deployedStripped := StripMetadata(deployed)
	artifactStripped := StripMetadata(artifact)

	if bytes.Equal(deployedStripped, artifactStripped) {
		return &Result{
			Match:     true,
			MatchType: "partial",
			Message:   "Executable code matches, metadata differs (different source paths, comments, or build environment)",
		}
	}

	// No match
	return &Result{
		Match:     false,
		MatchType: "none",
		Message:   "Bytecode does not match",
	}
}

// MatchDeployed reports how the runtime code found at an address relates to
// the creation bytecode it was deployed from. Creation code embeds the runtime
// section verbatim, so containment is the check: a full match means the
// on-chain code appears inside the artifact unchanged, a partial match means
// it appears once trailing metadata is stripped from both sides.
func MatchDeployed(onchain, creation []byte) *Result {
	if len(creation) > 2 && creation[0] == '0' && creation[1] == 'x' {
		decoded, err := hex.DecodeString(string(creation[2:]))
		if err == nil {
			creation = decoded
		}
	}

	if len(onchain) == 0 {
		return &Result{
			Match:     false,
			MatchType: "none",
			Message:   "No code at address",
		}
	}

	if bytes.Contains(creation, onchain) {
		return &Result{
			Match:     true,
			MatchType: "full",
			Message:   "Runtime code matches the artifact exactly including metadata",
		}
	}

	if bytes.Contains(StripMetadata(creation), StripMetadata(onchain)) {
		return &Result{
			Match:     true,
			MatchType: "partial",
			Message:   "Executable code matches, metadata differs (different source paths, comments, or build environment)",
		}
	}

	return &Result{
		Match:     false,
		MatchType: "none",
		Message:   "Runtime code does not match the artifact",
	}
}

// substituteLibraries replaces library placeholders with actual addresses
func substituteLibraries(bytecode []byte, libraries map[string]string) []byte {
	bytecodeHex := hex.EncodeToString(bytecode)

	for _, addr := range libraries {
		addr = strings.TrimPrefix(addr, "0x")
		addr = strings.ToLower(addr)

		if libraryPlaceholder.MatchString(bytecodeHex) {
			bytecodeHex = libraryPlaceholder.ReplaceAllStringFunc(bytecodeHex, func(match string) string {
				return addr
			})
		}
	}

	result, _ := hex.DecodeString(bytecodeHex)
	return result
}

// HasLibraryPlaceholders checks if bytecode contains library placeholders
func HasLibraryPlaceholders(bytecode []byte) bool {
	return libraryPlaceholder.Match(bytecode) ||
		libraryPlaceholder.MatchString(string(bytecode))
}
