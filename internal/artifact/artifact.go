// Package artifact loads compiled contract artifacts produced by Foundry or
// Hardhat and normalizes them for registration.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is a normalized compiled contract.
type Artifact struct {
	Name            string
	ABI             json.RawMessage
	Bytecode        string
	SourcePath      string
	CompilerVersion string
	EVMVersion      string
	Optimizer       OptimizerConfig
	ViaIR           bool
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// rawArtifact covers both Foundry and Hardhat artifact layouts. Foundry nests
// bytecode under an object key, Hardhat stores it as a bare hex string.
type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     bytecodeField   `json:"bytecode"`
	RawMetadata  string          `json:"rawMetadata"`
}

type bytecodeField struct {
	Object string
}

func (b *bytecodeField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.Object = s
		return nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Object = obj.Object
	return nil
}

// metadata is the parsed rawMetadata field of a Foundry artifact
type metadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Settings struct {
		CompilationTarget map[string]string `json:"compilationTarget"`
		EVMVersion        string            `json:"evmVersion"`
		Optimizer         OptimizerConfig   `json:"optimizer"`
		ViaIR             bool              `json:"viaIR"`
	} `json:"settings"`
}

// Load parses an artifact file and normalizes it
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	art, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if art.Name == "" {
		art.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return art, nil
}

// Parse normalizes raw artifact JSON. The name is left empty when the
// artifact does not carry one.
func Parse(data []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	// Skip if no bytecode (interfaces, libraries without code)
	if raw.Bytecode.Object == "" || raw.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact has no abi")
	}

	art := &Artifact{
		Name:     raw.ContractName,
		ABI:      raw.ABI,
		Bytecode: raw.Bytecode.Object,
	}

	// Foundry embeds compiler details in rawMetadata; Hardhat artifacts
	// simply don't carry them.
	if raw.RawMetadata != "" {
		var meta metadata
		if err := json.Unmarshal([]byte(raw.RawMetadata), &meta); err == nil {
			art.SourcePath = firstKey(meta.Settings.CompilationTarget)
			art.CompilerVersion = meta.Compiler.Version
			art.EVMVersion = meta.Settings.EVMVersion
			art.Optimizer = meta.Settings.Optimizer
			art.ViaIR = meta.Settings.ViaIR
		}
	}

	return art, nil
}

// Discover finds contract artifacts under a Foundry out/ directory. Artifacts
// compiled from lib/ sources are skipped, matching what a register run wants.
func Discover(dir string) ([]string, error) {
	outDir := filepath.Join(dir, "out")

	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("out directory not found - run 'forge build' first")
	}

	var paths []string
	seen := make(map[string]bool)

	err := filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}
		if strings.Contains(path, "build-info") {
			return nil
		}

		// Artifacts live at out/{Source}.sol/{Contract}.json
		if !strings.HasSuffix(filepath.Dir(path), ".sol") {
			return nil
		}

		name := strings.TrimSuffix(info.Name(), ".json")
		if seen[name] {
			return nil
		}

		art, err := Load(path)
		if err != nil {
			return nil // Skip interfaces and unreadable artifacts
		}
		if art.SourcePath != "" && !strings.HasPrefix(art.SourcePath, "src/") {
			return nil
		}

		seen[name] = true
		paths = append(paths, path)
		return nil
	})

	return paths, err
}

// firstKey returns the first key from a map
func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
