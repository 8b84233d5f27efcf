package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/internal/artifact"
	"github.com/pendergraft/veriforge/pkg/client"
)

// Default exclude patterns
var defaultExcludePatterns = []string{
	"Test",   // *Test contracts
	"Script", // *Script contracts
	"Mock",   // Mock* contracts
	"Deploy", // Deploy* scripts
	"Setup",  // *Setup test helpers
}

func createUploadCmd() *cobra.Command {
	var name string
	var sourceFile string
	var dir string
	var contracts []string
	var exclude []string
	var excludePaths []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "upload [artifact.json ...]",
		Short: "Register contract artifacts",
		Long: `Register compiled contract artifacts with the Veriforge registry.

With explicit artifact paths, each file is uploaded as one contract. Without
arguments, artifacts are discovered from the Foundry out/ directory of the
current project (run 'forge build' first).

Attaching the Solidity source lets the server submit the contract for block
explorer verification later. During discovery the source file referenced by
the artifact is attached automatically when it exists.

EXAMPLES:
  # Upload a single artifact
  veriforge upload out/MyToken.sol/MyToken.json

  # Upload with source attached for explorer verification
  veriforge upload out/MyToken.sol/MyToken.json --source src/MyToken.sol

  # Upload under a different registry name
  veriforge upload out/MyToken.sol/MyToken.json --name my-token-v2

  # Discover and upload everything from the current Foundry project
  veriforge upload

  # Upload specific contracts only
  veriforge upload --contracts Token,Registry

  # Dry run (show what would be uploaded)
  veriforge upload --dry-run
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(args, name, sourceFile, dir, contracts, exclude, excludePaths, dryRun)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "registry name (single artifact only, default: contract name)")
	cmd.Flags().StringVar(&sourceFile, "source", "", "Solidity source file to attach (single artifact only)")
	cmd.Flags().StringVar(&dir, "dir", "", "Foundry project root (default: current directory)")
	cmd.Flags().StringSliceVar(&contracts, "contracts", nil, "specific contracts to upload (default: all from src/)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "patterns to exclude by contract name (e.g., Test,Mock) - replaces config defaults")
	cmd.Flags().StringSliceVar(&excludePaths, "exclude-path", nil, "patterns to exclude by source path (e.g., proxy)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be uploaded without uploading")

	return cmd
}

// contractToUpload is one artifact resolved and ready to register
type contractToUpload struct {
	name   string
	raw    json.RawMessage
	source string
}

func runUpload(args []string, nameFlag, sourceFile, dirFlag string, contracts, exclude, excludePaths []string, dryRun bool) error {
	if nameFlag != "" && len(args) != 1 {
		return fmt.Errorf("--name requires exactly one artifact path")
	}
	if sourceFile != "" && len(args) != 1 {
		return fmt.Errorf("--source requires exactly one artifact path")
	}

	// Load project config (optional)
	projectConfig := loadProjectConfigSilent()

	// Resolve project dir: CLI flag > config > current directory
	projectDir := dirFlag
	if projectDir == "" && projectConfig != nil && projectConfig.ArtifactsDir != "" {
		projectDir = projectConfig.ArtifactsDir
	}
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		projectDir = cwd
	}

	var toUpload []contractToUpload
	var skippedInterfaces []string
	var err error

	if len(args) > 0 {
		toUpload, skippedInterfaces, err = collectArtifactFiles(args, nameFlag, sourceFile)
	} else {
		toUpload, skippedInterfaces, err = discoverProjectArtifacts(projectDir, projectConfig, contracts, exclude, excludePaths)
	}
	if err != nil {
		return err
	}

	if len(toUpload) == 0 {
		return fmt.Errorf("no uploadable contracts found (all were interfaces or excluded)")
	}

	for _, c := range toUpload {
		if c.source != "" {
			fmt.Printf("  + %s (with source)\n", c.name)
		} else {
			fmt.Printf("  + %s\n", c.name)
		}
	}

	// Show skipped interfaces if any
	if len(skippedInterfaces) > 0 {
		fmt.Printf("  Skipped %d interface(s): %s\n", len(skippedInterfaces), strings.Join(skippedInterfaces, ", "))
	}

	serverURL := getServer()

	if dryRun {
		fmt.Printf("\nDRY RUN - Would upload %d contract(s) to %s\n", len(toUpload), serverURL)
		return nil
	}

	fmt.Printf("\nUploading %d contract(s) to %s...\n", len(toUpload), serverURL)

	c := client.New(serverURL, getAPIKey())
	ctx := context.Background()

	var successCount, failCount int
	for _, u := range toUpload {
		req := client.RegisterRequest{
			Name:     u.name,
			Artifact: u.raw,
			Source:   u.source,
		}
		if _, err := c.RegisterContract(ctx, req); err != nil {
			fmt.Printf("   X %s: %v\n", u.name, err)
			failCount++
		} else {
			fmt.Printf("   OK %s\n", u.name)
			successCount++
		}
	}

	fmt.Println()
	if failCount > 0 {
		return fmt.Errorf("uploaded %d contract(s), %d failed", successCount, failCount)
	}

	fmt.Printf("Successfully uploaded %d contract(s)\n", successCount)
	if len(toUpload) > 0 {
		fmt.Printf("\n   Example: veriforge deploy %s\n", toUpload[0].name)
	}

	return nil
}

// collectArtifactFiles loads explicitly named artifact files
func collectArtifactFiles(paths []string, nameFlag, sourceFile string) ([]contractToUpload, []string, error) {
	var toUpload []contractToUpload
	var skipped []string

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading artifact: %w", err)
		}

		art, err := artifact.Parse(raw)
		if err != nil {
			if strings.Contains(err.Error(), "no bytecode") {
				skipped = append(skipped, strings.TrimSuffix(filepath.Base(path), ".json"))
				continue
			}
			return nil, nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}

		name := art.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		if nameFlag != "" {
			name = nameFlag
		}

		source := ""
		if sourceFile != "" {
			data, err := os.ReadFile(sourceFile)
			if err != nil {
				return nil, nil, fmt.Errorf("reading source file: %w", err)
			}
			source = string(data)
		}

		toUpload = append(toUpload, contractToUpload{
			name:   name,
			raw:    raw,
			source: source,
		})
	}

	return toUpload, skipped, nil
}

// discoverProjectArtifacts walks a Foundry out/ directory and resolves
// contracts the same way an explicit upload would
func discoverProjectArtifacts(projectDir string, projectConfig *ProjectConfig, contracts, exclude, excludePaths []string) ([]contractToUpload, []string, error) {
	// Resolve contracts: CLI flag > config > default (all from src/)
	if len(contracts) == 0 && projectConfig != nil {
		contracts = projectConfig.Contracts
	}

	// Resolve exclude: CLI flag > config > hardcoded defaults
	excludePatterns := defaultExcludePatterns
	if len(exclude) > 0 {
		excludePatterns = exclude
	} else if projectConfig != nil && len(projectConfig.Exclude) > 0 {
		excludePatterns = projectConfig.Exclude
	}

	excludePathPatterns := excludePaths
	if len(excludePathPatterns) == 0 && projectConfig != nil {
		excludePathPatterns = projectConfig.ExcludePaths
	}

	paths, err := artifact.Discover(projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering artifacts: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no contract artifacts found\n\nMake sure you've run 'forge build' and have contracts in your src/ directory")
	}

	fmt.Printf("Found %d contract artifact(s) in %s\n", len(paths), filepath.Join(projectDir, "out"))

	var toUpload []contractToUpload
	var skipped []string

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Warning: skipping %s: %v\n", filepath.Base(path), err)
			continue
		}

		art, err := artifact.Parse(raw)
		if err != nil {
			if strings.Contains(err.Error(), "no bytecode") {
				skipped = append(skipped, strings.TrimSuffix(filepath.Base(path), ".json"))
			} else {
				fmt.Printf("Warning: skipping %s: %v\n", filepath.Base(path), err)
			}
			continue
		}

		name := art.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), ".json")
		}

		if !matchesContractFilter(name, contracts) {
			continue
		}
		if shouldExclude(name, excludePatterns) {
			continue
		}
		if art.SourcePath != "" && shouldExclude(art.SourcePath, excludePathPatterns) {
			continue
		}

		toUpload = append(toUpload, contractToUpload{
			name:   name,
			raw:    raw,
			source: readProjectSource(projectDir, art.SourcePath),
		})
	}

	return toUpload, skipped, nil
}

// matchesContractFilter reports whether a contract is in the requested set.
// An empty set matches everything.
func matchesContractFilter(name string, contracts []string) bool {
	if len(contracts) == 0 {
		return true
	}
	for _, c := range contracts {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}

// shouldExclude reports whether any pattern appears in the value
func shouldExclude(value string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(value, p) {
			return true
		}
	}
	return false
}

// readProjectSource reads the Solidity source an artifact was compiled from.
// Returns "" when the file is missing so uploads still work without source.
func readProjectSource(projectDir, sourcePath string) string {
	if sourcePath == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(projectDir, sourcePath))
	if err != nil {
		return ""
	}
	return string(data)
}
