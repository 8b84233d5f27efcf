package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/pkg/client"
)

func createInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <contract>",
		Short: "Show contract details",
		Long: `Display detailed information about a registered contract.

Contracts can be addressed by name or record ID.

EXAMPLES:
  # Show contract info
  veriforge info MyToken

  # Output as JSON (includes the full ABI)
  veriforge info MyToken --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runInfo(idOrName string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	contract, err := c.GetContract(ctx, idOrName)
	if err != nil {
		return fmt.Errorf("failed to get contract: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(contract)
	}

	fmt.Printf("Contract: %s\n", contract.Name)
	fmt.Printf("ID:       %s\n", contract.ID)
	if contract.CompilerVersion != "" {
		fmt.Printf("Compiler: %s\n", contract.CompilerVersion)
	}
	if contract.EVMVersion != "" {
		fmt.Printf("EVM:      %s\n", contract.EVMVersion)
	}
	if contract.Optimization != nil {
		if contract.Optimization.Enabled {
			fmt.Printf("Optimizer: enabled (%d runs)\n", contract.Optimization.Runs)
		} else {
			fmt.Println("Optimizer: disabled")
		}
	}
	if contract.Source != "" {
		fmt.Println("Source:   attached")
	} else {
		fmt.Println("Source:   (not attached - explorer verification unavailable)")
	}
	if contract.CreatedAt != "" {
		fmt.Printf("Created:  %s\n", contract.CreatedAt)
	}

	if functions, events := summarizeABI(contract.ABI); functions > 0 || events > 0 {
		fmt.Println()
		fmt.Printf("ABI: %d function(s), %d event(s)\n", functions, events)
	}

	fmt.Println()
	fmt.Printf("Deploy: veriforge deploy %s\n", contract.Name)

	return nil
}

// summarizeABI counts functions and events in an ABI document
func summarizeABI(raw json.RawMessage) (functions, events int) {
	var entries []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, 0
	}
	for _, e := range entries {
		switch e.Type {
		case "function":
			functions++
		case "event":
			events++
		}
	}
	return functions, events
}
