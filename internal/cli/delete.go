package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/pkg/client"
)

func createDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <contract> [<contract>...]",
		Short: "Delete contracts from the registry",
		Long: `Delete registered contracts and their deployment records.

Contracts can be addressed by name or record ID.

EXAMPLES:
  # Delete a contract
  veriforge delete MyToken

  # Delete several at once
  veriforge delete MyToken Registry Factory
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args)
		},
	}

	return cmd
}

func runDelete(names []string) error {
	serverURL := getServer()

	apiKey := getAPIKey()
	if apiKey == "" {
		return fmt.Errorf("API key required for delete (use --api-key, VERIFORGE_API_KEY, or veriforge auth login)")
	}

	c := client.New(serverURL, apiKey)
	ctx := context.Background()

	fmt.Printf("Deleting %d contract(s) from %s...\n", len(names), serverURL)

	var successCount, failCount int
	for _, name := range names {
		if err := c.DeleteContract(ctx, name); err != nil {
			fmt.Printf("   X %s: %v\n", name, err)
			failCount++
		} else {
			fmt.Printf("   OK %s\n", name)
			successCount++
		}
	}

	fmt.Println()
	if failCount > 0 {
		return fmt.Errorf("deleted %d contract(s), %d failed", successCount, failCount)
	}

	fmt.Printf("Successfully deleted %d contract(s)\n", successCount)
	return nil
}
