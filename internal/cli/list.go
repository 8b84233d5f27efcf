package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/pkg/client"
)

func createListCmd() *cobra.Command {
	var query string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered contracts",
		Long: `List contracts in the registry.

EXAMPLES:
  # List all contracts
  veriforge list

  # Search by name
  veriforge list -q token

  # Output as JSON
  veriforge list --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(query, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search by name substring")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of items to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runList(query string, limit int, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	resp, err := c.ListContracts(ctx, client.ListContractsOptions{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list contracts: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Data) == 0 {
		fmt.Println("No contracts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOMPILER\tOPTIMIZER\tCREATED")
	for _, c := range resp.Data {
		compiler := c.CompilerVersion
		if compiler == "" {
			compiler = "-"
		}
		optimizer := "off"
		if c.Optimization != nil && c.Optimization.Enabled {
			optimizer = fmt.Sprintf("%d runs", c.Optimization.Runs)
		}
		created := c.CreatedAt
		if created == "" {
			created = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, compiler, optimizer, created)
	}
	w.Flush()

	if resp.Pagination.HasMore {
		fmt.Printf("\n(showing %d contracts, more available)\n", len(resp.Data))
	}

	return nil
}
