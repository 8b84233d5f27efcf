package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/internal/chains"
)

func createNetworksCmd() *cobra.Command {
	var testnets bool

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List known networks",
		Long: `List the EVM networks the CLI knows about.

EXAMPLES:
  # List all known networks
  veriforge networks

  # Testnets only
  veriforge networks --testnets
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetworks(testnets)
		},
	}

	cmd.Flags().BoolVar(&testnets, "testnets", false, "show testnets only")

	return cmd
}

func runNetworks(testnetsOnly bool) error {
	networks := chains.DefaultRegistry().List()
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].ChainID < networks[j].ChainID
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN ID\tNAME\tNETWORK\tEXPLORER\tTESTNET")
	for _, n := range networks {
		if testnetsOnly && !n.Testnet {
			continue
		}
		explorer := n.ExplorerURL
		if explorer == "" {
			explorer = "-"
		}
		testnet := ""
		if n.Testnet {
			testnet = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ChainID, n.Name, n.DisplayName, explorer, testnet)
	}
	w.Flush()

	return nil
}
