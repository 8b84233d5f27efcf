package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/internal/chains"
	"github.com/pendergraft/veriforge/pkg/client"
)

func createDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy <contract> [constructor-args...]",
		Short: "Deploy a registered contract",
		Long: `Deploy a registered contract through the server's wallet.

The server signs and broadcasts the deployment transaction on its configured
chain, waits for the receipt, and records the deployment. Constructor
arguments are passed as positional strings and encoded against the stored ABI.

EXAMPLES:
  # Deploy a contract with no constructor arguments
  veriforge deploy MyToken

  # Deploy with constructor arguments
  veriforge deploy MyToken "My Token" MTK 1000000

  # Address and uint arguments
  veriforge deploy Vault 0x8ba1f109551bD432803012645Ac136ddd64DBA72 500
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(args[0], args[1:])
		},
	}

	return cmd
}

func runDeploy(contract string, constructorArgs []string) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	fmt.Printf("🚀 Deploying %s...\n", contract)

	deployment, err := c.Deploy(ctx, client.DeployRequest{
		Contract:        contract,
		ConstructorArgs: constructorArgs,
	})
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	registry := chains.DefaultRegistry()

	fmt.Println()
	fmt.Printf("✅ Deployed %s\n", deployment.ContractName)
	fmt.Printf("   Chain:    %s\n", registry.Name(deployment.ChainID))
	fmt.Printf("   Address:  %s\n", deployment.Address)
	if deployment.TxHash != "" {
		fmt.Printf("   Tx Hash:  %s\n", deployment.TxHash)
	}
	if deployment.BlockNumber > 0 {
		fmt.Printf("   Block:    %d\n", deployment.BlockNumber)
	}

	if n, ok := registry.Get(deployment.ChainID); ok && n.ExplorerURL != "" {
		fmt.Printf("   Explorer: %s/address/%s\n", n.ExplorerURL, deployment.Address)
		fmt.Println()
		fmt.Printf("   Verify:   veriforge verify %s --address %s\n", deployment.ContractName, deployment.Address)
	}

	return nil
}
