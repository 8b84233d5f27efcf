package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/internal/chains"
	"github.com/pendergraft/veriforge/pkg/client"
)

func createDeploymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Deployment commands",
	}

	cmd.AddCommand(createDeploymentListCmd())
	cmd.AddCommand(createDeploymentInfoCmd())
	cmd.AddCommand(createDeploymentRecordCmd())

	return cmd
}

func createDeploymentListCmd() *cobra.Command {
	var chainID int64
	var contractFilter string
	var verified *bool
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		Long: `List recorded deployments.

EXAMPLES:
  # List all deployments
  veriforge deployments list

  # Filter by chain
  veriforge deployments list --chain-id 11155111

  # Filter by contract
  veriforge deployments list --contract MyToken

  # Show only verified deployments
  veriforge deployments list --verified
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploymentList(chainID, contractFilter, verified, limit, jsonOutput)
		},
	}

	cmd.Flags().Int64Var(&chainID, "chain-id", 0, "filter by chain ID")
	cmd.Flags().StringVar(&contractFilter, "contract", "", "filter by contract name or ID")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of items to show")

	// Handle --verified flag
	var verifiedFlag bool
	cmd.Flags().BoolVar(&verifiedFlag, "verified", false, "show only verified deployments")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("verified") {
			verified = &verifiedFlag
		}
		return nil
	}

	return cmd
}

func createDeploymentInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <chain-id> <address>",
		Short: "Show deployment details",
		Long: `Display detailed information about a deployment.

EXAMPLES:
  veriforge deployments info 1 0x1234...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploymentInfo(args[0], args[1], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createDeploymentRecordCmd() *cobra.Command {
	var contract string
	var chainID int64
	var address string
	var txHash string
	var deployerAddress string
	var blockNumber int64
	var fromBroadcast string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an external deployment",
		Long: `Record a deployment made outside the server's wallet.

The server checks the on-chain runtime bytecode against the stored artifact
and stores the match outcome alongside the record.

EXAMPLES:
  # Record a deployment
  veriforge deployments record \
    --contract MyToken \
    --chain-id 1 \
    --address 0x1234... \
    --tx-hash 0xabcd...

  # Record from Foundry broadcast file
  veriforge deployments record \
    --from-broadcast broadcast/Deploy.s.sol/1/run-latest.json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromBroadcast != "" {
				return runDeploymentRecordFromBroadcast(fromBroadcast)
			}
			return runDeploymentRecord(contract, chainID, address, txHash, deployerAddress, blockNumber)
		},
	}

	cmd.Flags().StringVar(&contract, "contract", "", "registered contract name or ID")
	cmd.Flags().Int64Var(&chainID, "chain-id", 0, "chain ID")
	cmd.Flags().StringVar(&address, "address", "", "contract address")
	cmd.Flags().StringVar(&txHash, "tx-hash", "", "transaction hash")
	cmd.Flags().StringVar(&deployerAddress, "deployer", "", "deployer address")
	cmd.Flags().Int64Var(&blockNumber, "block", 0, "block number")
	cmd.Flags().StringVar(&fromBroadcast, "from-broadcast", "", "parse from Foundry broadcast file")

	return cmd
}

func runDeploymentRecord(contract string, chainID int64, address, txHash, deployerAddress string, blockNumber int64) error {
	if contract == "" {
		return fmt.Errorf("--contract is required")
	}
	if chainID == 0 {
		return fmt.Errorf("--chain-id is required")
	}
	if address == "" {
		return fmt.Errorf("--address is required")
	}

	c := client.New(getServer(), getAPIKey())

	deployment, err := c.RecordDeployment(context.Background(), client.RecordRequest{
		Contract:        contract,
		ChainID:         chainID,
		Address:         address,
		TxHash:          txHash,
		DeployerAddress: deployerAddress,
		BlockNumber:     blockNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to record deployment: %w", err)
	}

	fmt.Printf("✅ Deployment recorded\n")
	fmt.Printf("   Contract: %s\n", deployment.ContractName)
	fmt.Printf("   Chain:    %d\n", deployment.ChainID)
	fmt.Printf("   Address:  %s\n", deployment.Address)
	if deployment.BytecodeMatch != "" {
		fmt.Printf("   Bytecode: %s match\n", deployment.BytecodeMatch)
	}

	return nil
}

// broadcastFile is the subset of a Foundry broadcast run file we read
type broadcastFile struct {
	Transactions []struct {
		ContractName    string `json:"contractName"`
		ContractAddress string `json:"contractAddress"`
		Hash            string `json:"hash"`
	} `json:"transactions"`
	Chain int64 `json:"chain"`
}

func runDeploymentRecordFromBroadcast(broadcastPath string) error {
	broadcast, err := parseBroadcastFile(broadcastPath)
	if err != nil {
		return err
	}

	c := client.New(getServer(), getAPIKey())

	fmt.Printf("📝 Recording %d deployment(s) from broadcast...\n", len(broadcast.Transactions))

	for _, tx := range broadcast.Transactions {
		if tx.ContractAddress == "" {
			continue // Skip non-deployment transactions
		}

		req := client.RecordRequest{
			Contract: tx.ContractName,
			ChainID:  broadcast.Chain,
			Address:  tx.ContractAddress,
			TxHash:   tx.Hash,
		}

		if _, err := c.RecordDeployment(context.Background(), req); err != nil {
			fmt.Printf("  ⚠️  %s: %v\n", tx.ContractName, err)
			continue
		}

		fmt.Printf("  ✓ %s at %s\n", tx.ContractName, tx.ContractAddress)
	}

	return nil
}

func parseBroadcastFile(path string) (*broadcastFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read broadcast file: %w", err)
	}

	var broadcast broadcastFile
	if err := json.Unmarshal(data, &broadcast); err != nil {
		return nil, fmt.Errorf("failed to parse broadcast file: %w", err)
	}

	if len(broadcast.Transactions) == 0 {
		return nil, fmt.Errorf("no transactions found in broadcast file")
	}

	return &broadcast, nil
}

func runDeploymentList(chainID int64, contractFilter string, verified *bool, limit int, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	resp, err := c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
		Contract: contractFilter,
		ChainID:  chainID,
		Verified: verified,
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list deployments: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Data) == 0 {
		fmt.Println("No deployments found")
		return nil
	}

	registry := chains.DefaultRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tADDRESS\tCONTRACT\tVERIFIED")
	for _, d := range resp.Data {
		verifiedStr := "no"
		if d.Verified {
			verifiedStr = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", registry.Name(d.ChainID), truncateAddress(d.Address), d.ContractName, verifiedStr)
	}
	w.Flush()

	if resp.Pagination.HasMore {
		fmt.Printf("\n(showing %d deployments, more available)\n", len(resp.Data))
	}

	return nil
}

func runDeploymentInfo(chainIDArg, address string, jsonOutput bool) error {
	chainID, err := strconv.ParseInt(chainIDArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chain ID %q", chainIDArg)
	}

	c := client.New(getServer(), getAPIKey())

	deployment, err := c.GetDeploymentByAddress(context.Background(), chainID, address)
	if err != nil {
		return fmt.Errorf("failed to get deployment: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deployment)
	}

	fmt.Printf("Deployment: %s\n", deployment.Address)
	fmt.Printf("Chain:      %s\n", chains.DefaultRegistry().Name(deployment.ChainID))
	fmt.Printf("Contract:   %s\n", deployment.ContractName)
	if deployment.TxHash != "" {
		fmt.Printf("Tx Hash:    %s\n", deployment.TxHash)
	}
	if deployment.DeployerAddress != "" {
		fmt.Printf("Deployer:   %s\n", deployment.DeployerAddress)
	}
	if deployment.BlockNumber > 0 {
		fmt.Printf("Block:      %d\n", deployment.BlockNumber)
	}
	if deployment.BytecodeMatch != "" {
		fmt.Printf("Bytecode:   %s match\n", deployment.BytecodeMatch)
	}
	fmt.Printf("Verified:   %v\n", deployment.Verified)
	if deployment.CreatedAt != "" {
		fmt.Printf("Recorded:   %s\n", deployment.CreatedAt)
	}

	return nil
}

func truncateAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
