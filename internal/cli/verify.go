package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/pkg/client"
)

func createVerifyCmd() *cobra.Command {
	var address string
	var constructorArgs string
	var wait bool

	cmd := &cobra.Command{
		Use:   "verify <contract>",
		Short: "Submit a contract for block explorer verification",
		Long: `Submit a deployed contract's source for block explorer verification.

The server forwards the stored source and compiler settings to the
explorer's verification API and returns a GUID for tracking. The contract
must have been uploaded with its source attached.

EXAMPLES:
  # Submit for verification
  veriforge verify MyToken --address 0x1234...

  # Submit and wait for the explorer's verdict
  veriforge verify MyToken --address 0x1234... --wait

  # With ABI-encoded constructor arguments
  veriforge verify MyToken --address 0x1234... --constructor-args 0000..0064
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifySubmit(args[0], address, constructorArgs, wait)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "deployed contract address (required)")
	cmd.Flags().StringVar(&constructorArgs, "constructor-args", "", "ABI-encoded constructor arguments (hex, no 0x prefix)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the explorer reaches a verdict")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func runVerifySubmit(contract, address, constructorArgs string, wait bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	fmt.Printf("🔍 Submitting %s at %s for verification...\n", contract, truncateAddress(address))

	result, err := c.Verify(ctx, client.VerifyRequest{
		Contract:        contract,
		Address:         address,
		ConstructorArgs: constructorArgs,
	})
	if err != nil {
		return fmt.Errorf("verification submission failed: %w", err)
	}

	// The explorer can answer immediately for contracts it already knows
	if result.Status != "pending" {
		printVerifyStatus(result.Status, result.Detail)
		if !verifySucceeded(result.Status) {
			return fmt.Errorf("verification %s", result.Status)
		}
		return nil
	}

	fmt.Printf("   GUID: %s\n", result.GUID)

	if !wait {
		fmt.Println()
		fmt.Printf("   Check: veriforge status %s\n", result.GUID)
		return nil
	}

	fmt.Println()
	fmt.Println("Waiting for explorer verdict...")

	// Explorers typically settle within a few minutes
	deadline := time.Now().Add(5 * time.Minute)
	for {
		status, err := c.GetVerifyStatus(ctx, result.GUID)
		if err != nil {
			return fmt.Errorf("failed to get verification status: %w", err)
		}
		if status.Status != "pending" {
			printVerifyStatus(status.Status, status.Detail)
			if !verifySucceeded(status.Status) {
				return fmt.Errorf("verification %s", status.Status)
			}
			return nil
		}
		if time.Now().After(deadline) {
			fmt.Printf("Still pending, check later: veriforge status %s\n", result.GUID)
			return nil
		}
		time.Sleep(10 * time.Second)
	}
}

func verifySucceeded(status string) bool {
	return status == "verified" || status == "already_verified"
}

func printVerifyStatus(status, detail string) {
	switch status {
	case "verified":
		fmt.Println("✅ VERIFIED")
		fmt.Println("   The explorer accepted the source and matched the deployed bytecode")
	case "already_verified":
		fmt.Println("✅ ALREADY VERIFIED")
		fmt.Println("   The explorer had previously verified this contract")
	case "pending":
		fmt.Println("⏳ PENDING")
		fmt.Println("   The explorer is still processing the submission")
	case "failed":
		fmt.Println("❌ VERIFICATION FAILED")
		if detail != "" {
			fmt.Printf("   Reason: %s\n", detail)
		}
	case "timeout":
		fmt.Println("⚠️  TIMED OUT")
		fmt.Println("   The explorer did not reach a verdict in time")
	default:
		fmt.Printf("Status: %s\n", status)
		if detail != "" {
			fmt.Printf("   %s\n", detail)
		}
	}
}
