package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/pkg/client"
)

func createExecCmd() *cobra.Command {
	var watch bool
	var statusID string

	cmd := &cobra.Command{
		Use:   "exec [calls.json]",
		Short: "Execute an atomic call batch",
		Long: `Submit a batch of contract calls for atomic execution.

The calls file lists function calls against deployed contracts. Each call
names a registered contract (for its ABI), the deployed address, the
function, and its arguments. The server encodes and submits the batch as
a single atomic unit: either every call lands or none do.

Calls file format:
  {
    "calls": [
      {"contract": "MyToken", "address": "0x1234...", "function": "approve", "args": ["0xabcd...", "1000"]},
      {"contract": "Vault", "address": "0xabcd...", "function": "depositFor", "args": ["0x5678...", "1000"]}
    ]
  }

EXAMPLES:
  # Submit a batch
  veriforge exec calls.json

  # Submit and wait for the batch to land
  veriforge exec calls.json --watch

  # Check a previously submitted batch
  veriforge exec --status 7f3c0a9e
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusID != "" {
				return runExecStatus(statusID)
			}
			if len(args) != 1 {
				return fmt.Errorf("calls file required (or use --status to check a batch)")
			}
			return runExec(args[0], watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "poll until the batch reaches a terminal state")
	cmd.Flags().StringVar(&statusID, "status", "", "check the status of a submitted batch by ID")

	return cmd
}

func runExec(callsPath string, watch bool) error {
	calls, err := parseCallsFile(callsPath)
	if err != nil {
		return err
	}

	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	fmt.Printf("📦 Submitting batch of %d call(s)...\n", len(calls))

	submission, err := c.ExecuteBatch(ctx, client.BatchRequest{Calls: calls})
	if err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	fmt.Printf("   Batch ID: %s\n", submission.BatchID)
	fmt.Printf("   Chain:    %d\n", submission.ChainID)
	fmt.Printf("   Calls:    %d\n", submission.Calls)

	if !watch {
		fmt.Println()
		fmt.Printf("   Check:    veriforge exec --status %s\n", submission.BatchID)
		return nil
	}

	fmt.Println()
	fmt.Println("Waiting for batch to land...")

	// Batches usually land within a couple of blocks; 2 minutes is
	// generous for anything that is going to succeed at all.
	deadline := time.Now().Add(2 * time.Minute)
	for {
		status, err := c.GetBatchStatus(ctx, submission.BatchID)
		if err != nil {
			return fmt.Errorf("failed to get batch status: %w", err)
		}
		if status.Status != "pending" {
			printBatchStatus(status)
			if status.Status != "success" {
				return fmt.Errorf("batch %s", status.Status)
			}
			return nil
		}
		if time.Now().After(deadline) {
			fmt.Printf("Batch still pending, check later: veriforge exec --status %s\n", submission.BatchID)
			return nil
		}
		time.Sleep(5 * time.Second)
	}
}

func runExecStatus(batchID string) error {
	c := client.New(getServer(), getAPIKey())

	status, err := c.GetBatchStatus(context.Background(), batchID)
	if err != nil {
		return fmt.Errorf("failed to get batch status: %w", err)
	}

	printBatchStatus(status)
	return nil
}

func printBatchStatus(status *client.BatchStatus) {
	switch status.Status {
	case "success":
		fmt.Printf("✅ Batch %s succeeded\n", status.BatchID)
	case "pending":
		fmt.Printf("⏳ Batch %s is still pending\n", status.BatchID)
	default:
		fmt.Printf("❌ Batch %s: %s\n", status.BatchID, status.Status)
	}

	if len(status.Receipts) == 0 {
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TX\tBLOCK\tGAS\tSUCCESS")
	for _, r := range status.Receipts {
		success := "yes"
		if !r.Success {
			success = "no"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", truncateAddress(r.TxHash), r.BlockNumber, r.GasUsed, success)
	}
	w.Flush()
}

// parseCallsFile reads a batch calls file. Accepts either a bare array of
// calls or an object with a "calls" key.
func parseCallsFile(path string) ([]client.BatchCall, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calls file: %w", err)
	}

	var wrapper struct {
		Calls []client.BatchCall `json:"calls"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil {
		if len(wrapper.Calls) == 0 {
			return nil, fmt.Errorf("no calls found in %s", path)
		}
		return wrapper.Calls, nil
	}

	var calls []client.BatchCall
	if err := json.Unmarshal(data, &calls); err != nil {
		return nil, fmt.Errorf("parsing calls file: %w", err)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("no calls found in %s", path)
	}

	return calls, nil
}
