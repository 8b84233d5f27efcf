package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/veriforge/pkg/client"
)

func createStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <guid>",
		Short: "Check a pending verification",
		Long: `Check the status of a verification submission by its GUID.

EXAMPLES:
  veriforge status dxahxgctmwrrij5tcbcfmbjmbwqfhtinbhkbtqn9eqpyp4a4kv
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0])
		},
	}

	return cmd
}

func runStatus(guid string) error {
	c := client.New(getServer(), getAPIKey())

	status, err := c.GetVerifyStatus(context.Background(), guid)
	if err != nil {
		return fmt.Errorf("failed to get verification status: %w", err)
	}

	printVerifyStatus(status.Status, status.Detail)
	return nil
}
