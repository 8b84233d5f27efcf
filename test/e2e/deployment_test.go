//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/veriforge/pkg/client"
)

// TestDeployment_Record tests recording an externally made deployment
func TestDeployment_Record(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-record")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "rec-counter")

	t.Run("record deployment", func(t *testing.T) {
		d, err := c.RecordDeployment(context.Background(), client.RecordRequest{
			Contract:        "rec-counter",
			ChainID:         31337,
			Address:         "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			TxHash:          "0xabcd1234",
			DeployerAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			BlockNumber:     12345,
			ConstructorArgs: "0000000000000000000000000000000000000000000000000000000000000007",
		})
		require.NoError(t, err, "Failed to record deployment")
		assert.NotEmpty(t, d.ID)
		assert.Equal(t, "rec-counter", d.ContractName)
		assert.False(t, d.Verified)
		// No chain connection, so nothing compared the bytecode
		assert.Empty(t, d.BytecodeMatch)
	})

	t.Run("get deployment by address", func(t *testing.T) {
		d, err := c.GetDeploymentByAddress(context.Background(), 31337, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
		require.NoError(t, err)
		assert.NotEmpty(t, d.ContractID, "ContractID should be set")
		assert.Equal(t, "rec-counter", d.ContractName)
		assert.Equal(t, int64(31337), d.ChainID)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", d.Address)
		assert.Equal(t, int64(12345), d.BlockNumber)
		assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", d.DeployerAddress)
	})

	t.Run("address lookup is case-insensitive", func(t *testing.T) {
		d, err := c.GetDeploymentByAddress(context.Background(), 31337, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
		require.NoError(t, err)
		assert.Equal(t, "rec-counter", d.ContractName)
	})

	t.Run("get deployment by record id", func(t *testing.T) {
		byAddr, err := c.GetDeploymentByAddress(context.Background(), 31337, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
		require.NoError(t, err)

		byID, err := c.GetDeployment(context.Background(), byAddr.ID)
		require.NoError(t, err)
		assert.Equal(t, byAddr.Address, byID.Address)
	})
}

// TestDeployment_RecordValidation tests malformed record requests
func TestDeployment_RecordValidation(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-record-validation")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "recval-counter")

	t.Run("unknown contract rejected", func(t *testing.T) {
		_, err := c.RecordDeployment(context.Background(), client.RecordRequest{
			Contract: "never-registered",
			ChainID:  31337,
			Address:  "0x0000000000000000000000000000000000000011",
		})
		assertHTTPError(t, err, "NOT_FOUND")
	})

	t.Run("malformed address rejected", func(t *testing.T) {
		_, err := c.RecordDeployment(context.Background(), client.RecordRequest{
			Contract: "recval-counter",
			ChainID:  31337,
			Address:  "0xnothex",
		})
		assertHTTPError(t, err, "INVALID_REQUEST")
	})

	t.Run("zero chain id rejected", func(t *testing.T) {
		_, err := c.RecordDeployment(context.Background(), client.RecordRequest{
			Contract: "recval-counter",
			ChainID:  0,
			Address:  "0x0000000000000000000000000000000000000011",
		})
		assertHTTPError(t, err, "INVALID_REQUEST")
	})
}

// TestDeployment_ListFilters tests deployment listing with filters
func TestDeployment_ListFilters(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-list-filters")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "lst-counter")
	registerCounter(t, c, "lst-other")

	records := []client.RecordRequest{
		{Contract: "lst-counter", ChainID: 31337, Address: "0x0000000000000000000000000000000000000101", BlockNumber: 100},
		{Contract: "lst-counter", ChainID: 11155111, Address: "0x0000000000000000000000000000000000000102", BlockNumber: 200},
		{Contract: "lst-other", ChainID: 31337, Address: "0x0000000000000000000000000000000000000103", BlockNumber: 300},
	}
	for _, rec := range records {
		_, err := c.RecordDeployment(context.Background(), rec)
		require.NoError(t, err)
	}

	// The database is shared across the suite, so assertions scope themselves
	// with the contract filter.
	t.Run("filter by contract", func(t *testing.T) {
		resp, err := c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
			Contract: "lst-counter",
		})
		require.NoError(t, err)
		require.Len(t, resp.Data, 2)
		for _, d := range resp.Data {
			assert.Equal(t, "lst-counter", d.ContractName)
		}
	})

	t.Run("filter by contract and chain", func(t *testing.T) {
		resp, err := c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
			Contract: "lst-counter",
			ChainID:  11155111,
		})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "0x0000000000000000000000000000000000000102", resp.Data[0].Address)
	})

	t.Run("filter by verified", func(t *testing.T) {
		verified := true
		resp, err := c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
			Contract: "lst-counter",
			Verified: &verified,
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Data, "nothing is verified yet")

		unverified := false
		resp, err = c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
			Contract: "lst-counter",
			Verified: &unverified,
		})
		require.NoError(t, err)
		assert.Len(t, resp.Data, 2)
	})

	t.Run("limit caps the page", func(t *testing.T) {
		resp, err := c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
			Contract: "lst-counter",
			Limit:    1,
		})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.True(t, resp.Pagination.HasMore)
	})

	t.Run("filter by unknown contract returns 404", func(t *testing.T) {
		_, err := c.ListDeployments(context.Background(), client.ListDeploymentsOptions{
			Contract: "never-registered",
		})
		assertHTTPError(t, err, "NOT_FOUND")
	})
}

// TestDeployment_WithoutWallet tests that chain operations answer NO_WALLET
// when the server has no signing backend configured
func TestDeployment_WithoutWallet(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-no-wallet")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "nw-counter")

	t.Run("deploy", func(t *testing.T) {
		_, err := c.Deploy(context.Background(), client.DeployRequest{
			Contract:        "nw-counter",
			ConstructorArgs: []string{"1"},
		})
		assertHTTPError(t, err, "NO_WALLET")
	})

	t.Run("execute batch", func(t *testing.T) {
		_, err := c.ExecuteBatch(context.Background(), client.BatchRequest{
			Calls: []client.BatchCall{
				{Contract: "nw-counter", Address: "0x0000000000000000000000000000000000000201", Function: "increment"},
			},
		})
		assertHTTPError(t, err, "NO_WALLET")
	})

	t.Run("batch status", func(t *testing.T) {
		_, err := c.GetBatchStatus(context.Background(), "some-batch-id")
		assertHTTPError(t, err, "NO_WALLET")
	})
}

// TestDeployment_GetNonexistent tests that lookups for unknown deployments
// return 404
func TestDeployment_GetNonexistent(t *testing.T) {
	c := newClient(testCtx.TestServer, "")

	t.Run("by address", func(t *testing.T) {
		_, err := c.GetDeploymentByAddress(context.Background(), 31337, "0xdeaddeaddeaddeaddeaddeaddeaddeaddeaddead")
		assertHTTPError(t, err, "NOT_FOUND")
	})

	t.Run("by record id", func(t *testing.T) {
		_, err := c.GetDeployment(context.Background(), "not-a-real-id")
		assertHTTPError(t, err, "NOT_FOUND")
	})
}
