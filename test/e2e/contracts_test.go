//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/veriforge/pkg/client"
)

// TestContracts_RegisterArtifact tests registering raw Foundry artifacts
func TestContracts_RegisterArtifact(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-register")
	c := newClient(testCtx.TestServer, apiKey)

	t.Run("register from raw artifact", func(t *testing.T) {
		created := registerCounter(t, c, "reg-counter")

		assert.Equal(t, "reg-counter", created.Name)
		assert.Equal(t, "0.8.28+commit.7893614a", created.CompilerVersion)
		assert.Equal(t, "cancun", created.EVMVersion)
		require.NotNil(t, created.Optimization)
		assert.True(t, created.Optimization.Enabled)
		assert.Equal(t, 200, created.Optimization.Runs)
	})

	t.Run("get returns the full artifact", func(t *testing.T) {
		registerCounter(t, c, "reg-full")

		full, err := c.GetContract(context.Background(), "reg-full")
		require.NoError(t, err)
		assert.Equal(t, counterSource, full.Source)
		assert.Equal(t, counterBytecode, full.Bytecode)

		var abi []json.RawMessage
		require.NoError(t, json.Unmarshal(full.ABI, &abi))
		assert.NotEmpty(t, abi, "ABI should not be empty")
		assert.Contains(t, string(full.ABI), "increment")
	})

	t.Run("register with flat fields", func(t *testing.T) {
		created, err := c.RegisterContract(context.Background(), client.RegisterRequest{
			Name:     "reg-flat",
			ABI:      json.RawMessage(counterABI),
			Bytecode: counterBytecode,
			Compiler: "0.8.28",
			Optimization: &client.Optimization{
				Enabled: false,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "reg-flat", created.Name)
		assert.Equal(t, "0.8.28", created.CompilerVersion)
	})

	t.Run("artifact name is used when no name is given", func(t *testing.T) {
		created, err := c.RegisterContract(context.Background(), client.RegisterRequest{
			Artifact: counterArtifact(t, "Counter"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Counter", created.Name, "name should come from the compilation target")
	})
}

// TestContracts_RegisterRejections tests malformed registration requests
func TestContracts_RegisterRejections(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-reject")
	c := newClient(testCtx.TestServer, apiKey)

	t.Run("duplicate name rejected", func(t *testing.T) {
		registerCounter(t, c, "dup-counter")

		_, err := c.RegisterContract(context.Background(), client.RegisterRequest{
			Name:     "dup-counter",
			Artifact: counterArtifact(t, "Counter"),
		})
		assertHTTPError(t, err, "CONTRACT_EXISTS")
	})

	t.Run("interface artifact rejected", func(t *testing.T) {
		// An interface compiles to no creation bytecode
		artifact, err := json.Marshal(map[string]any{
			"abi":      json.RawMessage(counterABI),
			"bytecode": map[string]any{"object": "0x"},
		})
		require.NoError(t, err)

		_, err = c.RegisterContract(context.Background(), client.RegisterRequest{
			Name:     "iface-counter",
			Artifact: artifact,
		})
		assertHTTPError(t, err, "INVALID_ARTIFACT")
	})

	t.Run("garbage ABI rejected", func(t *testing.T) {
		_, err := c.RegisterContract(context.Background(), client.RegisterRequest{
			Name:     "garbage-abi",
			ABI:      json.RawMessage(`{"not":"an abi"}`),
			Bytecode: counterBytecode,
		})
		assertHTTPError(t, err, "INVALID_ARTIFACT")
	})

	t.Run("bad compiler version rejected", func(t *testing.T) {
		_, err := c.RegisterContract(context.Background(), client.RegisterRequest{
			Name:     "bad-compiler",
			ABI:      json.RawMessage(counterABI),
			Bytecode: counterBytecode,
			Compiler: "not-a-version",
		})
		assertHTTPError(t, err, "INVALID_VERSION")
	})
}

// TestContracts_NameValidation tests contract name rules
func TestContracts_NameValidation(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-names")
	c := newClient(testCtx.TestServer, apiKey)

	validNames := []string{
		"my-contract",
		"my_contract",
		"MyContract",
		"Token123",
	}

	for _, name := range validNames {
		t.Run("accept name: "+name, func(t *testing.T) {
			created, err := c.RegisterContract(context.Background(), client.RegisterRequest{
				Name:     name,
				Artifact: counterArtifact(t, "Counter"),
			})
			require.NoError(t, err)
			assert.Equal(t, name, created.Name)
		})
	}

	invalidNames := []string{
		"1starts-with-digit",
		"has space",
		"double--hyphen",
		"dotted.name",
	}

	for _, name := range invalidNames {
		t.Run("reject name: "+name, func(t *testing.T) {
			_, err := c.RegisterContract(context.Background(), client.RegisterRequest{
				Name:     name,
				Artifact: counterArtifact(t, "Counter"),
			})
			assertHTTPError(t, err, "INVALID_REQUEST")
		})
	}
}

// TestContracts_GetByIDAndName tests the dual lookup rule
func TestContracts_GetByIDAndName(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-lookup")
	c := newClient(testCtx.TestServer, apiKey)

	created := registerCounter(t, c, "lookup-counter")

	t.Run("get by name", func(t *testing.T) {
		got, err := c.GetContract(context.Background(), "lookup-counter")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("get by record id", func(t *testing.T) {
		got, err := c.GetContract(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "lookup-counter", got.Name)
	})

	t.Run("get nonexistent returns 404", func(t *testing.T) {
		_, err := c.GetContract(context.Background(), "no-such-contract")
		assertHTTPError(t, err, "NOT_FOUND")
	})
}

// TestContracts_ListAndSearch tests listing, search, and cursor pagination
func TestContracts_ListAndSearch(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-listing")
	c := newClient(testCtx.TestServer, apiKey)

	// The database is shared across the suite, so every assertion scopes
	// itself with the query filter.
	for _, name := range []string{"pgn-counter-a", "pgn-counter-b", "pgn-counter-c"} {
		registerCounter(t, c, name)
	}

	t.Run("list all", func(t *testing.T) {
		resp, err := c.ListContracts(context.Background(), client.ListContractsOptions{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(resp.Data), 3)
		assert.Equal(t, 20, resp.Pagination.Limit, "Default limit is 20")
	})

	t.Run("search by substring", func(t *testing.T) {
		resp, err := c.ListContracts(context.Background(), client.ListContractsOptions{
			Query: "pgn-counter",
		})
		require.NoError(t, err)
		require.Len(t, resp.Data, 3)
		// Listing is ordered by name
		assert.Equal(t, "pgn-counter-a", resp.Data[0].Name)
		assert.Equal(t, "pgn-counter-c", resp.Data[2].Name)
	})

	t.Run("search with no matches", func(t *testing.T) {
		resp, err := c.ListContracts(context.Background(), client.ListContractsOptions{
			Query: "no-such-prefix",
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Data)
		assert.False(t, resp.Pagination.HasMore)
	})

	t.Run("cursor pagination", func(t *testing.T) {
		page1, err := c.ListContracts(context.Background(), client.ListContractsOptions{
			Query: "pgn-counter",
			Limit: 2,
		})
		require.NoError(t, err)
		require.Len(t, page1.Data, 2)
		assert.True(t, page1.Pagination.HasMore)
		require.NotEmpty(t, page1.Pagination.NextCursor)

		page2, err := c.ListContracts(context.Background(), client.ListContractsOptions{
			Query:  "pgn-counter",
			Limit:  2,
			Cursor: page1.Pagination.NextCursor,
		})
		require.NoError(t, err)
		require.Len(t, page2.Data, 1)
		assert.False(t, page2.Pagination.HasMore)
		assert.Equal(t, "pgn-counter-c", page2.Data[0].Name)
	})

	t.Run("list omits artifact payloads", func(t *testing.T) {
		resp, err := c.ListContracts(context.Background(), client.ListContractsOptions{
			Query: "pgn-counter",
		})
		require.NoError(t, err)
		require.NotEmpty(t, resp.Data)
		assert.Empty(t, resp.Data[0].Bytecode)
		assert.Empty(t, resp.Data[0].Source)
	})
}

// TestContracts_Delete tests deletion and its cascade onto deployments
func TestContracts_Delete(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-delete")
	c := newClient(testCtx.TestServer, apiKey)

	t.Run("delete by name", func(t *testing.T) {
		registerCounter(t, c, "del-counter")

		require.NoError(t, c.DeleteContract(context.Background(), "del-counter"))

		_, err := c.GetContract(context.Background(), "del-counter")
		assertHTTPError(t, err, "NOT_FOUND")
	})

	t.Run("delete by record id", func(t *testing.T) {
		created := registerCounter(t, c, "del-by-id")

		require.NoError(t, c.DeleteContract(context.Background(), created.ID))

		_, err := c.GetContract(context.Background(), created.ID)
		assertHTTPError(t, err, "NOT_FOUND")
	})

	t.Run("delete cascades to deployments", func(t *testing.T) {
		registerCounter(t, c, "del-cascade")

		addr := "0x00000000000000000000000000000000000000C1"
		_, err := c.RecordDeployment(context.Background(), client.RecordRequest{
			Contract: "del-cascade",
			ChainID:  31337,
			Address:  addr,
		})
		require.NoError(t, err)

		require.NoError(t, c.DeleteContract(context.Background(), "del-cascade"))

		_, err = c.GetDeploymentByAddress(context.Background(), 31337, addr)
		assertHTTPError(t, err, "NOT_FOUND")
	})

	t.Run("delete nonexistent returns 404", func(t *testing.T) {
		err := c.DeleteContract(context.Background(), "never-registered")
		assertHTTPError(t, err, "NOT_FOUND")
	})
}
