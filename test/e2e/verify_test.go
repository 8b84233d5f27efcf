//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/veriforge/pkg/client"
)

// awaitVerifyStatus polls the status endpoint until the session leaves
// pending or the deadline passes.
func awaitVerifyStatus(t *testing.T, c *client.Client, guid string) *client.VerifyStatus {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		status, err := c.GetVerifyStatus(context.Background(), guid)
		require.NoError(t, err)
		if status.Status != "pending" {
			return status
		}
		require.True(t, time.Now().Before(deadline), "verification stayed pending past the deadline")
		time.Sleep(200 * time.Millisecond)
	}
}

// TestVerify_SubmitAndPoll tests the full verification flow: submit, poll to
// verified, and the deployment record picking up the result
func TestVerify_SubmitAndPoll(t *testing.T) {
	t.Cleanup(testCtx.Explorer.Reset)

	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-counter")

	addr := "0x0000000000000000000000000000000000000301"
	recordedArgs := "0000000000000000000000000000000000000000000000000000000000000007"
	_, err := c.RecordDeployment(context.Background(), client.RecordRequest{
		Contract:        "vrf-counter",
		ChainID:         31337,
		Address:         addr,
		ConstructorArgs: recordedArgs,
	})
	require.NoError(t, err)

	testCtx.Explorer.SetPendingPolls(1)

	result, err := c.Verify(context.Background(), client.VerifyRequest{
		Contract: "vrf-counter",
		Address:  addr,
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "submission should be accepted")
	assert.Equal(t, "pending", result.Status)
	require.NotEmpty(t, result.GUID)

	t.Run("submission forwards the stored artifact", func(t *testing.T) {
		form := testCtx.Explorer.LastSubmission()
		assert.Equal(t, "verifysourcecode", form.Get("action"))
		assert.Equal(t, addr, form.Get("contractaddress"))
		assert.Equal(t, "vrf-counter", form.Get("contractname"))
		assert.Equal(t, counterSource, form.Get("sourceCode"))
		assert.Equal(t, "v0.8.28+commit.7893614a", form.Get("compilerversion"))
		assert.Equal(t, "1", form.Get("optimizationUsed"))
		assert.Equal(t, "200", form.Get("runs"))
		assert.Equal(t, "cancun", form.Get("evmversion"))
		assert.Equal(t, "31337", form.Get("chainid"))
		assert.Equal(t, "e2e-explorer-key", form.Get("apikey"))
	})

	t.Run("constructor args come from the deployment record", func(t *testing.T) {
		form := testCtx.Explorer.LastSubmission()
		assert.Equal(t, recordedArgs, form.Get("constructorArguments"))
	})

	t.Run("status reaches verified", func(t *testing.T) {
		status := awaitVerifyStatus(t, c, result.GUID)
		assert.Equal(t, "verified", status.Status)
		assert.True(t, status.Success)
	})

	t.Run("deployment record is marked verified", func(t *testing.T) {
		d, err := c.GetDeploymentByAddress(context.Background(), 31337, addr)
		require.NoError(t, err)
		assert.True(t, d.Verified)
	})
}

// TestVerify_ExplicitConstructorArgs tests that caller-supplied constructor
// values are ABI-encoded before submission
func TestVerify_ExplicitConstructorArgs(t *testing.T) {
	t.Cleanup(testCtx.Explorer.Reset)

	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-args")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-args")

	result, err := c.Verify(context.Background(), client.VerifyRequest{
		Contract:        "vrf-args",
		Address:         "0x0000000000000000000000000000000000000302",
		ConstructorArgs: []string{"42"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)

	form := testCtx.Explorer.LastSubmission()
	assert.Equal(t,
		"000000000000000000000000000000000000000000000000000000000000002a",
		form.Get("constructorArguments"))
}

// TestVerify_ArgumentMismatch tests that a wrong argument count is rejected
// before anything reaches the explorer
func TestVerify_ArgumentMismatch(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-mismatch")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-mismatch")

	_, err := c.Verify(context.Background(), client.VerifyRequest{
		Contract:        "vrf-mismatch",
		Address:         "0x0000000000000000000000000000000000000303",
		ConstructorArgs: []string{"1", "2"},
	})
	assertHTTPError(t, err, "ARGUMENT_MISMATCH")
}

// TestVerify_WaitMode tests server-side polling to a terminal state
func TestVerify_WaitMode(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-wait")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-wait")

	t.Run("wait polls to verified", func(t *testing.T) {
		t.Cleanup(testCtx.Explorer.Reset)
		testCtx.Explorer.SetPendingPolls(2)

		result, err := c.Verify(context.Background(), client.VerifyRequest{
			Contract: "vrf-wait",
			Address:  "0x0000000000000000000000000000000000000304",
			Wait:     true,
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "verified", result.Status)
	})

	t.Run("wait reports timeout when the queue never settles", func(t *testing.T) {
		t.Cleanup(testCtx.Explorer.Reset)
		// More pending answers than the server's attempt budget
		testCtx.Explorer.SetPendingPolls(50)

		result, err := c.Verify(context.Background(), client.VerifyRequest{
			Contract: "vrf-wait",
			Address:  "0x0000000000000000000000000000000000000305",
			Wait:     true,
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "timeout", result.Status)
		assert.NotEmpty(t, result.GUID, "the GUID stays valid for later polling")
	})
}

// TestVerify_AlreadyVerified tests the explorer answering that the address
// was verified before
func TestVerify_AlreadyVerified(t *testing.T) {
	t.Cleanup(testCtx.Explorer.Reset)

	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-already")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-already")
	addr := "0x0000000000000000000000000000000000000306"
	_, err := c.RecordDeployment(context.Background(), client.RecordRequest{
		Contract: "vrf-already",
		ChainID:  31337,
		Address:  addr,
	})
	require.NoError(t, err)

	testCtx.Explorer.SetOutcome(outcomeAlready)

	result, err := c.Verify(context.Background(), client.VerifyRequest{
		Contract: "vrf-already",
		Address:  addr,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.GUID)

	status := awaitVerifyStatus(t, c, result.GUID)
	assert.Equal(t, "already_verified", status.Status)
	assert.True(t, status.Success, "already verified counts as verified")

	d, err := c.GetDeploymentByAddress(context.Background(), 31337, addr)
	require.NoError(t, err)
	assert.True(t, d.Verified)
}

// TestVerify_RejectedSubmission tests the explorer turning a submission down
func TestVerify_RejectedSubmission(t *testing.T) {
	t.Cleanup(testCtx.Explorer.Reset)

	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-rejected")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-rejected")

	testCtx.Explorer.RejectNext("Unable to locate ContractCode at 0x0000000000000000000000000000000000000307")

	result, err := c.Verify(context.Background(), client.VerifyRequest{
		Contract: "vrf-rejected",
		Address:  "0x0000000000000000000000000000000000000307",
	})
	require.NoError(t, err, "a rejection is an answer, not a transport failure")
	assert.False(t, result.Success)
	assert.Equal(t, "failed", result.Status)
	assert.Contains(t, result.Detail, "Unable to locate ContractCode")
}

// TestVerify_FailedVerification tests the explorer failing a submission
// during the poll phase
func TestVerify_FailedVerification(t *testing.T) {
	t.Cleanup(testCtx.Explorer.Reset)

	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-failed")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-failed")

	testCtx.Explorer.SetOutcome(outcomeFailed)

	result, err := c.Verify(context.Background(), client.VerifyRequest{
		Contract: "vrf-failed",
		Address:  "0x0000000000000000000000000000000000000308",
	})
	require.NoError(t, err)

	status := awaitVerifyStatus(t, c, result.GUID)
	assert.Equal(t, "failed", status.Status)
	assert.False(t, status.Success)
	assert.Contains(t, status.Detail, "Unable to verify")
}

// TestVerify_BadRequests tests malformed verification submissions
func TestVerify_BadRequests(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-bad")
	c := newClient(testCtx.TestServer, apiKey)

	t.Run("unknown contract", func(t *testing.T) {
		_, err := c.Verify(context.Background(), client.VerifyRequest{
			Contract: "never-registered",
			Address:  "0x0000000000000000000000000000000000000309",
		})
		assertHTTPError(t, err, "NOT_FOUND")
	})

	t.Run("malformed address", func(t *testing.T) {
		registerCounter(t, c, "vrf-badaddr")

		_, err := c.Verify(context.Background(), client.VerifyRequest{
			Contract: "vrf-badaddr",
			Address:  "not-an-address",
		})
		assertHTTPError(t, err, "INVALID_REQUEST")
	})

	t.Run("contract without source", func(t *testing.T) {
		_, err := c.RegisterContract(context.Background(), client.RegisterRequest{
			Name:     "vrf-nosource",
			ABI:      json.RawMessage(counterABI),
			Bytecode: counterBytecode,
		})
		require.NoError(t, err)

		_, err = c.Verify(context.Background(), client.VerifyRequest{
			Contract: "vrf-nosource",
			Address:  "0x0000000000000000000000000000000000000310",
		})
		assertHTTPError(t, err, "NO_SOURCE")
	})

	t.Run("status without guid", func(t *testing.T) {
		_, err := c.GetVerifyStatus(context.Background(), "")
		assertHTTPError(t, err, "INVALID_REQUEST")
	})

	t.Run("status for unknown guid", func(t *testing.T) {
		status, err := c.GetVerifyStatus(context.Background(), "no-such-guid")
		require.NoError(t, err)
		assert.Equal(t, "failed", status.Status)
		assert.Contains(t, status.Detail, "Unknown UID")
	})
}

// TestVerify_APIv1Mount tests that verification answers identically under
// the versioned API prefix
func TestVerify_APIv1Mount(t *testing.T) {
	t.Cleanup(testCtx.Explorer.Reset)

	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-mount")
	c := newClient(testCtx.TestServer, apiKey)

	registerCounter(t, c, "vrf-mount")

	body, err := json.Marshal(map[string]any{
		"contractId":      "vrf-mount",
		"contractAddress": "0x0000000000000000000000000000000000000311",
	})
	require.NoError(t, err)

	resp, err := http.Post(testCtx.TestServer.URL+"/api/v1/verify", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result client.VerifyResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "pending", result.Status)
	require.NotEmpty(t, result.GUID)

	statusResp, err := http.Get(testCtx.TestServer.URL + "/api/v1/verify?guid=" + result.GUID)
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status client.VerifyStatus
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, "verified", status.Status)
}
