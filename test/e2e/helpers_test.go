//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pendergraft/veriforge/internal/config"
	"github.com/pendergraft/veriforge/internal/server"
	"github.com/pendergraft/veriforge/internal/storage"
	"github.com/pendergraft/veriforge/pkg/client"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	TestServer *httptest.Server
	Store      storage.Store
	Explorer   *explorerStub
}

// startServerE boots the real server over a SQLite file and returns it
// together with its store. No wallet is wired, so the deploy and batch
// endpoints answer NO_WALLET; the tests assert those paths explicitly.
func startServerE(dbPath, explorerURL string) (*httptest.Server, storage.Store, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 0,
			Host: "127.0.0.1",
		},
		Storage: config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: dbPath},
		},
		Auth: config.AuthConfig{
			Type: "api-key",
		},
		Chain: config.ChainConfig{
			ChainID: 31337,
		},
		Explorer: config.ExplorerConfig{
			APIURL: explorerURL,
			APIKey: "e2e-explorer-key",
		},
		Verify: config.VerifyConfig{
			// Poll fast so wait-mode verification settles in test time
			PollIntervalSeconds: 1,
			MaxAttempts:         5,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
		},
		Security: config.SecurityConfig{
			FilterEnabled: false,
			MaxBodySizeMB: 50,
		},
		Proxy: config.ProxyConfig{
			TrustProxy: false,
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	srv := server.New(cfg, store, nil, logger)
	ts := httptest.NewServer(srv.Handler())
	return ts, store, nil
}

// newClient creates an API client against the test server
func newClient(ts *httptest.Server, apiKey string) *client.Client {
	return client.New(ts.URL, apiKey)
}

// createTestAPIKey creates an API key directly in the store
func createTestAPIKey(t *testing.T, store storage.Store, name string) string {
	t.Helper()

	key, err := store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// assertHTTPError asserts that err is an API error with the given code
func assertHTTPError(t *testing.T, err error, wantCode string) {
	t.Helper()

	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok, "expected *client.APIError, got %T: %v", err, err)
	require.Equal(t, wantCode, apiErr.Code)
}

// counterSource is the source text the fixture artifact claims to be built
// from. Verification submissions must forward it verbatim.
const counterSource = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.28;

contract Counter {
    uint256 public count;

    event Incremented(uint256 newCount);

    constructor(uint256 start) {
        count = start;
    }

    function increment() external {
        count += 1;
        emit Incremented(count);
    }
}
`

const counterABI = `[
	{"type":"constructor","inputs":[{"name":"start","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"count","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"increment","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"Incremented","inputs":[{"name":"newCount","type":"uint256","indexed":false}],"anonymous":false}
]`

const counterBytecode = "0x6080604052348015600e575f5ffd5b5060405161012038038061012083398101604081905260299160365b5f55604c565b5f81518060205f5f5b60c8806100585f395ff3fe"

// counterArtifact builds a Foundry-style artifact for a Counter contract:
// abi, creation bytecode, and the metadata blob carrying compiler settings.
func counterArtifact(tb testing.TB, contract string) json.RawMessage {
	tb.Helper()

	metadata := map[string]any{
		"compiler": map[string]any{"version": "0.8.28+commit.7893614a"},
		"settings": map[string]any{
			"compilationTarget": map[string]any{"src/" + contract + ".sol": contract},
			"evmVersion":        "cancun",
			"optimizer":         map[string]any{"enabled": true, "runs": 200},
		},
	}
	rawMetadata, err := json.Marshal(metadata)
	require.NoError(tb, err)

	artifact := map[string]any{
		"abi":         json.RawMessage(counterABI),
		"bytecode":    map[string]any{"object": counterBytecode},
		"rawMetadata": string(rawMetadata),
	}
	data, err := json.Marshal(artifact)
	require.NoError(tb, err)
	return data
}

// registerCounter registers a Counter artifact under the given name with
// source attached, and returns the created record.
func registerCounter(t *testing.T, c *client.Client, name string) *client.Contract {
	t.Helper()

	created, err := c.RegisterContract(context.Background(), client.RegisterRequest{
		Name:     name,
		Artifact: counterArtifact(t, "Counter"),
		Source:   counterSource,
	})
	require.NoError(t, err, "Failed to register contract %s", name)
	require.NotEmpty(t, created.ID)
	return created
}

// explorerStub fakes the Etherscan-style verification API. Submissions get a
// tracking GUID; status queries walk each session from pending to its
// configured terminal answer.
type explorerStub struct {
	srv *httptest.Server

	mu           sync.Mutex
	sessions     map[string]*stubSession
	nextGUID     int
	pendingPolls int
	outcome      string
	rejectReason string
	lastSubmit   url.Values
}

type stubSession struct {
	remaining int
	outcome   string
}

const (
	outcomeVerified = "verified"
	outcomeAlready  = "already"
	outcomeFailed   = "failed"
)

func newExplorerStub() *explorerStub {
	s := &explorerStub{
		sessions: make(map[string]*stubSession),
		outcome:  outcomeVerified,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *explorerStub) URL() string { return s.srv.URL }

func (s *explorerStub) Close() { s.srv.Close() }

// Reset restores default behavior: submissions accepted, first status query
// conclusive, outcome verified. Tests that change stub behavior register it
// as cleanup so the settings never leak into the next test.
func (s *explorerStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPolls = 0
	s.outcome = outcomeVerified
	s.rejectReason = ""
}

// SetPendingPolls makes each new session answer "Pending in queue" that many
// times before settling.
func (s *explorerStub) SetPendingPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPolls = n
}

// SetOutcome sets the terminal answer for new sessions.
func (s *explorerStub) SetOutcome(outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = outcome
}

// RejectNext makes the next submission fail with the given reason.
func (s *explorerStub) RejectNext(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectReason = reason
}

// LastSubmission returns the form fields of the most recent submission.
func (s *explorerStub) LastSubmission() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSubmit
}

func (s *explorerStub) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleSubmit(w, r)
		return
	}
	s.handleStatus(w, r)
}

func (s *explorerStub) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStubAnswer(w, "0", "NOTOK", "Error! Malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSubmit = r.PostForm

	if s.rejectReason != "" {
		reason := s.rejectReason
		s.rejectReason = ""
		writeStubAnswer(w, "0", "NOTOK", reason)
		return
	}

	s.nextGUID++
	guid := fmt.Sprintf("stub-guid-%d", s.nextGUID)
	s.sessions[guid] = &stubSession{remaining: s.pendingPolls, outcome: s.outcome}
	writeStubAnswer(w, "1", "OK", guid)
}

func (s *explorerStub) handleStatus(w http.ResponseWriter, r *http.Request) {
	guid := r.URL.Query().Get("guid")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[guid]
	if !ok {
		writeStubAnswer(w, "0", "NOTOK", "Error! Unknown UID")
		return
	}
	if sess.remaining > 0 {
		sess.remaining--
		writeStubAnswer(w, "0", "NOTOK", "Pending in queue")
		return
	}

	switch sess.outcome {
	case outcomeAlready:
		writeStubAnswer(w, "0", "NOTOK", "Already Verified")
	case outcomeFailed:
		writeStubAnswer(w, "0", "NOTOK", "Fail - Unable to verify")
	default:
		writeStubAnswer(w, "1", "OK", "Pass - Verified")
	}
}

func writeStubAnswer(w http.ResponseWriter, status, message, result string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"message": message,
		"result":  result,
	})
}
