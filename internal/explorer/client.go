// Package explorer is a client for Etherscan-style contract verification
// APIs: one-shot source submission and status lookup by tracking GUID.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRuns is submitted when the stored record does not carry an
	// optimizer run count.
	DefaultRuns = 200

	codeFormat = "solidity-single-file"
)

var (
	// ErrMalformedResponse is returned when the service answers with a body
	// that is not the documented JSON envelope. The body is never parsed
	// partially.
	ErrMalformedResponse = errors.New("malformed explorer response")
)

// RejectedError carries the service's rejection reason verbatim, for display.
// A rejected submission is never retried automatically; resubmission is an
// explicit caller action.
type RejectedError struct {
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("verification rejected: %s", e.Detail)
}

// Client talks to one verification endpoint for one chain.
type Client struct {
	apiURL     string
	apiKey     string
	chainID    int
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a verification service client
func New(apiURL, apiKey string, chainID int, opts ...Option) *Client {
	c := &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		chainID: chainID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SubmitRequest carries everything one source submission needs. Fields map
// onto the service's documented form fields.
type SubmitRequest struct {
	ContractAddress string
	ContractName    string
	SourceCode      string
	CompilerVersion string
	ConstructorArgs string
	OptimizationOn  bool
	Runs            int
	EVMVersion      string
}

// Status is the raw service answer for one status query: the numeric-string
// status flag and the result text (a state phrase, a rejection reason, or a
// verified-code summary).
type Status struct {
	Status string
	Result string
}

// Verified reports whether the service's success flag is set.
func (s *Status) Verified() bool {
	return s.Status == "1"
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Submit sends one verification submission and returns the tracking GUID.
// It does not begin polling: the poll phase is a separate, caller-invoked
// step so a slow queue never blocks the submitting request.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("chainid", strconv.Itoa(c.chainID))
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.ContractAddress)
	form.Set("sourceCode", req.SourceCode)
	form.Set("codeformat", codeFormat)
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", versionWithV(req.CompilerVersion))
	form.Set("constructorArguments", strings.TrimPrefix(req.ConstructorArgs, "0x"))
	form.Set("optimizationUsed", boolFlag(req.OptimizationOn))
	form.Set("runs", strconv.Itoa(runsOrDefault(req.Runs)))
	if req.EVMVersion != "" {
		form.Set("evmversion", req.EVMVersion)
	}

	env, err := c.postForm(ctx, form)
	if err != nil {
		return "", err
	}

	if env.Status != "1" {
		return "", &RejectedError{Detail: env.Result}
	}
	return env.Result, nil
}

// CheckStatus issues one status query for a tracking GUID.
func (c *Client) CheckStatus(ctx context.Context, guid string) (*Status, error) {
	query := url.Values{}
	query.Set("module", "contract")
	query.Set("action", "checkverifystatus")
	query.Set("guid", guid)
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating status request: %w", err)
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &Status{Status: env.Status, Result: env.Result}, nil
}

func (c *Client) postForm(ctx context.Context, form url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling verification service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading verification response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &env, nil
}

// versionWithV ensures the literal "v" prefix the service requires, e.g.
// "0.8.19+commit.7dd6d404" becomes "v0.8.19+commit.7dd6d404".
func versionWithV(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

func boolFlag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

func runsOrDefault(runs int) int {
	if runs <= 0 {
		return DefaultRuns
	}
	return runs
}
