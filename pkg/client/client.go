// Package client provides a Go client for the Veriforge API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a Veriforge API client
type Client struct {
	baseURL    string
	apiKey     string
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

// New creates a new Veriforge client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Contract is a registered contract
type Contract struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ABI             json.RawMessage `json:"abi,omitempty"`
	Bytecode        string          `json:"bytecode,omitempty"`
	Source          string          `json:"source,omitempty"`
	CompilerVersion string          `json:"compilerVersion,omitempty"`
	Optimization    *Optimization   `json:"optimization,omitempty"`
	EVMVersion      string          `json:"evmVersion,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
}

// Optimization is optimizer settings on a contract
type Optimization struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// Deployment is a recorded deployment
type Deployment struct {
	ID              string `json:"id"`
	ContractID      string `json:"contractId"`
	ContractName    string `json:"contractName"`
	ChainID         int64  `json:"chainId"`
	Address         string `json:"address"`
	DeployerAddress string `json:"deployerAddress,omitempty"`
	TxHash          string `json:"txHash,omitempty"`
	BlockNumber     int64  `json:"blockNumber,omitempty"`
	ConstructorArgs string `json:"constructorArgs,omitempty"`
	BytecodeMatch   string `json:"bytecodeMatch,omitempty"`
	Verified        bool   `json:"verified"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// RegisterRequest is the request for registering a contract. Either a raw
// artifact (Foundry/Hardhat JSON) or the flat fields can be supplied.
type RegisterRequest struct {
	Name         string          `json:"name,omitempty"`
	Artifact     json.RawMessage `json:"artifact,omitempty"`
	ABI          json.RawMessage `json:"abi,omitempty"`
	Bytecode     string          `json:"bytecode,omitempty"`
	Source       string          `json:"source,omitempty"`
	Compiler     string          `json:"compilerVersion,omitempty"`
	Optimization *Optimization   `json:"optimization,omitempty"`
	EVMVersion   string          `json:"evmVersion,omitempty"`
}

// DeployRequest is the request for deploying a stored contract
type DeployRequest struct {
	Contract        string   `json:"contract"`
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
}

// RecordRequest is the request for recording an external deployment
type RecordRequest struct {
	Contract        string `json:"contract"`
	ChainID         int64  `json:"chainId"`
	Address         string `json:"address"`
	TxHash          string `json:"txHash,omitempty"`
	DeployerAddress string `json:"deployerAddress,omitempty"`
	BlockNumber     int64  `json:"blockNumber,omitempty"`
	ConstructorArgs string `json:"constructorArgs,omitempty"`
}

// BatchCall is one call within a batch request
type BatchCall struct {
	Contract string   `json:"contract"`
	Address  string   `json:"address"`
	Function string   `json:"function"`
	Args     []string `json:"args,omitempty"`
}

// BatchRequest is the request for executing an atomic call batch
type BatchRequest struct {
	Calls []BatchCall `json:"calls"`
}

// BatchSubmission is the response for an accepted batch
type BatchSubmission struct {
	BatchID string `json:"batchId"`
	ChainID int64  `json:"chainId"`
	Calls   int    `json:"calls"`
}

// BatchStatus is the status of a submitted batch
type BatchStatus struct {
	BatchID  string         `json:"batchId"`
	Status   string         `json:"status"`
	Atomic   bool           `json:"atomic"`
	Receipts []BatchReceipt `json:"receipts"`
}

// BatchReceipt is one mined call within a batch
type BatchReceipt struct {
	TxHash      string `json:"txHash"`
	BlockNumber int64  `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	Success     bool   `json:"success"`
}

// VerifyRequest is the request for submitting source verification
type VerifyRequest struct {
	Contract        string   `json:"contractId"`
	Address         string   `json:"contractAddress"`
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
	Wait            bool     `json:"wait,omitempty"`
}

// VerifyResult is the response for a verification submission
type VerifyResult struct {
	Success bool   `json:"success"`
	GUID    string `json:"guid,omitempty"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// VerifyStatus is the response for a verification status query
type VerifyStatus struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// ContractList is the response for listing contracts
type ContractList struct {
	Data       []Contract `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// DeploymentList is the response for listing deployments
type DeploymentList struct {
	Data       []Deployment `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// Pagination contains pagination info
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ListContractsOptions filters a contract listing
type ListContractsOptions struct {
	Query  string
	Limit  int
	Cursor string
}

// ListDeploymentsOptions filters a deployment listing
type ListDeploymentsOptions struct {
	Contract string
	ChainID  int64
	Verified *bool
	Limit    int
	Cursor   string
}

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RegisterContract registers a compiled contract
func (c *Client) RegisterContract(ctx context.Context, req RegisterRequest) (*Contract, error) {
	var resp Contract
	if err := c.post(ctx, "/api/v1/contracts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetContract gets a contract by id or name, including its artifact
func (c *Client) GetContract(ctx context.Context, idOrName string) (*Contract, error) {
	var resp Contract
	if err := c.get(ctx, "/api/v1/contracts/"+url.PathEscape(idOrName), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListContracts lists registered contracts
func (c *Client) ListContracts(ctx context.Context, opts ListContractsOptions) (*ContractList, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}

	path := "/api/v1/contracts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ContractList
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteContract removes a contract by id or name
func (c *Client) DeleteContract(ctx context.Context, idOrName string) error {
	return c.delete(ctx, "/api/v1/contracts/"+url.PathEscape(idOrName))
}

// Deploy deploys a stored contract through the server's wallet
func (c *Client) Deploy(ctx context.Context, req DeployRequest) (*Deployment, error) {
	var resp Deployment
	if err := c.post(ctx, "/api/v1/deployments/deploy", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordDeployment records a deployment made outside the server
func (c *Client) RecordDeployment(ctx context.Context, req RecordRequest) (*Deployment, error) {
	var resp Deployment
	if err := c.post(ctx, "/api/v1/deployments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDeployment gets a deployment by record id
func (c *Client) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	var resp Deployment
	if err := c.get(ctx, "/api/v1/deployments/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDeploymentByAddress gets a deployment by chain ID and contract address
func (c *Client) GetDeploymentByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	var resp Deployment
	path := fmt.Sprintf("/api/v1/deployments/%d/%s", chainID, url.PathEscape(address))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDeployments lists recorded deployments
func (c *Client) ListDeployments(ctx context.Context, opts ListDeploymentsOptions) (*DeploymentList, error) {
	q := url.Values{}
	if opts.Contract != "" {
		q.Set("contract", opts.Contract)
	}
	if opts.ChainID != 0 {
		q.Set("chainId", strconv.FormatInt(opts.ChainID, 10))
	}
	if opts.Verified != nil {
		q.Set("verified", strconv.FormatBool(*opts.Verified))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}

	path := "/api/v1/deployments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp DeploymentList
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecuteBatch submits an atomic call batch
func (c *Client) ExecuteBatch(ctx context.Context, req BatchRequest) (*BatchSubmission, error) {
	var resp BatchSubmission
	if err := c.post(ctx, "/api/v1/deployments/batch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBatchStatus gets the status of a submitted batch
func (c *Client) GetBatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	var resp BatchStatus
	if err := c.get(ctx, "/api/v1/deployments/batch/"+url.PathEscape(batchID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify submits a contract for source verification
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var resp VerifyResult
	if err := c.post(ctx, "/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVerifyStatus checks the status of a verification session
func (c *Client) GetVerifyStatus(ctx context.Context, guid string) (*VerifyStatus, error) {
	var resp VerifyStatus
	if err := c.get(ctx, "/verify?guid="+url.QueryEscape(guid), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return &errResp.Error
}
