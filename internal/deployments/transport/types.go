// Package transport provides HTTP request/response types for the deployments domain.
package transport

import (
	"time"

	"github.com/pendergraft/veriforge/internal/deployments/domain"
)

// DeployRequest is the HTTP request body for deploying a stored contract.
type DeployRequest struct {
	Contract        string   `json:"contract"`
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
}

// ToDomain converts DeployRequest to domain.DeployRequest.
func (r DeployRequest) ToDomain() domain.DeployRequest {
	return domain.DeployRequest{
		Contract:        r.Contract,
		ConstructorArgs: r.ConstructorArgs,
	}
}

// RecordRequest is the HTTP request body for recording a deployment.
type RecordRequest struct {
	Contract        string `json:"contract"`
	ChainID         int64  `json:"chainId"`
	Address         string `json:"address"`
	TxHash          string `json:"txHash,omitempty"`
	DeployerAddress string `json:"deployerAddress,omitempty"`
	BlockNumber     int64  `json:"blockNumber,omitempty"`
	ConstructorArgs string `json:"constructorArgs,omitempty"`
}

// ToDomain converts RecordRequest to domain.RecordRequest.
func (r RecordRequest) ToDomain() domain.RecordRequest {
	return domain.RecordRequest{
		Contract:        r.Contract,
		ChainID:         r.ChainID,
		Address:         r.Address,
		TxHash:          r.TxHash,
		DeployerAddress: r.DeployerAddress,
		BlockNumber:     r.BlockNumber,
		ConstructorArgs: r.ConstructorArgs,
	}
}

// BatchRequest is the HTTP request body for executing an atomic batch.
type BatchRequest struct {
	Calls []BatchCall `json:"calls"`
}

// BatchCall is one call within a batch request.
type BatchCall struct {
	Contract string   `json:"contract"`
	Address  string   `json:"address"`
	Function string   `json:"function"`
	Args     []string `json:"args,omitempty"`
}

// ToDomain converts BatchRequest to domain.BatchRequest.
func (r BatchRequest) ToDomain() domain.BatchRequest {
	calls := make([]domain.BatchCall, len(r.Calls))
	for i, c := range r.Calls {
		calls[i] = domain.BatchCall{
			Contract: c.Contract,
			Address:  c.Address,
			Function: c.Function,
			Args:     c.Args,
		}
	}
	return domain.BatchRequest{Calls: calls}
}

// DeploymentResponse is the response for a single deployment.
type DeploymentResponse struct {
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

// FromDomain converts a domain.Deployment to a DeploymentResponse.
func FromDomain(d *domain.Deployment) DeploymentResponse {
	createdAt := ""
	if !d.CreatedAt.IsZero() {
		createdAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return DeploymentResponse{
		ID:              d.ID,
		ContractID:      d.ContractID,
		ContractName:    d.ContractName,
		ChainID:         d.ChainID,
		Address:         d.Address,
		DeployerAddress: d.DeployerAddress,
		TxHash:          d.TxHash,
		BlockNumber:     d.BlockNumber,
		ConstructorArgs: d.ConstructorArgs,
		BytecodeMatch:   d.BytecodeMatch,
		Verified:        d.Verified,
		CreatedAt:       createdAt,
	}
}

// BatchSubmissionResponse is the response for an accepted batch.
type BatchSubmissionResponse struct {
	BatchID string `json:"batchId"`
	ChainID int64  `json:"chainId"`
	Calls   int    `json:"calls"`
}

// BatchStatusResponse is the response for a batch status query.
type BatchStatusResponse struct {
	BatchID  string            `json:"batchId"`
	Status   string            `json:"status"`
	Atomic   bool              `json:"atomic"`
	Receipts []ReceiptResponse `json:"receipts"`
}

// ReceiptResponse is one mined call within a batch status response.
type ReceiptResponse struct {
	TxHash      string `json:"txHash"`
	BlockNumber int64  `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	Success     bool   `json:"success"`
}

// ListResponse is the response for listing deployments.
type ListResponse struct {
	Data       []DeploymentResponse `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// Pagination provides pagination metadata.
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
