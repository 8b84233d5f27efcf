// Package domain contains the business logic for deployment management.
package domain

import (
	"time"
)

// Deployment represents a recorded deployment.
type Deployment struct {
	ID              string
	ContractID      string
	ContractName    string
	ChainID         int64
	Address         string
	DeployerAddress string
	TxHash          string
	BlockNumber     int64
	ConstructorArgs string
	BytecodeMatch   string
	Verified        bool
	VerifyGUID      string
	CreatedAt       time.Time
}

// DeployRequest is the request to deploy a stored contract.
type DeployRequest struct {
	// Contract is a contract record id or name.
	Contract string `json:"contract"`
	// ConstructorArgs are positional raw values matching the constructor
	// parameters, in declaration order.
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
}

// RecordRequest is the request to record a deployment made outside the
// service, for example from a CI pipeline or a manual forge script run.
type RecordRequest struct {
	Contract        string `json:"contract"`
	ChainID         int64  `json:"chainId"`
	Address         string `json:"address"`
	TxHash          string `json:"txHash,omitempty"`
	DeployerAddress string `json:"deployerAddress,omitempty"`
	BlockNumber     int64  `json:"blockNumber,omitempty"`
	ConstructorArgs string `json:"constructorArgs,omitempty"`
}

// BatchCall is one call within a batch request.
type BatchCall struct {
	// Contract is the stored contract record whose ABI resolves the function.
	Contract string `json:"contract"`
	// Address is the on-chain target of the call.
	Address  string   `json:"address"`
	Function string   `json:"function"`
	Args     []string `json:"args,omitempty"`
}

// BatchRequest is the request to execute calls as one atomic batch.
type BatchRequest struct {
	Calls []BatchCall `json:"calls"`
}

// BatchSubmission describes an accepted batch.
type BatchSubmission struct {
	BatchID string
	ChainID int64
	Calls   int
}

// Batch states derived from the wallet's receipt set.
const (
	BatchPending = "pending"
	BatchSuccess = "success"
	BatchFailed  = "failed"
)

// BatchStatus is the classified state of a submitted batch.
type BatchStatus struct {
	BatchID  string
	Status   string
	Atomic   bool
	Receipts []CallReceipt
}

// CallReceipt is one mined call within a batch.
type CallReceipt struct {
	TxHash      string
	BlockNumber int64
	GasUsed     uint64
	Success     bool
}

// ListFilter contains filter options for listing deployments.
type ListFilter struct {
	// Contract is a contract record id or name; deployments are filtered to
	// that contract when set.
	Contract string
	ChainID  int64
	Verified *bool
}

// PaginationParams contains pagination options.
type PaginationParams struct {
	Limit  int
	Cursor string
}

// ListResult contains paginated list results.
type ListResult struct {
	Deployments []Deployment
	HasMore     bool
	NextCursor  string
}
