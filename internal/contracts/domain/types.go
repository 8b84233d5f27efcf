// Package domain contains the business logic for contract registration.
package domain

import (
	"encoding/json"
	"time"
)

// Contract is a registered compiled contract.
type Contract struct {
	ID                  string
	Name                string
	ABI                 json.RawMessage
	Bytecode            string
	Source              string
	CompilerVersion     string
	OptimizationEnabled bool
	OptimizationRuns    int
	EVMVersion          string
	CreatedAt           time.Time
}

// RegisterRequest is the request to register a contract. Fields mirror the
// normalized artifact record.
type RegisterRequest struct {
	Name                string
	ABI                 json.RawMessage
	Bytecode            string
	Source              string
	CompilerVersion     string
	OptimizationEnabled bool
	OptimizationRuns    int
	EVMVersion          string
}

// ListFilter contains filter options for listing contracts.
type ListFilter struct {
	Query string
}

// PaginationParams contains pagination options.
type PaginationParams struct {
	Limit  int
	Cursor string
}

// ListResult contains paginated list results.
type ListResult struct {
	Contracts  []Contract
	HasMore    bool
	NextCursor string
}
