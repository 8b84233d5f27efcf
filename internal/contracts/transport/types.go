// Package transport provides HTTP request/response types for the contracts domain.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pendergraft/veriforge/internal/artifact"
	"github.com/pendergraft/veriforge/internal/contracts/domain"
)

// RegisterRequest is the HTTP request body for registering a contract. The
// artifact field carries raw compiler output and is normalized server-side;
// alternatively the flat fields can be supplied directly.
type RegisterRequest struct {
	Name            string               `json:"name"`
	Artifact        json.RawMessage      `json:"artifact,omitempty"`
	ABI             json.RawMessage      `json:"abi,omitempty"`
	Bytecode        string               `json:"bytecode,omitempty"`
	Source          string               `json:"source,omitempty"`
	CompilerVersion string               `json:"compilerVersion,omitempty"`
	Optimization    *OptimizationRequest `json:"optimization,omitempty"`
	EVMVersion      string               `json:"evmVersion,omitempty"`
}

// OptimizationRequest is optimizer settings in a register request.
type OptimizationRequest struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// ToDomain converts RegisterRequest to domain.RegisterRequest, normalizing
// the raw artifact when one was supplied.
func (r RegisterRequest) ToDomain() (domain.RegisterRequest, error) {
	req := domain.RegisterRequest{
		Name:            r.Name,
		ABI:             r.ABI,
		Bytecode:        r.Bytecode,
		Source:          r.Source,
		CompilerVersion: r.CompilerVersion,
		EVMVersion:      r.EVMVersion,
	}
	if r.Optimization != nil {
		req.OptimizationEnabled = r.Optimization.Enabled
		req.OptimizationRuns = r.Optimization.Runs
	}

	if len(r.Artifact) > 0 {
		art, err := artifact.Parse(r.Artifact)
		if err != nil {
			return domain.RegisterRequest{}, fmt.Errorf("normalizing artifact: %w", err)
		}
		// The artifact carries compiled output only. Source text stays
		// whatever the caller supplied; explorers need the real source,
		// not the compilation target path.
		req.ABI = art.ABI
		req.Bytecode = art.Bytecode
		req.CompilerVersion = art.CompilerVersion
		req.OptimizationEnabled = art.Optimizer.Enabled
		req.OptimizationRuns = art.Optimizer.Runs
		req.EVMVersion = art.EVMVersion
		if req.Name == "" {
			req.Name = art.Name
		}
	}

	return req, nil
}

// ContractResponse is the response for getting a contract.
type ContractResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ABI             json.RawMessage `json:"abi,omitempty"`
	Bytecode        string          `json:"bytecode,omitempty"`
	Source          string          `json:"source,omitempty"`
	CompilerVersion string          `json:"compilerVersion,omitempty"`
	Optimization    *OptimizationRequest `json:"optimization,omitempty"`
	EVMVersion      string          `json:"evmVersion,omitempty"`
	CreatedAt       string          `json:"createdAt"`
}

// FromDomain converts a domain contract to the response shape.
func FromDomain(c *domain.Contract, includeArtifact bool) ContractResponse {
	resp := ContractResponse{
		ID:              c.ID,
		Name:            c.Name,
		CompilerVersion: c.CompilerVersion,
		EVMVersion:      c.EVMVersion,
		CreatedAt:       c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.OptimizationEnabled || c.OptimizationRuns > 0 {
		resp.Optimization = &OptimizationRequest{
			Enabled: c.OptimizationEnabled,
			Runs:    c.OptimizationRuns,
		}
	}
	if includeArtifact {
		resp.ABI = c.ABI
		resp.Bytecode = c.Bytecode
		resp.Source = c.Source
	}
	return resp
}

// ListResponse is the response for listing contracts.
type ListResponse struct {
	Data       []ContractResponse `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// Pagination provides pagination metadata.
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor"`
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
