// Package domain contains the business logic for contract registration.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pendergraft/veriforge/internal/abicodec"
	"github.com/pendergraft/veriforge/internal/observability/metrics"
	"github.com/pendergraft/veriforge/internal/storage"
	"github.com/pendergraft/veriforge/internal/validation"
)

// Common errors returned by the contract service.
var (
	ErrNotFound        = errors.New("contract not found")
	ErrAlreadyExists   = errors.New("contract already exists")
	ErrInvalidName     = errors.New("invalid contract name")
	ErrInvalidVersion  = errors.New("invalid compiler version")
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// Service defines the contract service operations.
type Service interface {
	// Register registers a new contract from a normalized artifact.
	Register(ctx context.Context, req RegisterRequest) (*Contract, error)

	// Get retrieves a contract by record id or name.
	Get(ctx context.Context, idOrName string) (*Contract, error)

	// List lists contracts with filtering and pagination.
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)

	// Delete removes a contract by record id or name.
	Delete(ctx context.Context, idOrName string) error
}

// ContractStore defines the storage operations needed by the contracts domain.
type ContractStore interface {
	CreateContract(ctx context.Context, c *storage.Contract) error
	FindContract(ctx context.Context, idOrName string) (*storage.Contract, error)
	ListContracts(ctx context.Context, filter storage.ContractFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Contract], error)
	DeleteContract(ctx context.Context, idOrName string) error
	ContractExists(ctx context.Context, name string) (bool, error)
}

type service struct {
	store ContractStore
}

// NewService creates a new contract service.
func NewService(store ContractStore) Service {
	return &service{store: store}
}

// Register registers a new contract.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*Contract, error) {
	if err := validation.ValidateContractName(req.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	// The ABI must parse into the call model; everything downstream
	// (deploys, batches, verification) builds on it.
	if _, err := abicodec.ParseABI(req.ABI); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := validation.ValidateBytecode(req.Bytecode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if req.CompilerVersion != "" {
		if err := validation.ValidateCompilerVersion(req.CompilerVersion); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, err)
		}
	}

	exists, err := s.store.ContractExists(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	c := &storage.Contract{
		ID:                  generateID(),
		Name:                req.Name,
		ABI:                 string(req.ABI),
		Bytecode:            req.Bytecode,
		Source:              req.Source,
		CompilerVersion:     req.CompilerVersion,
		OptimizationEnabled: req.OptimizationEnabled,
		OptimizationRuns:    req.OptimizationRuns,
		EVMVersion:          req.EVMVersion,
	}

	if err := s.store.CreateContract(ctx, c); err != nil {
		metrics.ContractRegister("error")
		return nil, fmt.Errorf("creating contract: %w", err)
	}
	metrics.ContractRegister("success")

	return s.Get(ctx, c.ID)
}

// Get retrieves a contract by record id or name.
func (s *service) Get(ctx context.Context, idOrName string) (*Contract, error) {
	c, err := s.store.FindContract(ctx, idOrName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting contract: %w", err)
	}
	return toContract(c), nil
}

// List lists contracts with filtering and pagination.
func (s *service) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	result, err := s.store.ListContracts(ctx, storage.ContractFilter{
		Query: filter.Query,
	}, storage.PaginationParams{
		Limit:  pagination.Limit,
		Cursor: pagination.Cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}

	contracts := make([]Contract, len(result.Data))
	for i, c := range result.Data {
		contracts[i] = *toContract(&c)
	}

	return &ListResult{
		Contracts:  contracts,
		HasMore:    result.HasMore,
		NextCursor: result.NextCursor,
	}, nil
}

// Delete removes a contract by record id or name.
func (s *service) Delete(ctx context.Context, idOrName string) error {
	if err := s.store.DeleteContract(ctx, idOrName); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		metrics.ContractDelete("error")
		return fmt.Errorf("deleting contract: %w", err)
	}
	metrics.ContractDelete("success")
	return nil
}

func toContract(c *storage.Contract) *Contract {
	var createdAt time.Time
	if c.CreatedAt != "" {
		// Parse SQLite datetime format
		createdAt, _ = time.Parse("2006-01-02 15:04:05", c.CreatedAt)
	}
	return &Contract{
		ID:                  c.ID,
		Name:                c.Name,
		ABI:                 []byte(c.ABI),
		Bytecode:            c.Bytecode,
		Source:              c.Source,
		CompilerVersion:     c.CompilerVersion,
		OptimizationEnabled: c.OptimizationEnabled,
		OptimizationRuns:    c.OptimizationRuns,
		EVMVersion:          c.EVMVersion,
		CreatedAt:           createdAt,
	}
}
