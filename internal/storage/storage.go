package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pendergraft/veriforge/internal/config"
)

// ContractStore handles contract record operations
type ContractStore interface {
	CreateContract(ctx context.Context, c *Contract) error
	// FindContract treats its argument as a record id when it is a
	// well-formed record key, and as a human-readable name otherwise.
	FindContract(ctx context.Context, idOrName string) (*Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter, pagination PaginationParams) (*PaginatedResult[Contract], error)
	// DeleteContract resolves its argument by the same dual rule as
	// FindContract.
	DeleteContract(ctx context.Context, idOrName string) error
	ContractExists(ctx context.Context, name string) (bool, error)
}

// DeploymentStore handles deployment operations
type DeploymentStore interface {
	RecordDeployment(ctx context.Context, d *Deployment) error
	GetDeployment(ctx context.Context, id string) (*Deployment, error)
	// GetDeploymentByAddress compares addresses case-insensitively.
	GetDeploymentByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error)
	GetDeploymentByGUID(ctx context.Context, guid string) (*Deployment, error)
	ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error)
	UpdateVerification(ctx context.Context, id string, verified bool, guid string) error
}

// APIKeyStore handles API key operations
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	ContractStore
	DeploymentStore
	APIKeyStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Contract is a stored compiled-contract record: everything a deploy and a
// source verification need.
type Contract struct {
	ID                  string
	Name                string
	ABI                 string
	Bytecode            string
	Source              string
	CompilerVersion     string
	OptimizationEnabled bool
	OptimizationRuns    int
	EVMVersion          string
	CreatedAt           string
}

// Deployment represents a recorded deployment
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
	CreatedAt       string
}

// APIKey represents an API key
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// ContractFilter contains filter options for listing contracts
type ContractFilter struct {
	Query string
}

// DeploymentFilter contains filter options for listing deployments
type DeploymentFilter struct {
	ContractID string
	ChainID    int64
	Verified   *bool
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit  int
	Cursor string
}

// PaginatedResult contains paginated results
type PaginatedResult[T any] struct {
	Data       []T
	HasMore    bool
	NextCursor string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
