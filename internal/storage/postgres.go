package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Contracts
	CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL UNIQUE,
		abi TEXT NOT NULL,
		bytecode TEXT NOT NULL,
		source TEXT,
		compiler_version TEXT,
		optimization_enabled BOOLEAN DEFAULT FALSE,
		optimization_runs INTEGER DEFAULT 200,
		evm_version TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- Deployments
	CREATE TABLE IF NOT EXISTS deployments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		contract_id UUID REFERENCES contracts(id) ON DELETE CASCADE,
		contract_name TEXT NOT NULL,
		chain_id BIGINT NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT,
		tx_hash TEXT,
		block_number BIGINT DEFAULT 0,
		constructor_args TEXT DEFAULT '',
		bytecode_match TEXT DEFAULT '',
		verified BOOLEAN DEFAULT FALSE,
		verify_guid TEXT DEFAULT '',
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE(chain_id, address)
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		scopes JSONB,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_contracts_name ON contracts(name);
	CREATE INDEX IF NOT EXISTS idx_deployments_contract ON deployments(contract_id);
	CREATE INDEX IF NOT EXISTS idx_deployments_lookup ON deployments(chain_id, address);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

// CreateContract creates a new contract record
func (s *PostgresStore) CreateContract(ctx context.Context, c *Contract) error {
	query := `
		INSERT INTO contracts (id, name, abi, bytecode, source, compiler_version, optimization_enabled, optimization_runs, evm_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.ABI, c.Bytecode, c.Source, c.CompilerVersion, c.OptimizationEnabled, c.OptimizationRuns, c.EVMVersion)
	return err
}

// FindContract retrieves a contract by record id or, when the argument is
// not a well-formed id, by name.
func (s *PostgresStore) FindContract(ctx context.Context, idOrName string) (*Contract, error) {
	query := `
		SELECT id, name, abi, bytecode, source, compiler_version, optimization_enabled, optimization_runs, evm_version, created_at
		FROM contracts
	`
	if isRecordID(idOrName) {
		query += ` WHERE id = $1`
	} else {
		query += ` WHERE name = $1`
	}
	var c Contract
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, idOrName).Scan(
		&c.ID, &c.Name, &c.ABI, &c.Bytecode, &c.Source, &c.CompilerVersion, &c.OptimizationEnabled, &c.OptimizationRuns, &c.EVMVersion, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err == nil {
		c.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	}
	return &c, err
}

// ListContracts lists contracts with filtering and pagination
func (s *PostgresStore) ListContracts(ctx context.Context, filter ContractFilter, pagination PaginationParams) (*PaginatedResult[Contract], error) {
	baseQuery := `
		SELECT id, name, abi, bytecode, source, compiler_version, optimization_enabled, optimization_runs, evm_version, created_at
		FROM contracts
	`

	var whereClauses []string
	var args []any
	argIdx := 1

	if pagination.Cursor != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("name > $%d", argIdx))
		args = append(args, pagination.Cursor)
		argIdx++
	}
	if filter.Query != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}

	query := baseQuery
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d", argIdx)
	args = append(args, pagination.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		var c Contract
		var createdAt time.Time
		if err := rows.Scan(&c.ID, &c.Name, &c.ABI, &c.Bytecode, &c.Source, &c.CompilerVersion, &c.OptimizationEnabled, &c.OptimizationRuns, &c.EVMVersion, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
		contracts = append(contracts, c)
	}

	hasMore := len(contracts) > pagination.Limit
	var nextCursor string
	if hasMore {
		contracts = contracts[:pagination.Limit]
	}
	if len(contracts) > 0 {
		nextCursor = contracts[len(contracts)-1].Name
	}

	return &PaginatedResult[Contract]{Data: contracts, HasMore: hasMore, NextCursor: nextCursor}, rows.Err()
}

// DeleteContract deletes a contract by record id or, when the argument is
// not a well-formed id, by name.
func (s *PostgresStore) DeleteContract(ctx context.Context, idOrName string) error {
	query := `DELETE FROM contracts WHERE id = $1`
	if !isRecordID(idOrName) {
		query = `DELETE FROM contracts WHERE name = $1`
	}
	res, err := s.db.ExecContext(ctx, query, idOrName)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ContractExists checks if a contract with the given name exists
func (s *PostgresStore) ContractExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contracts WHERE name = $1", name).Scan(&count)
	return count > 0, err
}

// RecordDeployment records a deployment
func (s *PostgresStore) RecordDeployment(ctx context.Context, d *Deployment) error {
	query := `
		INSERT INTO deployments (id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query, d.ID, d.ContractID, d.ContractName, d.ChainID, d.Address, d.DeployerAddress, d.TxHash, d.BlockNumber, d.ConstructorArgs, d.BytecodeMatch, d.Verified, d.VerifyGUID)
	return err
}

// GetDeployment retrieves a deployment by id
func (s *PostgresStore) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
		WHERE id = $1
	`
	var d Deployment
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err == nil {
		d.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	}
	return &d, err
}

// GetDeploymentByAddress retrieves a deployment by chain and address.
// Addresses compare case-insensitively since writers mix checksummed and
// lowercase hex.
func (s *PostgresStore) GetDeploymentByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
		WHERE chain_id = $1 AND LOWER(address) = LOWER($2)
	`
	var d Deployment
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, chainID, address).Scan(
		&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err == nil {
		d.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	}
	return &d, err
}

// GetDeploymentByGUID retrieves a deployment by its verification tracking GUID
func (s *PostgresStore) GetDeploymentByGUID(ctx context.Context, guid string) (*Deployment, error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
		WHERE verify_guid = $1
	`
	var d Deployment
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, guid).Scan(
		&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err == nil {
		d.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	}
	return &d, err
}

// ListDeployments lists deployments
func (s *PostgresStore) ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error) {
	baseQuery := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
	`

	var whereClauses []string
	var args []any
	argIdx := 1

	if filter.ContractID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("contract_id = $%d", argIdx))
		args = append(args, filter.ContractID)
		argIdx++
	}
	if filter.ChainID != 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("chain_id = $%d", argIdx))
		args = append(args, filter.ChainID)
		argIdx++
	}
	if filter.Verified != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("verified = $%d", argIdx))
		args = append(args, *filter.Verified)
		argIdx++
	}

	query := baseQuery
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, pagination.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		var d Deployment
		var createdAt time.Time
		if err := rows.Scan(&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &createdAt); err != nil {
			return nil, err
		}
		d.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
		deployments = append(deployments, d)
	}

	hasMore := len(deployments) > pagination.Limit
	if hasMore {
		deployments = deployments[:pagination.Limit]
	}

	return &PaginatedResult[Deployment]{Data: deployments, HasMore: hasMore}, rows.Err()
}

// UpdateVerification updates a deployment's verification status
func (s *PostgresStore) UpdateVerification(ctx context.Context, id string, verified bool, guid string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE deployments SET verified = $1, verify_guid = $2, verified_at = NOW() WHERE id = $3", verified, guid, id)
	return err
}

// CreateAPIKey creates a new API key
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name) VALUES ($1, $2, $3)", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err == nil {
		ak.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = NOW() WHERE id = $1", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var createdAt time.Time
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &createdAt, &lastUsed); err != nil {
			return nil, err
		}
		k.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.Time.Format("2006-01-02 15:04:05")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = NOW() WHERE id = $1", id)
	return err
}
