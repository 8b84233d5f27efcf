package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Contracts
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		abi TEXT NOT NULL,
		bytecode TEXT NOT NULL,
		source TEXT,
		compiler_version TEXT,
		optimization_enabled INTEGER DEFAULT 0,
		optimization_runs INTEGER DEFAULT 200,
		evm_version TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	);

	-- Deployments
	CREATE TABLE IF NOT EXISTS deployments (
		id TEXT PRIMARY KEY,
		contract_id TEXT REFERENCES contracts(id) ON DELETE CASCADE,
		contract_name TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT,
		tx_hash TEXT,
		block_number INTEGER DEFAULT 0,
		constructor_args TEXT DEFAULT '',
		bytecode_match TEXT DEFAULT '',
		verified INTEGER DEFAULT 0,
		verify_guid TEXT DEFAULT '',
		verified_at TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		UNIQUE(chain_id, address)
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		scopes TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
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
func (s *SQLiteStore) CreateContract(ctx context.Context, c *Contract) error {
	query := `
		INSERT INTO contracts (id, name, abi, bytecode, source, compiler_version, optimization_enabled, optimization_runs, evm_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.ABI, c.Bytecode, c.Source, c.CompilerVersion, c.OptimizationEnabled, c.OptimizationRuns, c.EVMVersion)
	return err
}

// FindContract retrieves a contract by record id or, when the argument is
// not a well-formed id, by name.
func (s *SQLiteStore) FindContract(ctx context.Context, idOrName string) (*Contract, error) {
	query := `
		SELECT id, name, abi, bytecode, source, compiler_version, optimization_enabled, optimization_runs, evm_version, created_at
		FROM contracts
	`
	if isRecordID(idOrName) {
		query += ` WHERE id = ?`
	} else {
		query += ` WHERE name = ?`
	}
	var c Contract
	err := s.db.QueryRowContext(ctx, query, idOrName).Scan(
		&c.ID, &c.Name, &c.ABI, &c.Bytecode, &c.Source, &c.CompilerVersion, &c.OptimizationEnabled, &c.OptimizationRuns, &c.EVMVersion, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &c, err
}

// ListContracts lists contracts with filtering and cursor-based pagination
func (s *SQLiteStore) ListContracts(ctx context.Context, filter ContractFilter, pagination PaginationParams) (*PaginatedResult[Contract], error) {
	var query string
	var args []any

	baseQuery := `
		SELECT id, name, abi, bytecode, source, compiler_version, optimization_enabled, optimization_runs, evm_version, created_at
		FROM contracts
	`
	orderBy := ` ORDER BY name`

	if pagination.Cursor != "" {
		if filter.Query != "" {
			query = baseQuery + ` WHERE name > ? AND name LIKE ?` + orderBy + ` LIMIT ?`
			args = []any{pagination.Cursor, "%" + filter.Query + "%", pagination.Limit + 1}
		} else {
			query = baseQuery + ` WHERE name > ?` + orderBy + ` LIMIT ?`
			args = []any{pagination.Cursor, pagination.Limit + 1}
		}
	} else {
		if filter.Query != "" {
			query = baseQuery + ` WHERE name LIKE ?` + orderBy + ` LIMIT ?`
			args = []any{"%" + filter.Query + "%", pagination.Limit + 1}
		} else {
			query = baseQuery + orderBy + ` LIMIT ?`
			args = []any{pagination.Limit + 1}
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		var c Contract
		if err := rows.Scan(&c.ID, &c.Name, &c.ABI, &c.Bytecode, &c.Source, &c.CompilerVersion, &c.OptimizationEnabled, &c.OptimizationRuns, &c.EVMVersion, &c.CreatedAt); err != nil {
			return nil, err
		}
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

	return &PaginatedResult[Contract]{
		Data:       contracts,
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}, rows.Err()
}

// DeleteContract deletes a contract by record id or, when the argument is
// not a well-formed id, by name.
func (s *SQLiteStore) DeleteContract(ctx context.Context, idOrName string) error {
	query := `DELETE FROM contracts WHERE id = ?`
	if !isRecordID(idOrName) {
		query = `DELETE FROM contracts WHERE name = ?`
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
func (s *SQLiteStore) ContractExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contracts WHERE name = ?", name).Scan(&count)
	return count > 0, err
}

// RecordDeployment records a deployment
func (s *SQLiteStore) RecordDeployment(ctx context.Context, d *Deployment) error {
	query := `
		INSERT INTO deployments (id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	`
	_, err := s.db.ExecContext(ctx, query, d.ID, d.ContractID, d.ContractName, d.ChainID, d.Address, d.DeployerAddress, d.TxHash, d.BlockNumber, d.ConstructorArgs, d.BytecodeMatch, d.Verified, d.VerifyGUID)
	return err
}

// GetDeployment retrieves a deployment by id
func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
		WHERE id = ?
	`
	var d Deployment
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &d, err
}

// GetDeploymentByAddress retrieves a deployment by chain and address.
// Addresses compare case-insensitively since writers mix checksummed and
// lowercase hex.
func (s *SQLiteStore) GetDeploymentByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
		WHERE chain_id = ? AND LOWER(address) = LOWER(?)
	`
	var d Deployment
	err := s.db.QueryRowContext(ctx, query, chainID, address).Scan(
		&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &d, err
}

// GetDeploymentByGUID retrieves a deployment by its verification tracking GUID
func (s *SQLiteStore) GetDeploymentByGUID(ctx context.Context, guid string) (*Deployment, error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
		WHERE verify_guid = ?
	`
	var d Deployment
	err := s.db.QueryRowContext(ctx, query, guid).Scan(
		&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &d, err
}

// ListDeployments lists deployments
func (s *SQLiteStore) ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error) {
	query := `
		SELECT id, contract_id, contract_name, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, bytecode_match, verified, verify_guid, created_at
		FROM deployments
	`
	var whereClauses []string
	var args []any

	if filter.ContractID != "" {
		whereClauses = append(whereClauses, "contract_id = ?")
		args = append(args, filter.ContractID)
	}
	if filter.ChainID != 0 {
		whereClauses = append(whereClauses, "chain_id = ?")
		args = append(args, filter.ChainID)
	}
	if filter.Verified != nil {
		whereClauses = append(whereClauses, "verified = ?")
		args = append(args, *filter.Verified)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, pagination.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		var d Deployment
		if err := rows.Scan(&d.ID, &d.ContractID, &d.ContractName, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber, &d.ConstructorArgs, &d.BytecodeMatch, &d.Verified, &d.VerifyGUID, &d.CreatedAt); err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}

	hasMore := len(deployments) > pagination.Limit
	if hasMore {
		deployments = deployments[:pagination.Limit]
	}

	return &PaginatedResult[Deployment]{Data: deployments, HasMore: hasMore}, rows.Err()
}

// UpdateVerification updates a deployment's verification status
func (s *SQLiteStore) UpdateVerification(ctx context.Context, id string, verified bool, guid string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE deployments SET verified = ?, verify_guid = ?, verified_at = datetime('now') WHERE id = ?", verified, guid, id)
	return err
}

// CreateAPIKey creates a new API key
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name, created_at) VALUES (?, ?, ?, datetime('now'))", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullString
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.String
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ?", id)
	return err
}
