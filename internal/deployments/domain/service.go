// Package domain contains the business logic for deployment management.
package domain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/veriforge/internal/abicodec"
	"github.com/pendergraft/veriforge/internal/bytecode"
	"github.com/pendergraft/veriforge/internal/observability/metrics"
	"github.com/pendergraft/veriforge/internal/storage"
	"github.com/pendergraft/veriforge/internal/validation"
	"github.com/pendergraft/veriforge/internal/wallet"
)

// Common errors returned by the deployment service.
var (
	ErrNotFound         = errors.New("deployment not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidChainID   = errors.New("invalid chain ID")
	ErrEmptyBatch       = errors.New("batch has no calls")
	ErrUnlinkedLibrary  = errors.New("bytecode has unlinked library references")
	ErrNoWallet         = errors.New("no wallet configured")
)

// Service defines the deployment service operations.
type Service interface {
	// Deploy sends a contract-creation transaction for a stored contract,
	// waits for it to mine, and records the resulting deployment.
	Deploy(ctx context.Context, req DeployRequest) (*Deployment, error)

	// ExecuteBatch encodes the calls against their contracts' ABIs and
	// submits them as one atomic batch. Call order is execution order.
	ExecuteBatch(ctx context.Context, req BatchRequest) (*BatchSubmission, error)

	// BatchStatus fetches and classifies the receipt set of a batch.
	BatchStatus(ctx context.Context, batchID string) (*BatchStatus, error)

	// Record records a deployment made outside the service.
	Record(ctx context.Context, req RecordRequest) (*Deployment, error)

	// Get retrieves a deployment by id.
	Get(ctx context.Context, id string) (*Deployment, error)

	// GetByAddress retrieves a deployment by chain and contract address.
	GetByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error)

	// List lists deployments with filtering and pagination.
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)
}

// DeploymentStore defines the storage operations needed by the deployments
// domain.
type DeploymentStore interface {
	RecordDeployment(ctx context.Context, d *storage.Deployment) error
	GetDeployment(ctx context.Context, id string) (*storage.Deployment, error)
	GetDeploymentByAddress(ctx context.Context, chainID int64, address string) (*storage.Deployment, error)
	ListDeployments(ctx context.Context, filter storage.DeploymentFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Deployment], error)
	FindContract(ctx context.Context, idOrName string) (*storage.Contract, error)
}

// Wallet defines the signing operations needed by the deployments domain.
type Wallet interface {
	Address() common.Address
	ChainID() *big.Int
	Deploy(ctx context.Context, bytecode, constructorArgs []byte) (*wallet.DeployResult, error)
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)
	SendBatch(ctx context.Context, calls []wallet.Call) (string, error)
	BatchStatus(ctx context.Context, batchID string) (*wallet.BatchResult, error)
}

type service struct {
	store  DeploymentStore
	wallet Wallet
}

// NewService creates a new deployment service. The wallet may be nil for
// read-only setups; Deploy and batch operations then return ErrNoWallet.
func NewService(store DeploymentStore, w Wallet) Service {
	return &service{store: store, wallet: w}
}

// Deploy sends a contract-creation transaction and records the deployment.
func (s *service) Deploy(ctx context.Context, req DeployRequest) (*Deployment, error) {
	if s.wallet == nil {
		return nil, ErrNoWallet
	}

	contract, err := s.store.FindContract(ctx, req.Contract)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("getting contract: %w", err)
	}

	code := common.FromHex(contract.Bytecode)
	if bytecode.HasLibraryPlaceholders([]byte(contract.Bytecode)) {
		return nil, fmt.Errorf("%w: %s", ErrUnlinkedLibrary, contract.Name)
	}

	parsed, err := abicodec.ParseABI([]byte(contract.ABI))
	if err != nil {
		return nil, fmt.Errorf("parsing stored abi: %w", err)
	}
	args, err := abicodec.EncodeDeployArgs(parsed, req.ConstructorArgs)
	if err != nil {
		return nil, err
	}

	chain := s.wallet.ChainID().String()
	result, err := s.wallet.Deploy(ctx, code, args)
	if err != nil {
		metrics.DeploymentDeploy(chain, "error")
		return nil, fmt.Errorf("deploying %s: %w", contract.Name, err)
	}
	metrics.DeploymentDeploy(chain, "success")

	// Best effort: the transaction already mined, so a failed code fetch
	// leaves the match level unset rather than losing the record.
	match := ""
	if onchain, err := s.wallet.CodeAt(ctx, result.Address); err == nil {
		match = bytecode.MatchDeployed(onchain, code).MatchType
	}

	d := &storage.Deployment{
		ID:              generateID(),
		ContractID:      contract.ID,
		ContractName:    contract.Name,
		ChainID:         s.wallet.ChainID().Int64(),
		Address:         result.Address.Hex(),
		DeployerAddress: s.wallet.Address().Hex(),
		TxHash:          result.TxHash.Hex(),
		BlockNumber:     result.BlockNumber,
		ConstructorArgs: hex.EncodeToString(args),
		BytecodeMatch:   match,
	}
	if err := s.store.RecordDeployment(ctx, d); err != nil {
		return nil, fmt.Errorf("recording deployment: %w", err)
	}

	return s.Get(ctx, d.ID)
}

// ExecuteBatch encodes and submits calls as one atomic batch.
func (s *service) ExecuteBatch(ctx context.Context, req BatchRequest) (*BatchSubmission, error) {
	if s.wallet == nil {
		return nil, ErrNoWallet
	}
	if len(req.Calls) == 0 {
		return nil, ErrEmptyBatch
	}

	fragments := make([]abicodec.Fragment, 0, len(req.Calls))
	values := make([][]string, 0, len(req.Calls))
	for _, call := range req.Calls {
		contract, err := s.store.FindContract(ctx, call.Contract)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrContractNotFound, call.Contract)
			}
			return nil, fmt.Errorf("getting contract: %w", err)
		}
		if err := validation.ValidateAddress(call.Address); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}

		parsed, err := abicodec.ParseABI([]byte(contract.ABI))
		if err != nil {
			return nil, fmt.Errorf("parsing stored abi: %w", err)
		}
		frag, err := abicodec.NewFragment(parsed, call.Function, common.HexToAddress(call.Address))
		if err != nil {
			return nil, err
		}

		fragments = append(fragments, frag)
		values = append(values, call.Args)
	}

	calls, err := abicodec.BuildCalls(fragments, values)
	if err != nil {
		return nil, err
	}

	walletCalls := make([]wallet.Call, len(calls))
	for i, c := range calls {
		walletCalls[i] = wallet.Call{To: c.Target, Data: c.Data, Value: c.Value}
	}

	batchID, err := s.wallet.SendBatch(ctx, walletCalls)
	if err != nil {
		metrics.BatchExecute("error")
		return nil, fmt.Errorf("sending batch: %w", err)
	}
	metrics.BatchExecute("success")

	return &BatchSubmission{
		BatchID: batchID,
		ChainID: s.wallet.ChainID().Int64(),
		Calls:   len(calls),
	}, nil
}

// BatchStatus fetches and classifies the receipt set of a batch.
func (s *service) BatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	if s.wallet == nil {
		return nil, ErrNoWallet
	}

	result, err := s.wallet.BatchStatus(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetching batch status: %w", err)
	}

	status := &BatchStatus{
		BatchID: batchID,
		Status:  classifyBatch(result),
		Atomic:  result.Atomic,
	}
	for _, r := range result.Receipts {
		status.Receipts = append(status.Receipts, CallReceipt{
			TxHash:      r.TxHash.Hex(),
			BlockNumber: r.BlockNumber,
			GasUsed:     r.GasUsed,
			Success:     r.Status == 1,
		})
	}
	return status, nil
}

// classifyBatch reduces a receipt set to a batch state. A settled batch with
// no receipts never landed on chain, which with atomic submission means the
// whole batch failed or reverted.
func classifyBatch(result *wallet.BatchResult) string {
	if result.Pending {
		return BatchPending
	}
	if len(result.Receipts) == 0 {
		return BatchFailed
	}
	for _, r := range result.Receipts {
		if r.Status != 1 {
			return BatchFailed
		}
	}
	return BatchSuccess
}

// Record records a deployment made outside the service.
func (s *service) Record(ctx context.Context, req RecordRequest) (*Deployment, error) {
	if err := validation.ValidateAddress(req.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if err := validation.ValidateChainID(req.ChainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}

	contract, err := s.store.FindContract(ctx, req.Contract)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("getting contract: %w", err)
	}

	d := &storage.Deployment{
		ID:              generateID(),
		ContractID:      contract.ID,
		ContractName:    contract.Name,
		ChainID:         req.ChainID,
		Address:         req.Address,
		DeployerAddress: req.DeployerAddress,
		TxHash:          req.TxHash,
		BlockNumber:     req.BlockNumber,
		ConstructorArgs: req.ConstructorArgs,
	}
	if err := s.store.RecordDeployment(ctx, d); err != nil {
		metrics.DeploymentRecord(strconv.FormatInt(req.ChainID, 10), "error")
		return nil, fmt.Errorf("recording deployment: %w", err)
	}
	metrics.DeploymentRecord(strconv.FormatInt(req.ChainID, 10), "success")

	return s.Get(ctx, d.ID)
}

// Get retrieves a deployment by id.
func (s *service) Get(ctx context.Context, id string) (*Deployment, error) {
	d, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting deployment: %w", err)
	}
	return toDeployment(d), nil
}

// GetByAddress retrieves a deployment by chain and contract address.
func (s *service) GetByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	d, err := s.store.GetDeploymentByAddress(ctx, chainID, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting deployment: %w", err)
	}
	return toDeployment(d), nil
}

// List lists deployments with filtering and pagination.
func (s *service) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	contractID := ""
	if filter.Contract != "" {
		contract, err := s.store.FindContract(ctx, filter.Contract)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrContractNotFound
			}
			return nil, fmt.Errorf("getting contract: %w", err)
		}
		contractID = contract.ID
	}

	result, err := s.store.ListDeployments(ctx, storage.DeploymentFilter{
		ContractID: contractID,
		ChainID:    filter.ChainID,
		Verified:   filter.Verified,
	}, storage.PaginationParams{
		Limit:  pagination.Limit,
		Cursor: pagination.Cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	deployments := make([]Deployment, len(result.Data))
	for i, d := range result.Data {
		deployments[i] = *toDeployment(&d)
	}

	return &ListResult{
		Deployments: deployments,
		HasMore:     result.HasMore,
		NextCursor:  result.NextCursor,
	}, nil
}

func toDeployment(d *storage.Deployment) *Deployment {
	var createdAt time.Time
	if d.CreatedAt != "" {
		// Parse SQLite datetime format
		createdAt, _ = time.Parse("2006-01-02 15:04:05", d.CreatedAt)
	}
	return &Deployment{
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
		VerifyGUID:      d.VerifyGUID,
		CreatedAt:       createdAt,
	}
}
