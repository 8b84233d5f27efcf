package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Deploy(ctx context.Context, req DeployRequest) (*Deployment, error)
	ExecuteBatch(ctx context.Context, req BatchRequest) (*BatchSubmission, error)
	BatchStatus(ctx context.Context, batchID string) (*BatchStatus, error)
	Record(ctx context.Context, req RecordRequest) (*Deployment, error)
	Get(ctx context.Context, id string) (*Deployment, error)
	GetByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error)
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) Deploy(ctx context.Context, req DeployRequest) (*Deployment, error) {
	start := time.Now()
	d, err := m.next.Deploy(ctx, req)
	m.logger.Info("Deploy",
		"contract", req.Contract,
		"args", len(req.ConstructorArgs),
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) ExecuteBatch(ctx context.Context, req BatchRequest) (*BatchSubmission, error) {
	start := time.Now()
	sub, err := m.next.ExecuteBatch(ctx, req)
	m.logger.Info("ExecuteBatch",
		"calls", len(req.Calls),
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) BatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	start := time.Now()
	status, err := m.next.BatchStatus(ctx, batchID)
	m.logger.Debug("BatchStatus",
		"batchId", batchID,
		"duration", time.Since(start),
		"error", err,
	)
	return status, err
}

func (m *loggingMiddleware) Record(ctx context.Context, req RecordRequest) (*Deployment, error) {
	start := time.Now()
	d, err := m.next.Record(ctx, req)
	m.logger.Info("Record",
		"contract", req.Contract,
		"chainId", req.ChainID,
		"address", req.Address,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) Get(ctx context.Context, id string) (*Deployment, error) {
	start := time.Now()
	d, err := m.next.Get(ctx, id)
	m.logger.Debug("Get",
		"deployment", id,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) GetByAddress(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	start := time.Now()
	d, err := m.next.GetByAddress(ctx, chainID, address)
	m.logger.Debug("GetByAddress",
		"chainId", chainID,
		"address", address,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	start := time.Now()
	result, err := m.next.List(ctx, filter, pagination)
	m.logger.Debug("List",
		"contract", filter.Contract,
		"chainId", filter.ChainID,
		"limit", pagination.Limit,
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}
