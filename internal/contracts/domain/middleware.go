package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Register(ctx context.Context, req RegisterRequest) (*Contract, error)
	Get(ctx context.Context, idOrName string) (*Contract, error)
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)
	Delete(ctx context.Context, idOrName string) error
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

func (m *loggingMiddleware) Register(ctx context.Context, req RegisterRequest) (*Contract, error) {
	start := time.Now()
	c, err := m.next.Register(ctx, req)
	m.logger.Info("Register",
		"name", req.Name,
		"compilerVersion", req.CompilerVersion,
		"duration", time.Since(start),
		"error", err,
	)
	return c, err
}

func (m *loggingMiddleware) Get(ctx context.Context, idOrName string) (*Contract, error) {
	start := time.Now()
	c, err := m.next.Get(ctx, idOrName)
	m.logger.Debug("Get",
		"contract", idOrName,
		"duration", time.Since(start),
		"error", err,
	)
	return c, err
}

func (m *loggingMiddleware) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	start := time.Now()
	result, err := m.next.List(ctx, filter, pagination)
	m.logger.Debug("List",
		"query", filter.Query,
		"limit", pagination.Limit,
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, idOrName string) error {
	start := time.Now()
	err := m.next.Delete(ctx, idOrName)
	m.logger.Info("Delete",
		"contract", idOrName,
		"duration", time.Since(start),
		"error", err,
	)
	return err
}
