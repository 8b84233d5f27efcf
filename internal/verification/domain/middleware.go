package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Submit(ctx context.Context, req SubmitRequest) (*Session, error)
	Status(ctx context.Context, guid string) (*Session, error)
	Await(ctx context.Context, guid string) (*Session, error)
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

func (m *loggingMiddleware) Submit(ctx context.Context, req SubmitRequest) (*Session, error) {
	start := time.Now()
	sess, err := m.next.Submit(ctx, req)
	m.logger.Info("Submit",
		"contract", req.Contract,
		"address", req.Address,
		"duration", time.Since(start),
		"error", err,
	)
	return sess, err
}

func (m *loggingMiddleware) Status(ctx context.Context, guid string) (*Session, error) {
	start := time.Now()
	sess, err := m.next.Status(ctx, guid)
	m.logger.Debug("Status",
		"guid", guid,
		"duration", time.Since(start),
		"error", err,
	)
	return sess, err
}

func (m *loggingMiddleware) Await(ctx context.Context, guid string) (*Session, error) {
	start := time.Now()
	sess, err := m.next.Await(ctx, guid)
	m.logger.Info("Await",
		"guid", guid,
		"duration", time.Since(start),
		"error", err,
	)
	return sess, err
}
