// Package server provides the HTTP server setup and wiring.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/veriforge/internal/auth"
	"github.com/pendergraft/veriforge/internal/config"
	contractsDomain "github.com/pendergraft/veriforge/internal/contracts/domain"
	contractsTransport "github.com/pendergraft/veriforge/internal/contracts/transport"
	deploymentsDomain "github.com/pendergraft/veriforge/internal/deployments/domain"
	deploymentsTransport "github.com/pendergraft/veriforge/internal/deployments/transport"
	"github.com/pendergraft/veriforge/internal/explorer"
	"github.com/pendergraft/veriforge/internal/middleware/logging"
	"github.com/pendergraft/veriforge/internal/middleware/ratelimit"
	"github.com/pendergraft/veriforge/internal/middleware/realip"
	"github.com/pendergraft/veriforge/internal/middleware/security"
	"github.com/pendergraft/veriforge/internal/observability/metrics"
	"github.com/pendergraft/veriforge/internal/storage"
	verificationDomain "github.com/pendergraft/veriforge/internal/verification/domain"
	verificationTransport "github.com/pendergraft/veriforge/internal/verification/transport"
)

// Wallet is the signing backend handed to the deployments domain. It is
// constructed by the caller so the server does not own RPC credentials.
type Wallet = deploymentsDomain.Wallet

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	router *chi.Mux

	// Services typed via transport interfaces
	contractsSvc    contractsTransport.Service
	deploymentsSvc  deploymentsTransport.Service
	verificationSvc verificationTransport.Service
}

// New creates a new server. The wallet may be nil for read-only setups;
// deploy and batch endpoints then answer with NO_WALLET.
func New(cfg *config.Config, store storage.Store, w Wallet, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
		router: chi.NewRouter(),
	}

	// The explorer client is only built when an API key is configured.
	// Verification operations answer with NO_EXPLORER otherwise.
	var exp verificationDomain.Explorer
	if cfg.Explorer.APIKey != "" {
		exp = explorer.New(cfg.Explorer.APIURL, cfg.Explorer.APIKey, int(cfg.Chain.ChainID))
	}

	// Create domain services, each wrapped with logging middleware
	s.contractsSvc = contractsDomain.LoggingMiddleware(logger)(
		contractsDomain.NewService(store))
	s.deploymentsSvc = deploymentsDomain.LoggingMiddleware(logger)(
		deploymentsDomain.NewService(store, w))
	s.verificationSvc = verificationDomain.LoggingMiddleware(logger)(
		verificationDomain.NewService(store, exp, verificationDomain.Config{
			ChainID:      cfg.Chain.ChainID,
			PollInterval: time.Duration(cfg.Verify.PollIntervalSeconds) * time.Second,
			MaxAttempts:  cfg.Verify.MaxAttempts,
		}))

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

func (s *Server) setupMiddleware() {
	// Order matters! Security middleware runs first to block malicious requests early.

	// 1. Real IP extraction (must be first to set client IP for other middleware)
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Security filter (blocks malicious patterns, bypasses health checks)
	s.router.Use(security.FilterMiddleware(s.cfg.Security.FilterEnabled))

	// 3. Body size limit
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeMB))

	// 4. Rate limiting (bypasses health checks)
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	// 5. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// 6. CORS
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	// OpenAPI spec
	s.router.Get("/api/openapi.yaml", s.handleOpenAPISpec)

	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleHealth)

	// Create HTTP handlers for each domain
	contractsHandler := contractsTransport.NewHandler(s.contractsSvc)
	deploymentsHandler := deploymentsTransport.NewHandler(s.deploymentsSvc)
	verificationHandler := verificationTransport.NewHandler(s.verificationSvc)

	// Auth middleware for write operations
	requireAuth := func(r chi.Router) {
		if s.cfg.Auth.Type == "api-key" {
			r.Use(auth.Middleware(s.store, writeError))
		}
	}

	// Verification keeps its legacy top-level mount. Both routes stay open:
	// submission only forwards source the registry already holds.
	s.router.Route("/verify", func(r chi.Router) {
		verificationHandler.RegisterReadRoutes(r)
		verificationHandler.RegisterWriteRoutes(r)
	})

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Contracts - split read/write
		r.Route("/contracts", func(r chi.Router) {
			// Read operations - no auth required
			contractsHandler.RegisterReadRoutes(r)

			// Write operations - auth required
			r.Group(func(r chi.Router) {
				requireAuth(r)
				contractsHandler.RegisterWriteRoutes(r)
			})
		})

		// Deployments - split read/write
		r.Route("/deployments", func(r chi.Router) {
			// Read operations - no auth required
			deploymentsHandler.RegisterReadRoutes(r)

			// Write operations - auth required
			r.Group(func(r chi.Router) {
				requireAuth(r)
				deploymentsHandler.RegisterWriteRoutes(r)
			})
		})

		// Verification - same handlers as the top-level mount
		r.Route("/verify", func(r chi.Router) {
			verificationHandler.RegisterReadRoutes(r)
			verificationHandler.RegisterWriteRoutes(r)
		})
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOpenAPISpec serves the OpenAPI specification.
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "spec/openapi.yaml")
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
