// Package transport provides HTTP handlers for the contracts domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/veriforge/internal/contracts/domain"
)

// Service defines the contract service interface for HTTP transport.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Contract, error)
	Get(ctx context.Context, idOrName string) (*domain.Contract, error)
	List(ctx context.Context, filter domain.ListFilter, pagination domain.PaginationParams) (*domain.ListResult, error)
	Delete(ctx context.Context, idOrName string) error
}

// Handler handles HTTP requests for contracts.
type Handler struct {
	svc Service
}

// NewHandler creates a new contracts HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only contract routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{idOrName}", h.handleGet)
}

// RegisterWriteRoutes registers write contract routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleRegister)
	r.Delete("/{idOrName}", h.handleDelete)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	// Check size limit (10MB covers any realistic artifact)
	r.Body = http.MaxBytesReader(w, r.Body, 10*1024*1024)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	var req RegisterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARTIFACT", err.Error())
		return
	}

	c, err := h.svc.Register(r.Context(), domainReq)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrInvalidVersion):
			writeError(w, http.StatusBadRequest, "INVALID_VERSION", err.Error())
		case errors.Is(err, domain.ErrInvalidArtifact):
			writeError(w, http.StatusBadRequest, "INVALID_ARTIFACT", err.Error())
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "CONTRACT_EXISTS", "Contract name already registered")
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register contract")
		}
		return
	}

	writeJSON(w, http.StatusCreated, FromDomain(c, false))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	result, err := h.svc.List(r.Context(), domain.ListFilter{
		Query: r.URL.Query().Get("q"),
	}, domain.PaginationParams{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list contracts")
		return
	}

	data := make([]ContractResponse, len(result.Contracts))
	for i := range result.Contracts {
		data[i] = FromDomain(&result.Contracts[i], false)
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Data: data,
		Pagination: Pagination{
			Limit:      limit,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		},
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	idOrName := chi.URLParam(r, "idOrName")

	c, err := h.svc.Get(r.Context(), idOrName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get contract")
		return
	}

	writeJSON(w, http.StatusOK, FromDomain(c, true))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	idOrName := chi.URLParam(r, "idOrName")

	if err := h.svc.Delete(r.Context(), idOrName); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete contract")
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
