// Package transport provides HTTP handlers for the deployments domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/veriforge/internal/abicodec"
	"github.com/pendergraft/veriforge/internal/deployments/domain"
)

// Service defines the deployment service interface for HTTP transport.
type Service interface {
	Deploy(ctx context.Context, req domain.DeployRequest) (*domain.Deployment, error)
	ExecuteBatch(ctx context.Context, req domain.BatchRequest) (*domain.BatchSubmission, error)
	BatchStatus(ctx context.Context, batchID string) (*domain.BatchStatus, error)
	Record(ctx context.Context, req domain.RecordRequest) (*domain.Deployment, error)
	Get(ctx context.Context, id string) (*domain.Deployment, error)
	GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Deployment, error)
	List(ctx context.Context, filter domain.ListFilter, pagination domain.PaginationParams) (*domain.ListResult, error)
}

// Handler handles HTTP requests for deployments.
type Handler struct {
	svc Service
}

// NewHandler creates a new deployments HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only deployment routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/batch/{batchId}", h.handleBatchStatus)
	r.Get("/{id}", h.handleGet)
	r.Get("/{chainId}/{address}", h.handleGetByAddress)
}

// RegisterWriteRoutes registers write deployment routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleRecord)
	r.Post("/deploy", h.handleDeploy)
	r.Post("/batch", h.handleBatch)
}

func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := h.svc.Deploy(r.Context(), req.ToDomain())
	if err != nil {
		writeDomainError(w, err, "Failed to deploy contract")
		return
	}

	writeJSON(w, http.StatusCreated, FromDomain(d))
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := h.svc.ExecuteBatch(r.Context(), req.ToDomain())
	if err != nil {
		writeDomainError(w, err, "Failed to execute batch")
		return
	}

	writeJSON(w, http.StatusAccepted, BatchSubmissionResponse{
		BatchID: sub.BatchID,
		ChainID: sub.ChainID,
		Calls:   sub.Calls,
	})
}

func (h *Handler) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchId")

	status, err := h.svc.BatchStatus(r.Context(), batchID)
	if err != nil {
		writeDomainError(w, err, "Failed to fetch batch status")
		return
	}

	resp := BatchStatusResponse{
		BatchID:  status.BatchID,
		Status:   status.Status,
		Atomic:   status.Atomic,
		Receipts: make([]ReceiptResponse, len(status.Receipts)),
	}
	for i, rcpt := range status.Receipts {
		resp.Receipts[i] = ReceiptResponse{
			TxHash:      rcpt.TxHash,
			BlockNumber: rcpt.BlockNumber,
			GasUsed:     rcpt.GasUsed,
			Success:     rcpt.Success,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := h.svc.Record(r.Context(), req.ToDomain())
	if err != nil {
		writeDomainError(w, err, "Failed to record deployment")
		return
	}

	writeJSON(w, http.StatusCreated, FromDomain(d))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get deployment")
		return
	}

	writeJSON(w, http.StatusOK, FromDomain(d))
}

func (h *Handler) handleGetByAddress(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseInt(chi.URLParam(r, "chainId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid chain ID")
		return
	}
	address := chi.URLParam(r, "address")

	d, err := h.svc.GetByAddress(r.Context(), chainID, address)
	if err != nil {
		writeDomainError(w, err, "Failed to get deployment")
		return
	}

	writeJSON(w, http.StatusOK, FromDomain(d))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var chainID int64
	if c := r.URL.Query().Get("chainId"); c != "" {
		chainID, _ = strconv.ParseInt(c, 10, 64)
	}

	var verified *bool
	if v := r.URL.Query().Get("verified"); v != "" {
		b := v == "true"
		verified = &b
	}

	result, err := h.svc.List(r.Context(), domain.ListFilter{
		Contract: r.URL.Query().Get("contract"),
		ChainID:  chainID,
		Verified: verified,
	}, domain.PaginationParams{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		writeDomainError(w, err, "Failed to list deployments")
		return
	}

	data := make([]DeploymentResponse, len(result.Deployments))
	for i := range result.Deployments {
		data[i] = FromDomain(&result.Deployments[i])
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

// Helper functions

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1*1024*1024)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return false
	}
	return true
}

// writeDomainError maps service errors onto HTTP status codes. Argument and
// encoding problems from call building surface as 400s with the precise
// message, so a client can tell which fragment was at fault.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var verr *abicodec.ValidationError
	var eerr *abicodec.EncodingError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Deployment not found")
	case errors.Is(err, domain.ErrContractNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Contract not found")
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidChainID),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrUnlinkedLibrary):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "ARGUMENT_MISMATCH", err.Error())
	case errors.As(err, &eerr):
		writeError(w, http.StatusBadRequest, "ENCODING_FAILED", err.Error())
	case errors.Is(err, abicodec.ErrUnknownFunction):
		writeError(w, http.StatusBadRequest, "UNKNOWN_FUNCTION", err.Error())
	case errors.Is(err, domain.ErrNoWallet):
		writeError(w, http.StatusServiceUnavailable, "NO_WALLET", "Deployment wallet is not configured")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

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
