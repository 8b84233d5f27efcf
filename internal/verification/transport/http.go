package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/veriforge/internal/abicodec"
	"github.com/pendergraft/veriforge/internal/explorer"
	"github.com/pendergraft/veriforge/internal/verification/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Session, error)
	Status(ctx context.Context, guid string) (*domain.Session, error)
	Await(ctx context.Context, guid string) (*domain.Session, error)
}

// Handler handles HTTP requests for verification.
type Handler struct {
	svc Service
}

// NewHandler creates a new verification HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers the read-only verification routes.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleStatus)
}

// RegisterWriteRoutes registers the verification routes that submit work.
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleSubmit)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.svc.Submit(r.Context(), req.ToDomain())
	if err != nil {
		var rejected *explorer.RejectedError
		if errors.As(err, &rejected) {
			// The submission reached the verifier and was turned down. That
			// is an answer, not a transport failure: report it with the
			// service's reason verbatim.
			writeJSON(w, http.StatusOK, VerifyResponse{
				Success: false,
				Status:  domain.StatusFailed,
				Detail:  rejected.Detail,
			})
			return
		}
		writeDomainError(w, err, "Failed to submit verification")
		return
	}

	if req.Wait {
		sess, err = h.svc.Await(r.Context(), sess.GUID)
		if err != nil {
			writeDomainError(w, err, "Failed to poll verification status")
			return
		}
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Success: !req.Wait || settledVerified(sess.Status),
		GUID:    sess.GUID,
		Status:  sess.Status,
		Detail:  sess.Detail,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	guid := r.URL.Query().Get("guid")
	if guid == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing guid parameter")
		return
	}

	sess, err := h.svc.Status(r.Context(), guid)
	if err != nil {
		writeDomainError(w, err, "Failed to query verification status")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Success: settledVerified(sess.Status),
		Status:  sess.Status,
		Detail:  sess.Detail,
	})
}

// settledVerified reports whether a session status means the source is
// verified on the explorer, whether by this submission or an earlier one.
func settledVerified(status string) bool {
	return status == domain.StatusVerified || status == domain.StatusAlreadyVerified
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

// writeDomainError maps service errors onto HTTP status codes. Encoding
// problems surface as 400s with the precise message so the caller can tell
// which constructor value was at fault.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var verr *abicodec.ValidationError
	var eerr *abicodec.EncodingError

	switch {
	case errors.Is(err, domain.ErrContractNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Contract not found")
	case errors.Is(err, domain.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrNoSource):
		writeError(w, http.StatusBadRequest, "NO_SOURCE", "Contract has no source code to verify")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "ARGUMENT_MISMATCH", err.Error())
	case errors.As(err, &eerr):
		writeError(w, http.StatusBadRequest, "ENCODING_FAILED", err.Error())
	case errors.Is(err, domain.ErrNoExplorer):
		writeError(w, http.StatusServiceUnavailable, "NO_EXPLORER", "Verification service is not configured")
	case errors.Is(err, explorer.ErrMalformedResponse):
		writeError(w, http.StatusBadGateway, "EXPLORER_ERROR", err.Error())
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
