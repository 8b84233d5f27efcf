// Package transport provides HTTP request/response types for the
// verification domain.
package transport

import "github.com/pendergraft/veriforge/internal/verification/domain"

// VerifyRequest is the HTTP request body for submitting a verification.
// With wait set, the handler polls the submission to a terminal state
// before answering.
type VerifyRequest struct {
	Contract        string   `json:"contractId"`
	Address         string   `json:"contractAddress"`
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
	Wait            bool     `json:"wait,omitempty"`
}

// ToDomain converts VerifyRequest to domain.SubmitRequest.
func (r VerifyRequest) ToDomain() domain.SubmitRequest {
	return domain.SubmitRequest{
		Contract:        r.Contract,
		Address:         r.Address,
		ConstructorArgs: r.ConstructorArgs,
	}
}

// VerifyResponse answers a submission: whether it was accepted (or, with
// wait, whether it verified), the tracking GUID, and the session status.
type VerifyResponse struct {
	Success bool   `json:"success"`
	GUID    string `json:"guid,omitempty"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// StatusResponse answers a single status query for a tracking GUID.
type StatusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
