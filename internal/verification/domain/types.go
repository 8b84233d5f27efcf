// Package domain contains the business logic for source verification.
package domain

import "time"

// Session states reported to callers. The first four mirror the explorer's
// answers; timeout is produced locally when the attempt budget runs out.
const (
	StatusVerified        = "verified"
	StatusAlreadyVerified = "already_verified"
	StatusPending         = "pending"
	StatusFailed          = "failed"
	StatusTimeout         = "timeout"
)

// SubmitRequest asks for one source verification of a deployed contract.
type SubmitRequest struct {
	Contract        string   `json:"contractId"`
	Address         string   `json:"contractAddress"`
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
}

// Session is one verification submission as seen by the caller: the
// explorer's tracking GUID, the current state, and the service's last
// human-readable detail text.
type Session struct {
	GUID   string `json:"guid"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Config carries the explorer-facing settings of the verification service.
// Zero values fall back to the defaults in NewService.
type Config struct {
	ChainID      int64
	PollInterval time.Duration
	MaxAttempts  int
}
