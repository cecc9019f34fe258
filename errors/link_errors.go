package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// LinkError is the structured error returned by every protocol operation.
// Code is the stable machine-readable taxonomy value; Description is safe to
// surface to API clients.
type LinkError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Status      int    `json:"-"`
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error taxonomy codes.
const (
	MissingParameter       = "missing_parameter"
	InvalidSignature       = "invalid_signature"
	InvalidOrExpiredToken  = "invalid_or_expired_token"
	NotVerified            = "not_verified"
	OracleUnavailable      = "oracle_unavailable"
	HandleResolutionFailed = "handle_resolution_failed"
	FinalizationFailed     = "finalization_failed"
	PersistenceFailure     = "persistence_failure"
	ReplayDetected         = "replay_detected"
	RateLimited            = "rate_limited"
)

func NewMissingParameter(description string) *LinkError {
	return &LinkError{Code: MissingParameter, Description: description, Status: http.StatusBadRequest}
}

func NewInvalidSignature() *LinkError {
	return &LinkError{Code: InvalidSignature, Description: "Invalid signature", Status: http.StatusUnauthorized}
}

func NewInvalidOrExpiredToken() *LinkError {
	return &LinkError{Code: InvalidOrExpiredToken, Description: "Invalid or expired verification token", Status: http.StatusBadRequest}
}

func NewNotVerified() *LinkError {
	return &LinkError{Code: NotVerified, Description: "Wallet not found or NFT not verified", Status: http.StatusNotFound}
}

func NewOracleUnavailable(description string) *LinkError {
	return &LinkError{Code: OracleUnavailable, Description: description, Status: http.StatusBadGateway}
}

func NewHandleResolutionFailed(description string) *LinkError {
	return &LinkError{Code: HandleResolutionFailed, Description: description, Status: http.StatusBadGateway}
}

func NewFinalizationFailed(description string) *LinkError {
	return &LinkError{Code: FinalizationFailed, Description: description, Status: http.StatusInternalServerError}
}

func NewPersistenceFailure(description string) *LinkError {
	return &LinkError{Code: PersistenceFailure, Description: description, Status: http.StatusInternalServerError}
}

func NewReplayDetected() *LinkError {
	return &LinkError{Code: ReplayDetected, Description: "Signed message already used or stale", Status: http.StatusUnauthorized}
}

func NewRateLimited() *LinkError {
	return &LinkError{Code: RateLimited, Description: "Too many requests", Status: http.StatusTooManyRequests}
}

// StatusOf maps any error to an HTTP status, defaulting to 500 for errors
// outside the taxonomy.
func StatusOf(err error) int {
	var le *LinkError
	if errors.As(err, &le) && le.Status != 0 {
		return le.Status
	}
	return http.StatusInternalServerError
}
