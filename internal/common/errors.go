// Package common defines shared constants and sentinel errors used across
// the DocVault core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Startup/configuration errors. Fatal: the process must not start
	// with an absent or undersized master secret.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrIntegrity reports an authentication-tag or content-hash
	// mismatch. It may indicate tampering and is never downgraded.
	ErrIntegrity = errors.New("integrity check failed")

	// Lifecycle-policy denials. Expected, user-facing outcomes.
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrAlreadyReviewed   = errors.New("document already reviewed")
	ErrQuotaExceeded     = errors.New("deletion quota exceeded")
	ErrInvalidReason     = errors.New("deletion reason too short")

	// ErrConcurrentReviewConflict reports that a conditional delete
	// affected zero rows because a reviewer changed the document
	// status between the policy check and the physical delete.
	// A retryable conflict, not a failure.
	ErrConcurrentReviewConflict = errors.New("concurrent review conflict")

	// ErrAnchorSubmission reports a transient ledger submission
	// failure. The anchor queue retries it with backoff.
	ErrAnchorSubmission = errors.New("anchor submission failed")
)
