/*
errors.go - Centralized error taxonomy for the points core

ERROR CATEGORIES:
  1. Lookup errors     - ErrAccountNotFound
  2. Validation errors - ErrInvalidAmount, ErrSelfTransfer
  3. Balance errors    - ErrInsufficientPoints
  4. Scheduling errors - ErrClaimNotReady
  5. Store errors      - ErrConflict (CAS miss), ErrDuplicateReference

Only ErrConflict is retryable; the Engine retries it internally with a
bounded backoff before surfacing it. Everything else propagates to the
caller unchanged - this package never logs and never formats for users.

USAGE:
  if errors.Is(err, ledger.ErrInsufficientPoints) {
      var ipe *ledger.InsufficientPointsError
      if errors.As(err, &ipe) { ... ipe.Shortfall ... }
  }
*/
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientPoints is returned when a debit would drive the balance
	// negative. The balance is left unchanged and no entry is written.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidAmount is returned for non-positive, non-integer, or
	// out-of-range amounts. Never retried.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSelfTransfer is returned when a tip names the same account on
	// both sides.
	ErrSelfTransfer = errors.New("self transfer not allowed")

	// ErrClaimNotReady is returned when a daily claim is attempted before
	// the 24h window has elapsed.
	ErrClaimNotReady = errors.New("claim not yet available")

	// ErrConflict is returned by stores when a compare-and-set write loses
	// to a concurrent writer. The Engine retries this internally.
	ErrConflict = errors.New("concurrent write conflict")

	// ErrDuplicateReference is returned when an idempotency-guarded credit
	// (e.g. a referral bonus) already has a ledger entry for its reference.
	ErrDuplicateReference = errors.New("reference already credited")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientPointsError reports how short the account is.
type InsufficientPointsError struct {
	AccountID AccountID
	Available int64
	Requested int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: available %d, requested %d, short %d",
		e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientPointsError) Shortfall() int64 { return e.Requested - e.Available }

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }

// ClaimNotReadyError tells the caller when the next claim opens.
type ClaimNotReadyError struct {
	AccountID AccountID
	NextAt    time.Time
}

func (e *ClaimNotReadyError) Error() string {
	return fmt.Sprintf("claim not yet available: next at %s", e.NextAt.Format(time.RFC3339))
}

func (e *ClaimNotReadyError) Unwrap() error { return ErrClaimNotReady }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to the caller's input
// or account state rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrClaimNotReady) ||
		errors.Is(err, ErrDuplicateReference)
}

// IsNotFound returns true if the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
