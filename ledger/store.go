/*
store.go - Persistence interfaces for accounts and ledger entries

PURPOSE:
  Defines the boundary between the Engine and the database. Two
  implementations exist: store/sqlite (production) and store/memory
  (tests/dev). Both enforce the same contract.

APPEND-ONLY CONTRACT:
  Entries have exactly one write operation, Append. There is no Update
  and no Delete; corrections are new admin_adjust entries.

COMPARE-AND-SET:
  AdjustBalance takes the Version the caller read. If the row's version
  has moved, the store returns ErrConflict and writes nothing. Combined
  with WithTx this is what makes "check balance, debit, append entry"
  safe against concurrent spends on the same account.

ATOMICITY:
  WithTx runs a function against a transactional view of the store.
  Every Engine operation does its balance write and its entry append
  inside one WithTx - a crash between the two halves can never be
  observed, and a tip's debit and credit commit together or not at all.

SEE ALSO:
  - engine.go: the only caller of these interfaces
  - store/sqlite/sqlite.go, store/memory/memory.go: implementations
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Accounts + append-only entries
// =============================================================================

// Store persists accounts and ledger entries.
type Store interface {
	// CreateAccount inserts an account with balance 0. Creating an
	// account that already exists is a no-op.
	CreateAccount(ctx context.Context, id AccountID) error

	// GetAccount returns the live account record.
	// Fails with ErrAccountNotFound.
	GetAccount(ctx context.Context, id AccountID) (Account, error)

	// AdjustBalance applies delta (signed) to the account's balance and
	// returns the new balance. Fails with:
	//   - ErrAccountNotFound if the account does not exist
	//   - ErrConflict if the row's version != expectedVersion
	//   - InsufficientPointsError if the result would be negative
	// On any failure the balance is untouched.
	AdjustBalance(ctx context.Context, id AccountID, delta int64, expectedVersion int64) (int64, error)

	// SetClaimState records the daily-claim bookkeeping. Called only by
	// Engine.Claim, inside the same transaction as the claim's credit.
	SetClaimState(ctx context.Context, id AccountID, lastClaimAt time.Time, streak int) error

	// Append persists an entry. Entries are immutable; this is the ONLY
	// entry write operation.
	Append(ctx context.Context, e Entry) error

	// History returns the account's entries newest-first. Stateless
	// pagination: the same page request always starts from the top.
	History(ctx context.Context, id AccountID, page Page) ([]Entry, error)

	// FindByReference returns the first entry with the given kind and
	// reference id, or nil if none exists. Used for exactly-once credits
	// (referral bonuses) under retried requests.
	FindByReference(ctx context.Context, kind Kind, refID string) (*Entry, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore is a Store that can compose multiple writes atomically.
// If fn returns an error the transaction is rolled back; otherwise it
// commits. The Store passed to fn is only valid inside fn.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
