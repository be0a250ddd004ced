/*
engine.go - The spend/earn operations: the only sanctioned balance writes

PURPOSE:
  Every balance change in the system goes through an Engine operation.
  Each operation is one atomic unit: compare-and-set the balance, then
  append the ledger entry that explains it, inside a single store
  transaction. Callers decide how many points an action is worth (or use
  the Economy defaults); the Engine guarantees the bookkeeping.

OPERATIONS:
  Spend     - debit with sufficiency check
  Earn      - credit
  Transfer  - tip: debit sender + credit recipient, both-or-neither
  Claim     - daily streak claim (claim.go)
  CreditReferral - exactly-once referrer bonus (referral.go)

CONCURRENCY:
  Two concurrent spends against the same account both read the balance,
  but only one compare-and-set wins; the loser gets ErrConflict and the
  Engine re-reads and retries, so the sufficiency check is always made
  against a balance that is current at commit time. Bounded retries
  (engine gives up after maxConflictRetries and surfaces ErrConflict).

INVARIANTS:
  - balance >= 0 always; a failing debit has no partial effect
  - exactly one entry per successful operation (two for Transfer)
  - Entry.BalanceAfter equals the balance the CAS write produced

SEE ALSO:
  - store.go: the transactional contract this file leans on
  - claim.go, referral.go: the stateful operations
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// maxConflictRetries bounds the internal ErrConflict retry loop.
const maxConflictRetries = 5

// Engine is the write path for loyalty points.
type Engine struct {
	Store   TxStore
	Economy Economy

	// Now is the clock for entry timestamps and claim windows.
	// Overridable in tests; defaults to UTC wall time.
	Now func() time.Time
}

// NewEngine creates an engine over the given store.
func NewEngine(store TxStore, eco Economy) *Engine {
	return &Engine{
		Store:   store,
		Economy: eco,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// ACCOUNT PLUMBING
// =============================================================================

// CreateAccount registers an account with balance 0.
func (e *Engine) CreateAccount(ctx context.Context, id AccountID) error {
	return e.Store.CreateAccount(ctx, id)
}

// Balance returns the live balance.
func (e *Engine) Balance(ctx context.Context, id AccountID) (int64, error) {
	acct, err := e.Store.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// History returns the account's ledger, newest first.
func (e *Engine) History(ctx context.Context, id AccountID, page Page) ([]Entry, error) {
	if _, err := e.Store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return e.Store.History(ctx, id, page.Clamp())
}

// =============================================================================
// SPEND / EARN
// =============================================================================

// Spend debits amount points and records why. amount must be positive.
// Returns the new balance. Fails atomically with ErrInsufficientPoints
// (no balance change, no entry) when the account is short.
func (e *Engine) Spend(ctx context.Context, id AccountID, amount int64, kind Kind, ref Reference, meta map[string]string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return e.apply(ctx, id, -amount, kind, ref, meta)
}

// Earn credits amount points. amount must be positive.
func (e *Engine) Earn(ctx context.Context, id AccountID, amount int64, kind Kind, ref Reference, meta map[string]string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return e.apply(ctx, id, amount, kind, ref, meta)
}

// apply is the single balance-write recipe: CAS the balance, append the
// entry carrying the resulting balance, commit together.
func (e *Engine) apply(ctx context.Context, id AccountID, delta int64, kind Kind, ref Reference, meta map[string]string) (int64, error) {
	var newBalance int64
	err := e.withConflictRetry(ctx, func() error {
		return e.Store.WithTx(ctx, func(s Store) error {
			acct, err := s.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			newBalance, err = s.AdjustBalance(ctx, id, delta, acct.Version)
			if err != nil {
				return err
			}
			return s.Append(ctx, Entry{
				ID:           newEntryID(),
				AccountID:    id,
				Kind:         kind,
				Amount:       delta,
				BalanceAfter: newBalance,
				Ref:          ref,
				Metadata:     meta,
				CreatedAt:    e.Now(),
			})
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// =============================================================================
// TRANSFER (tips)
// =============================================================================

// TransferResult reports both post-transfer balances.
type TransferResult struct {
	FromBalance int64
	ToBalance   int64
}

// Transfer moves amount points from one account to another ("tip").
// amount must be an integer in [Economy.MinTip, Economy.MaxTip] and the
// accounts must differ. The debit, the credit, and both ledger entries
// commit in one transaction: a crash or conflict can never destroy or
// mint points.
func (e *Engine) Transfer(ctx context.Context, from, to AccountID, amount int64, ref Reference) (TransferResult, error) {
	if from == to {
		return TransferResult{}, ErrSelfTransfer
	}
	if amount < e.Economy.MinTip || amount > e.Economy.MaxTip {
		return TransferResult{}, ErrInvalidAmount
	}

	var res TransferResult
	err := e.withConflictRetry(ctx, func() error {
		return e.Store.WithTx(ctx, func(s Store) error {
			sender, err := s.GetAccount(ctx, from)
			if err != nil {
				return err
			}
			recipient, err := s.GetAccount(ctx, to)
			if err != nil {
				return err
			}

			now := e.Now()

			res.FromBalance, err = s.AdjustBalance(ctx, from, -amount, sender.Version)
			if err != nil {
				return err
			}
			if err := s.Append(ctx, Entry{
				ID:           newEntryID(),
				AccountID:    from,
				Kind:         KindTipSent,
				Amount:       -amount,
				BalanceAfter: res.FromBalance,
				Ref:          ref,
				Metadata:     map[string]string{"counterparty": string(to)},
				CreatedAt:    now,
			}); err != nil {
				return err
			}

			res.ToBalance, err = s.AdjustBalance(ctx, to, amount, recipient.Version)
			if err != nil {
				return err
			}
			return s.Append(ctx, Entry{
				ID:           newEntryID(),
				AccountID:    to,
				Kind:         KindTipReceived,
				Amount:       amount,
				BalanceAfter: res.ToBalance,
				Ref:          ref,
				Metadata:     map[string]string{"counterparty": string(from)},
				CreatedAt:    now,
			})
		})
	})
	if err != nil {
		return TransferResult{}, err
	}
	return res, nil
}

// =============================================================================
// FIXED-COST CONVENIENCES
// =============================================================================

// LaunchCampaign charges the campaign-creation cost.
func (e *Engine) LaunchCampaign(ctx context.Context, id AccountID, campaignID string) (int64, error) {
	return e.Spend(ctx, id, e.Economy.CampaignLaunchCost, KindCampaignLaunch, CampaignRef(campaignID), nil)
}

// AddQuest charges the quest-addition cost.
func (e *Engine) AddQuest(ctx context.Context, id AccountID, questID string) (int64, error) {
	return e.Spend(ctx, id, e.Economy.QuestAddCost, KindCampaignQuestAdd, QuestRef(questID), nil)
}

// UseFeature charges the named AI feature's cost.
// Unknown feature names fail with ErrInvalidAmount.
func (e *Engine) UseFeature(ctx context.Context, id AccountID, feature string) (int64, error) {
	cost, ok := e.Economy.FeatureCost(feature)
	if !ok {
		return 0, ErrInvalidAmount
	}
	return e.Spend(ctx, id, cost, KindFeatureUse, FeatureRef(feature), nil)
}

// =============================================================================
// CONFLICT RETRY
// =============================================================================

// withConflictRetry re-runs fn on ErrConflict with a short linear backoff.
// Contention is not a logical error, so callers should rarely see it.
func (e *Engine) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
			}
		}
		err = fn()
		if !IsRetryable(err) {
			return err
		}
	}
	return err
}

func newEntryID() EntryID {
	return EntryID(uuid.NewString())
}
