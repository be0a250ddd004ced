/*
referral.go - Exactly-once referrer bonus

When a new account signs up with a valid referral code, the referrer is
credited Economy.ReferralReward once per referred account. Retried
signup requests must not double-credit, so the guard is the ledger
itself: a referral entry whose reference is the referred account. The
lookup and the credit happen in the same transaction.
*/
package ledger

import "context"

// ReferralResult reports whether the bonus was newly credited.
type ReferralResult struct {
	Credited   bool
	NewBalance int64
}

// CreditReferral pays the referrer for bringing in the referred account.
// A second call with the same referred account is a no-op with
// Credited=false, not an error.
func (e *Engine) CreditReferral(ctx context.Context, referrer, referred AccountID) (ReferralResult, error) {
	if referrer == referred {
		return ReferralResult{}, ErrSelfTransfer
	}

	var res ReferralResult
	err := e.withConflictRetry(ctx, func() error {
		return e.Store.WithTx(ctx, func(s Store) error {
			existing, err := s.FindByReference(ctx, KindReferral, string(referred))
			if err != nil {
				return err
			}
			if existing != nil {
				acct, err := s.GetAccount(ctx, referrer)
				if err != nil {
					return err
				}
				res = ReferralResult{Credited: false, NewBalance: acct.Balance}
				return nil
			}

			acct, err := s.GetAccount(ctx, referrer)
			if err != nil {
				return err
			}
			res.NewBalance, err = s.AdjustBalance(ctx, referrer, e.Economy.ReferralReward, acct.Version)
			if err != nil {
				return err
			}
			res.Credited = true
			return s.Append(ctx, Entry{
				ID:           newEntryID(),
				AccountID:    referrer,
				Kind:         KindReferral,
				Amount:       e.Economy.ReferralReward,
				BalanceAfter: res.NewBalance,
				Ref:          UserRef(referred),
				CreatedAt:    e.Now(),
			})
		})
	})
	if err != nil {
		return ReferralResult{}, err
	}
	return res, nil
}
