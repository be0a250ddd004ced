/*
claim.go - Daily claim streak

SCHEDULE:
  elapsed = now - lastClaimAt
    elapsed < 24h          -> ClaimNotReadyError (NextAt = lastClaimAt+24h)
    no prior claim         -> day 1
    elapsed >= 48h         -> day 1 (streak broken)
    otherwise              -> day = min(streak+1, 7)
  points = Economy.DailyClaim[day-1]

The day-7 plateau is intentional: streaks longer than a week keep paying
the day-7 amount until the streak breaks.

The credit, the entry, and the claim-state write (lastClaimAt, streak)
commit in one transaction.
*/
package ledger

import (
	"context"
	"strconv"
	"time"
)

const (
	claimWindow = 24 * time.Hour
	streakReset = 48 * time.Hour
	maxStreak   = 7
)

// ClaimResult reports a successful daily claim.
type ClaimResult struct {
	Points     int64
	Day        int
	NewBalance int64
}

// Claim awards the account its daily points if the 24h window has
// elapsed, advancing or resetting the streak.
func (e *Engine) Claim(ctx context.Context, id AccountID) (ClaimResult, error) {
	var res ClaimResult
	err := e.withConflictRetry(ctx, func() error {
		return e.Store.WithTx(ctx, func(s Store) error {
			acct, err := s.GetAccount(ctx, id)
			if err != nil {
				return err
			}

			now := e.Now()
			day, err := nextClaimDay(acct, now)
			if err != nil {
				return err
			}
			points := e.Economy.DailyClaim[day-1]

			res.Day = day
			res.Points = points
			res.NewBalance, err = s.AdjustBalance(ctx, id, points, acct.Version)
			if err != nil {
				return err
			}
			if err := s.Append(ctx, Entry{
				ID:           newEntryID(),
				AccountID:    id,
				Kind:         KindDailyClaim,
				Amount:       points,
				BalanceAfter: res.NewBalance,
				Ref:          DailyClaimRef(string(id)),
				Metadata:     map[string]string{"day": strconv.Itoa(day)},
				CreatedAt:    now,
			}); err != nil {
				return err
			}
			return s.SetClaimState(ctx, id, now, day)
		})
	})
	if err != nil {
		return ClaimResult{}, err
	}
	return res, nil
}

// nextClaimDay computes which streak day a claim at 'now' would be,
// or fails if the window hasn't elapsed.
func nextClaimDay(acct Account, now time.Time) (int, error) {
	if acct.LastClaimAt == nil {
		return 1, nil
	}
	elapsed := now.Sub(*acct.LastClaimAt)
	if elapsed < claimWindow {
		return 0, &ClaimNotReadyError{AccountID: acct.ID, NextAt: acct.LastClaimAt.Add(claimWindow)}
	}
	if elapsed >= streakReset {
		return 1, nil
	}
	day := acct.Streak + 1
	if day > maxStreak {
		day = maxStreak
	}
	return day, nil
}
