/*
Package social turns "has this user already acted on this target" into a
single store-enforced insert.

PURPOSE:
  Likes, bookmarks, follows, and quest completions are all the same
  shape: a (actor, target) pair that may exist at most once per action
  family. The pair's existence gates every one-time side effect -
  counter bumps, notifications, and point awards - so correctness here
  is what prevents double-counted likes and double-paid quests.

IDEMPOTENCY DISCIPLINE:
  TryCreate is an atomic "insert or report existing". The uniqueness
  constraint lives in the store, NOT in application code; a find-then-
  create check would race. A duplicate is a normal (false, nil) result,
  never an error, so callers are idempotent for free.

FAMILIES:
  like, bookmark, follow - undoable (Delete frees the pair)
  quest_complete         - permanent; it gates a one-time point award

SEE ALSO:
  - store/sqlite: unique index on (family, actor_id, target_id)
  - ledger: CompleteQuest awards points only on first insert
*/
package social

import (
	"context"
	"errors"

	"github.com/plutohq/loyalty-engine/ledger"
)

// =============================================================================
// FAMILIES
// =============================================================================

// Family is an action family with its own uniqueness space.
type Family string

const (
	FamilyLike          Family = "like"
	FamilyBookmark      Family = "bookmark"
	FamilyFollow        Family = "follow"
	FamilyQuestComplete Family = "quest_complete"
)

// Undoable reports whether the family supports Delete.
// Quest completions are permanent: they gate a one-time point award.
func (f Family) Undoable() bool { return f != FamilyQuestComplete }

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case FamilyLike, FamilyBookmark, FamilyFollow, FamilyQuestComplete:
		return true
	}
	return false
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownFamily is returned for a family outside the enum.
	ErrUnknownFamily = errors.New("unknown action family")

	// ErrPermanentAction is returned when Delete is called on a family
	// that does not support undo.
	ErrPermanentAction = errors.New("action family does not support undo")
)

// =============================================================================
// STORE
// =============================================================================

// Store persists (actor, target) pairs with store-enforced uniqueness.
type Store interface {
	// TryCreate inserts the pair. If it already exists, returns
	// (false, nil). Concurrent calls with the same pair produce exactly
	// one true result.
	TryCreate(ctx context.Context, f Family, actorID, targetID string) (created bool, err error)

	// Exists reports whether the pair is present.
	Exists(ctx context.Context, f Family, actorID, targetID string) (bool, error)

	// Delete removes the pair, freeing it for re-creation. Returns
	// (false, nil) if it wasn't present. Fails with ErrPermanentAction
	// for non-undoable families.
	Delete(ctx context.Context, f Family, actorID, targetID string) (deleted bool, err error)
}

// =============================================================================
// ACTIONS - Gate + consequence
// =============================================================================

// Actions composes the pair store with the points engine. The `created`
// result of TryCreate is the single gate for every one-time effect.
type Actions struct {
	Store  Store
	Engine *ledger.Engine
}

// Act records the pair. Callers fire their side effects (counters,
// notifications) only when created is true.
func (a *Actions) Act(ctx context.Context, f Family, actorID, targetID string) (created bool, err error) {
	if !f.Valid() {
		return false, ErrUnknownFamily
	}
	return a.Store.TryCreate(ctx, f, actorID, targetID)
}

// Undo removes the pair for undoable families.
func (a *Actions) Undo(ctx context.Context, f Family, actorID, targetID string) (deleted bool, err error) {
	if !f.Valid() {
		return false, ErrUnknownFamily
	}
	return a.Store.Delete(ctx, f, actorID, targetID)
}

// QuestResult reports a quest completion attempt.
type QuestResult struct {
	Completed  bool  // false if the quest was already completed
	Points     int64 // reward paid (0 when already completed)
	NewBalance int64
}

// CompleteQuest marks the quest done for the actor and pays the reward
// exactly once. A repeat completion is a no-op: the pair insert loses,
// so no second award can happen even under concurrent calls.
func (a *Actions) CompleteQuest(ctx context.Context, actor ledger.AccountID, questID string) (QuestResult, error) {
	created, err := a.Store.TryCreate(ctx, FamilyQuestComplete, string(actor), questID)
	if err != nil {
		return QuestResult{}, err
	}
	if !created {
		balance, err := a.Engine.Balance(ctx, actor)
		if err != nil {
			return QuestResult{}, err
		}
		return QuestResult{Completed: false, NewBalance: balance}, nil
	}

	reward := a.Engine.Economy.QuestCompleteReward
	balance, err := a.Engine.Earn(ctx, actor, reward, ledger.KindQuestComplete, ledger.QuestRef(questID), nil)
	if err != nil {
		return QuestResult{}, err
	}
	return QuestResult{Completed: true, Points: reward, NewBalance: balance}, nil
}
