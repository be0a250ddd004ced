package social_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plutohq/loyalty-engine/ledger"
	"github.com/plutohq/loyalty-engine/social"
	"github.com/plutohq/loyalty-engine/store/sqlite"
)

func newTestActions(t *testing.T) *social.Actions {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := ledger.NewEngine(store, ledger.DefaultEconomy())
	require.NoError(t, engine.CreateAccount(context.Background(), "alice"))
	return &social.Actions{Store: store, Engine: engine}
}

// =============================================================================
// IDEMPOTENT PAIRS
// =============================================================================

func TestAct_FirstCreatesSecondReportsExisting(t *testing.T) {
	a := newTestActions(t)
	ctx := context.Background()

	created, err := a.Act(ctx, social.FamilyLike, "alice", "post-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = a.Act(ctx, social.FamilyLike, "alice", "post-1")
	require.NoError(t, err)
	assert.False(t, created, "duplicate like is a no-op, not an error")
}

func TestAct_FamiliesAreIndependentUniquenessSpaces(t *testing.T) {
	a := newTestActions(t)
	ctx := context.Background()

	created, err := a.Act(ctx, social.FamilyLike, "alice", "post-1")
	require.NoError(t, err)
	assert.True(t, created)

	// Same pair, different family: still a fresh insert.
	created, err = a.Act(ctx, social.FamilyBookmark, "alice", "post-1")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestAct_UnknownFamily(t *testing.T) {
	a := newTestActions(t)

	_, err := a.Act(context.Background(), social.Family("repost"), "alice", "post-1")
	assert.ErrorIs(t, err, social.ErrUnknownFamily)
}

func TestAct_ConcurrentExactlyOneWinner(t *testing.T) {
	// GIVEN: 20 goroutines racing the same (actor, target) like
	// THEN: exactly one observes created=true

	a := newTestActions(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := a.Act(ctx, social.FamilyLike, "alice", "post-1")
			assert.NoError(t, err)
			if created {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

// =============================================================================
// UNDO
// =============================================================================

func TestUndo_FreesPairForRecreation(t *testing.T) {
	a := newTestActions(t)
	ctx := context.Background()

	created, err := a.Act(ctx, social.FamilyFollow, "alice", "bob")
	require.NoError(t, err)
	require.True(t, created)

	deleted, err := a.Undo(ctx, social.FamilyFollow, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = a.Undo(ctx, social.FamilyFollow, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, deleted, "second undo finds nothing")

	created, err = a.Act(ctx, social.FamilyFollow, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created, "pair is free again after undo")
}

func TestUndo_QuestCompletionIsPermanent(t *testing.T) {
	a := newTestActions(t)
	ctx := context.Background()

	_, err := a.Act(ctx, social.FamilyQuestComplete, "alice", "quest-1")
	require.NoError(t, err)

	_, err = a.Undo(ctx, social.FamilyQuestComplete, "alice", "quest-1")
	assert.ErrorIs(t, err, social.ErrPermanentAction)
}

// =============================================================================
// QUEST COMPLETION - Gate + award
// =============================================================================

func TestCompleteQuest_AwardsExactlyOnce(t *testing.T) {
	// GIVEN: alice completes quest-1, then the client retries
	// THEN: 25 points awarded once, one ledger entry

	a := newTestActions(t)
	ctx := context.Background()

	res, err := a.CompleteQuest(ctx, "alice", "quest-1")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, int64(25), res.Points)
	assert.Equal(t, int64(25), res.NewBalance)

	res, err = a.CompleteQuest(ctx, "alice", "quest-1")
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, int64(0), res.Points)
	assert.Equal(t, int64(25), res.NewBalance)

	entries, err := a.Engine.History(ctx, "alice", ledger.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindQuestComplete, entries[0].Kind)
	assert.Equal(t, "quest-1", entries[0].Ref.ID)
}

func TestCompleteQuest_ConcurrentSingleAward(t *testing.T) {
	a := newTestActions(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.CompleteQuest(ctx, "alice", "quest-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := a.Engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance, "reward paid exactly once")
}

func TestCompleteQuest_DistinctQuestsEachPay(t *testing.T) {
	a := newTestActions(t)
	ctx := context.Background()

	for _, quest := range []string{"quest-1", "quest-2", "quest-3"} {
		res, err := a.CompleteQuest(ctx, "alice", quest)
		require.NoError(t, err)
		assert.True(t, res.Completed)
	}

	balance, err := a.Engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(75), balance)
}
