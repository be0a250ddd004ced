package agora_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plutohq/loyalty-engine/agora"
	"github.com/plutohq/loyalty-engine/store/sqlite"
)

func newTestAgora(t *testing.T) *agora.Agora {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return agora.New(store)
}

// =============================================================================
// CONVERSATION IDENTITY
// =============================================================================

func TestGetOrCreate_UnorderedPairResolvesToOneConversation(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	c1, err := ag.GetOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, agora.ParticipantID("alice"), c1.ParticipantLow)
	assert.Equal(t, agora.ParticipantID("bob"), c1.ParticipantHigh)

	c2, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID, "{A,B} and {B,A} are the same thread")
}

func TestGetOrCreate_SelfConversationRejected(t *testing.T) {
	ag := newTestAgora(t)

	_, err := ag.GetOrCreate(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, agora.ErrSelfConversation)
}

func TestGetOrCreate_ConcurrentFirstContact(t *testing.T) {
	// GIVEN: both directions race first contact
	// THEN: every caller lands on the same conversation id

	ag := newTestAgora(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)
	for i := 0; i < 10; i++ {
		a, b := agora.ParticipantID("alice"), agora.ParticipantID("bob")
		if i%2 == 1 {
			a, b = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := ag.GetOrCreate(ctx, a, b)
			assert.NoError(t, err)
			mu.Lock()
			ids[c.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1, "exactly one conversation row wins")
}

func TestGetOrCreate_DistinctPairsGetDistinctConversations(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	ab, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	ac, err := ag.GetOrCreate(ctx, "alice", "carol")
	require.NoError(t, err)

	assert.NotEqual(t, ab.ID, ac.ID)
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestAppendMessage_ParticipantsOnly(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	c, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	m, err := ag.AppendMessage(ctx, c.ID, "alice", "  hello bob  ")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", m.Content, "content is trimmed")
	assert.Equal(t, agora.ParticipantID("alice"), m.SenderID)

	_, err = ag.AppendMessage(ctx, c.ID, "mallory", "let me in")
	assert.ErrorIs(t, err, agora.ErrNotParticipant)
}

func TestAppendMessage_ContentBounds(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	c, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = ag.AppendMessage(ctx, c.ID, "alice", "   ")
	assert.ErrorIs(t, err, agora.ErrContentEmpty)

	_, err = ag.AppendMessage(ctx, c.ID, "alice", strings.Repeat("x", agora.MaxContentLength+1))
	assert.ErrorIs(t, err, agora.ErrContentTooLong)

	// Exactly at the limit is fine.
	_, err = ag.AppendMessage(ctx, c.ID, "alice", strings.Repeat("x", agora.MaxContentLength))
	assert.NoError(t, err)
}

func TestAppendMessage_BumpsUpdatedAt(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ag.Now = func() time.Time { return now }

	c, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	_, err = ag.AppendMessage(ctx, c.ID, "bob", "hi")
	require.NoError(t, err)

	refreshed, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, now, refreshed.UpdatedAt.UTC())
	assert.True(t, refreshed.UpdatedAt.After(refreshed.CreatedAt))
}

func TestMessages_OldestFirstWithPaging(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	c, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := ag.AppendMessage(ctx, c.ID, "alice", content)
		require.NoError(t, err)
	}

	msgs, err := ag.Messages(ctx, c.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)

	msgs, err = ag.Messages(ctx, c.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "three", msgs[0].Content)
}

func TestMessages_UnknownConversation(t *testing.T) {
	ag := newTestAgora(t)

	_, err := ag.Messages(context.Background(), "no-such-id", 10, 0)
	assert.ErrorIs(t, err, agora.ErrConversationNotFound)
}

// =============================================================================
// EDIT / DELETE - Author only
// =============================================================================

func TestEditMessage_AuthorOnlySetsEditedAt(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	c, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	m, err := ag.AppendMessage(ctx, c.ID, "alice", "helo")
	require.NoError(t, err)
	require.Nil(t, m.EditedAt)

	_, err = ag.EditMessage(ctx, m.ID, "bob", "hijacked")
	assert.ErrorIs(t, err, agora.ErrNotAuthor)

	edited, err := ag.EditMessage(ctx, m.ID, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Content)
	require.NotNil(t, edited.EditedAt)

	msgs, err := ag.Messages(ctx, c.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.NotNil(t, msgs[0].EditedAt)
}

func TestDeleteMessage_AuthorOnly(t *testing.T) {
	ag := newTestAgora(t)
	ctx := context.Background()

	c, err := ag.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	m, err := ag.AppendMessage(ctx, c.ID, "alice", "oops")
	require.NoError(t, err)

	err = ag.DeleteMessage(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, agora.ErrNotAuthor)

	require.NoError(t, ag.DeleteMessage(ctx, m.ID, "alice"))

	err = ag.DeleteMessage(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, agora.ErrMessageNotFound)

	msgs, err := ag.Messages(ctx, c.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
