/*
Package agora implements direct-message conversation identity and the
message authorization rules around it.

CONVERSATION IDENTITY:
  A two-party thread is keyed by the unordered pair of participants. The
  pair is canonicalized - participants stored in lexicographic order -
  so {A,B} and {B,A} resolve to one row. GetOrCreate is safe under
  concurrent first contact from both directions: the store's uniqueness
  constraint on (low, high) picks exactly one winner, and the loser
  re-reads the winner's row instead of erroring.

MESSAGE RULES:
  - only the two participants may post into a conversation
  - content is trimmed, non-empty, and at most MaxContentLength runes
  - only the author may edit (sets EditedAt) or delete a message
  - appending a message bumps the conversation's UpdatedAt

SEE ALSO:
  - store/sqlite: UNIQUE(participant_low, participant_high)
*/
package agora

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxContentLength bounds message content, in runes.
const MaxContentLength = 2000

// =============================================================================
// TYPES
// =============================================================================

type ParticipantID string

// Conversation is a two-party thread. ParticipantLow < ParticipantHigh
// always holds; the pair is unique across the store.
type Conversation struct {
	ID              string
	ParticipantLow  ParticipantID
	ParticipantHigh ParticipantID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Has reports whether p is one of the two participants.
func (c Conversation) Has(p ParticipantID) bool {
	return p == c.ParticipantLow || p == c.ParticipantHigh
}

// Message is one post in a conversation. EditedAt is set on first edit.
type Message struct {
	ID             string
	ConversationID string
	SenderID       ParticipantID
	Content        string
	EditedAt       *time.Time
	CreatedAt      time.Time
}

// CanonicalPair orders two participants into their stored form.
func CanonicalPair(a, b ParticipantID) (low, high ParticipantID) {
	if a > b {
		return b, a
	}
	return a, b
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrSelfConversation     = errors.New("conversation requires two distinct participants")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("sender is not a conversation participant")
	ErrNotAuthor            = errors.New("only the author may modify a message")
	ErrContentEmpty         = errors.New("message content is empty")
	ErrContentTooLong       = errors.New("message content exceeds maximum length")

	// ErrConversationExists is returned by stores on a duplicate
	// (low, high) insert. GetOrCreate absorbs it; callers never see it.
	ErrConversationExists = errors.New("conversation already exists")
)

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations and messages.
type Store interface {
	// CreateConversation inserts c. Fails with ErrConversationExists if
	// the (low, high) pair is already present.
	CreateConversation(ctx context.Context, c Conversation) error

	// FindConversation looks up by canonical pair.
	FindConversation(ctx context.Context, low, high ParticipantID) (Conversation, bool, error)

	// GetConversation looks up by id. Fails with ErrConversationNotFound.
	GetConversation(ctx context.Context, id string) (Conversation, error)

	// AppendMessage inserts m and bumps the conversation's UpdatedAt to
	// m.CreatedAt, atomically.
	AppendMessage(ctx context.Context, m Message) error

	// ListMessages returns the conversation's messages oldest-first.
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error)

	// GetMessage looks up by id. Fails with ErrMessageNotFound.
	GetMessage(ctx context.Context, id string) (Message, error)

	// UpdateMessageContent rewrites content and sets EditedAt.
	UpdateMessageContent(ctx context.Context, id, content string, editedAt time.Time) error

	// DeleteMessage removes the message.
	DeleteMessage(ctx context.Context, id string) error
}

// =============================================================================
// AGORA - The service
// =============================================================================

// Agora applies the identity and authorization rules over a Store.
type Agora struct {
	Store Store

	// Now is overridable in tests; defaults to UTC wall time.
	Now func() time.Time
}

func New(store Store) *Agora {
	return &Agora{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate resolves the unordered pair {a, b} to its single
// conversation, creating it on first contact. (a, b) and (b, a) always
// return the same conversation, including when both directions race.
func (ag *Agora) GetOrCreate(ctx context.Context, a, b ParticipantID) (Conversation, error) {
	if a == b {
		return Conversation{}, ErrSelfConversation
	}
	low, high := CanonicalPair(a, b)

	if c, ok, err := ag.Store.FindConversation(ctx, low, high); err != nil {
		return Conversation{}, err
	} else if ok {
		return c, nil
	}

	now := ag.Now()
	c := Conversation{
		ID:              uuid.NewString(),
		ParticipantLow:  low,
		ParticipantHigh: high,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := ag.Store.CreateConversation(ctx, c)
	if errors.Is(err, ErrConversationExists) {
		// Lost the first-contact race; the winner's row is the identity.
		existing, ok, ferr := ag.Store.FindConversation(ctx, low, high)
		if ferr != nil {
			return Conversation{}, ferr
		}
		if !ok {
			return Conversation{}, ErrConversationNotFound
		}
		return existing, nil
	}
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}

// AppendMessage posts content into the conversation as sender.
func (ag *Agora) AppendMessage(ctx context.Context, conversationID string, sender ParticipantID, content string) (Message, error) {
	c, err := ag.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return Message{}, err
	}
	if !c.Has(sender) {
		return Message{}, ErrNotParticipant
	}
	content, err = normalizeContent(content)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       sender,
		Content:        content,
		CreatedAt:      ag.Now(),
	}
	if err := ag.Store.AppendMessage(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// EditMessage rewrites a message's content. Only the author may edit.
func (ag *Agora) EditMessage(ctx context.Context, messageID string, editor ParticipantID, content string) (Message, error) {
	m, err := ag.Store.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if m.SenderID != editor {
		return Message{}, ErrNotAuthor
	}
	content, err = normalizeContent(content)
	if err != nil {
		return Message{}, err
	}

	editedAt := ag.Now()
	if err := ag.Store.UpdateMessageContent(ctx, messageID, content, editedAt); err != nil {
		return Message{}, err
	}
	m.Content = content
	m.EditedAt = &editedAt
	return m, nil
}

// DeleteMessage removes a message. Only the author may delete.
func (ag *Agora) DeleteMessage(ctx context.Context, messageID string, requester ParticipantID) error {
	m, err := ag.Store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != requester {
		return ErrNotAuthor
	}
	return ag.Store.DeleteMessage(ctx, messageID)
}

// Messages returns a page of the conversation's messages, oldest first.
func (ag *Agora) Messages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	if _, err := ag.Store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return ag.Store.ListMessages(ctx, conversationID, limit, offset)
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrContentEmpty
	}
	if len([]rune(content)) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}
