// Package memory provides in-memory store implementations (for testing/dev).
//
// It mirrors the sqlite store's contracts exactly, including the version
// compare-and-set on balances and WithTx rollback semantics (implemented
// by snapshotting ledger state before fn and restoring it on error).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/plutohq/loyalty-engine/agora"
	"github.com/plutohq/loyalty-engine/ledger"
	"github.com/plutohq/loyalty-engine/social"
)

type actionKey struct {
	Family social.Family
	Actor  string
	Target string
}

type pairKey struct {
	Low  agora.ParticipantID
	High agora.ParticipantID
}

type Memory struct {
	mu sync.RWMutex

	accounts map[ledger.AccountID]ledger.Account
	entries  []ledger.Entry // append order = commit order

	actions map[actionKey]time.Time

	conversations map[string]agora.Conversation
	pairs         map[pairKey]string // canonical pair -> conversation id
	messages      map[string]agora.Message
	messageSeq    map[string]int // message id -> insertion order
	nextSeq       int
}

// Interface checks.
var (
	_ ledger.TxStore = (*Memory)(nil)
	_ social.Store   = (*Memory)(nil)
	_ agora.Store    = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		accounts:      make(map[ledger.AccountID]ledger.Account),
		actions:       make(map[actionKey]time.Time),
		conversations: make(map[string]agora.Conversation),
		pairs:         make(map[pairKey]string),
		messages:      make(map[string]agora.Message),
		messageSeq:    make(map[string]int),
	}
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(id)
}

func (m *Memory) createAccountLocked(id ledger.AccountID) error {
	if _, ok := m.accounts[id]; ok {
		return nil
	}
	m.accounts[id] = ledger.Account{ID: id, CreatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id ledger.AccountID) (ledger.Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acct, nil
}

func (m *Memory) AdjustBalance(_ context.Context, id ledger.AccountID, delta int64, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustBalanceLocked(id, delta, expectedVersion)
}

func (m *Memory) adjustBalanceLocked(id ledger.AccountID, delta int64, expectedVersion int64) (int64, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	if acct.Version != expectedVersion {
		return 0, ledger.ErrConflict
	}
	if acct.Balance+delta < 0 {
		return 0, &ledger.InsufficientPointsError{
			AccountID: id,
			Available: acct.Balance,
			Requested: -delta,
		}
	}
	acct.Balance += delta
	acct.Version++
	m.accounts[id] = acct
	return acct.Balance, nil
}

func (m *Memory) SetClaimState(_ context.Context, id ledger.AccountID, lastClaimAt time.Time, streak int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setClaimStateLocked(id, lastClaimAt, streak)
}

func (m *Memory) setClaimStateLocked(id ledger.AccountID, lastClaimAt time.Time, streak int) error {
	acct, ok := m.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	t := lastClaimAt
	acct.LastClaimAt = &t
	acct.Streak = streak
	m.accounts[id] = acct
	return nil
}

func (m *Memory) Append(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) History(_ context.Context, id ledger.AccountID, page ledger.Page) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.historyLocked(id, page)
}

func (m *Memory) historyLocked(id ledger.AccountID, page ledger.Page) ([]ledger.Entry, error) {
	page = page.Clamp()

	var mine []ledger.Entry
	for i := len(m.entries) - 1; i >= 0; i-- { // newest first
		if m.entries[i].AccountID == id {
			mine = append(mine, m.entries[i])
		}
	}
	if page.Offset >= len(mine) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[page.Offset:end], nil
}

func (m *Memory) FindByReference(_ context.Context, kind ledger.Kind, refID string) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findByReferenceLocked(kind, refID)
}

func (m *Memory) findByReferenceLocked(kind ledger.Kind, refID string) (*ledger.Entry, error) {
	for i := range m.entries {
		if m.entries[i].Kind == kind && m.entries[i].Ref.ID == refID {
			e := m.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx runs fn against the live state under the write lock. Rollback
// is a snapshot-restore of the ledger state (accounts + entries).
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapAccounts := make(map[ledger.AccountID]ledger.Account, len(m.accounts))
	for k, v := range m.accounts {
		snapAccounts[k] = v
	}
	snapEntries := len(m.entries)

	if err := fn(&memTx{m: m}); err != nil {
		m.accounts = snapAccounts
		m.entries = m.entries[:snapEntries]
		return err
	}
	return nil
}

// memTx is the view handed to WithTx callbacks. The outer lock is
// already held, so it calls the *Locked variants directly.
type memTx struct {
	m *Memory
}

func (t *memTx) CreateAccount(_ context.Context, id ledger.AccountID) error {
	return t.m.createAccountLocked(id)
}

func (t *memTx) GetAccount(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	return t.m.getAccountLocked(id)
}

func (t *memTx) AdjustBalance(_ context.Context, id ledger.AccountID, delta int64, expectedVersion int64) (int64, error) {
	return t.m.adjustBalanceLocked(id, delta, expectedVersion)
}

func (t *memTx) SetClaimState(_ context.Context, id ledger.AccountID, lastClaimAt time.Time, streak int) error {
	return t.m.setClaimStateLocked(id, lastClaimAt, streak)
}

func (t *memTx) Append(_ context.Context, e ledger.Entry) error {
	t.m.entries = append(t.m.entries, e)
	return nil
}

func (t *memTx) History(_ context.Context, id ledger.AccountID, page ledger.Page) ([]ledger.Entry, error) {
	return t.m.historyLocked(id, page)
}

func (t *memTx) FindByReference(_ context.Context, kind ledger.Kind, refID string) (*ledger.Entry, error) {
	return t.m.findByReferenceLocked(kind, refID)
}

// =============================================================================
// SOCIAL ACTION STORE
// =============================================================================

func (m *Memory) TryCreate(_ context.Context, f social.Family, actorID, targetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := actionKey{Family: f, Actor: actorID, Target: targetID}
	if _, ok := m.actions[k]; ok {
		return false, nil
	}
	m.actions[k] = time.Now().UTC()
	return true, nil
}

func (m *Memory) Exists(_ context.Context, f social.Family, actorID, targetID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.actions[actionKey{Family: f, Actor: actorID, Target: targetID}]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, f social.Family, actorID, targetID string) (bool, error) {
	if !f.Undoable() {
		return false, social.ErrPermanentAction
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := actionKey{Family: f, Actor: actorID, Target: targetID}
	if _, ok := m.actions[k]; !ok {
		return false, nil
	}
	delete(m.actions, k)
	return true, nil
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

func (m *Memory) CreateConversation(_ context.Context, c agora.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := pairKey{Low: c.ParticipantLow, High: c.ParticipantHigh}
	if _, ok := m.pairs[k]; ok {
		return agora.ErrConversationExists
	}
	m.pairs[k] = c.ID
	m.conversations[c.ID] = c
	return nil
}

func (m *Memory) FindConversation(_ context.Context, low, high agora.ParticipantID) (agora.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.pairs[pairKey{Low: low, High: high}]
	if !ok {
		return agora.Conversation{}, false, nil
	}
	return m.conversations[id], true, nil
}

func (m *Memory) GetConversation(_ context.Context, id string) (agora.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return agora.Conversation{}, agora.ErrConversationNotFound
	}
	return c, nil
}

func (m *Memory) AppendMessage(_ context.Context, msg agora.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return agora.ErrConversationNotFound
	}
	m.messages[msg.ID] = msg
	m.messageSeq[msg.ID] = m.nextSeq
	m.nextSeq++

	c.UpdatedAt = msg.CreatedAt
	m.conversations[c.ID] = c
	return nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID string, limit, offset int) ([]agora.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var msgs []agora.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return m.messageSeq[msgs[i].ID] < m.messageSeq[msgs[j].ID]
	})

	if offset >= len(msgs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[offset:end], nil
}

func (m *Memory) GetMessage(_ context.Context, id string) (agora.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return agora.Message{}, agora.ErrMessageNotFound
	}
	return msg, nil
}

func (m *Memory) UpdateMessageContent(_ context.Context, id, content string, editedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return agora.ErrMessageNotFound
	}
	msg.Content = content
	t := editedAt
	msg.EditedAt = &t
	m.messages[id] = msg
	return nil
}

func (m *Memory) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[id]; !ok {
		return agora.ErrMessageNotFound
	}
	delete(m.messages, id)
	delete(m.messageSeq, id)
	return nil
}
