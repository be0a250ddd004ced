/*
Package sqlite is the production store. It implements every persistence
interface in the system:

  ledger.TxStore - accounts + append-only entries, transactional
  social.Store   - idempotent (actor, target) pairs
  agora.Store    - conversations + messages

WHERE THE INVARIANTS LIVE:
  The correctness-critical constraints are in the schema, not in Go:
  - CHECK(balance >= 0) on accounts
  - version compare-and-set in the AdjustBalance UPDATE's WHERE clause
  - UNIQUE(family, actor_id, target_id) on social_actions
  - UNIQUE(participant_low, participant_high) on conversations
  Application code translates constraint violations into domain errors;
  it never re-implements the checks.

ATOMICITY:
  WithTx wraps a database transaction. Engine operations use it to
  commit a balance write and its ledger entry (or a tip's two balance
  writes and two entries) as one unit.

WAL MODE:
  SQLite is opened with WAL for better read concurrency; a sync.RWMutex
  serializes writers, the pattern SQLite's single-writer model wants.

MIGRATION:
  Schema is auto-migrated on New(). Entries carry a monotonically
  increasing seq (AUTOINCREMENT) so per-account ordering follows commit
  order even when timestamps collide.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/plutohq/loyalty-engine/agora"
	"github.com/plutohq/loyalty-engine/ledger"
	"github.com/plutohq/loyalty-engine/social"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Interface checks.
var (
	_ ledger.TxStore = (*Store)(nil)
	_ social.Store   = (*Store)(nil)
	_ agora.Store    = (*Store)(nil)
)

// New opens (and migrates) a store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Accounts (live balances + daily-claim state)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		version INTEGER NOT NULL DEFAULT 0,
		last_claim_at TEXT,
		streak INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Ledger entries (append-only; seq follows commit order)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		ref_type TEXT,
		ref_id TEXT,
		metadata_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_account_seq
		ON ledger_entries(account_id, seq DESC);

	-- For exactly-once reference lookups (referral idempotency)
	CREATE INDEX IF NOT EXISTS idx_entries_kind_ref
		ON ledger_entries(kind, ref_id) WHERE ref_id IS NOT NULL;

	-- Idempotent social actions: the pair IS the primary key
	CREATE TABLE IF NOT EXISTS social_actions (
		family TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (family, actor_id, target_id)
	);

	-- Conversations: one row per unordered participant pair
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		participant_low TEXT NOT NULL,
		participant_high TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (participant_low, participant_high)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL,
		edited_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// CreateAccount inserts an account with balance 0. Idempotent.
func (s *Store) CreateAccount(ctx context.Context, id ledger.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createAccount(ctx, s.db, id)
}

func createAccount(ctx context.Context, db dbtx, id ledger.AccountID) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (id, balance, version, streak, created_at)
		 VALUES (?, 0, 0, 0, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount returns the live account row.
func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, db dbtx, id ledger.AccountID) (ledger.Account, error) {
	var (
		acct        ledger.Account
		lastClaimAt sql.NullString
		createdAt   string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, balance, version, last_claim_at, streak, created_at
		 FROM accounts WHERE id = ?`, id,
	).Scan(&acct.ID, &acct.Balance, &acct.Version, &lastClaimAt, &acct.Streak, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	if lastClaimAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastClaimAt.String)
		if err != nil {
			return ledger.Account{}, fmt.Errorf("failed to parse last_claim_at: %w", err)
		}
		acct.LastClaimAt = &t
	}
	acct.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return acct, nil
}

// AdjustBalance applies delta under a version compare-and-set. The WHERE
// clause carries all three preconditions (exists, version match, stays
// non-negative); zero rows affected means one of them failed and a
// follow-up read tells us which.
func (s *Store) AdjustBalance(ctx context.Context, id ledger.AccountID, delta int64, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustBalance(ctx, s.db, id, delta, expectedVersion)
}

func adjustBalance(ctx context.Context, db dbtx, id ledger.AccountID, delta int64, expectedVersion int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE accounts
		 SET balance = balance + ?, version = version + 1
		 WHERE id = ? AND version = ? AND balance + ? >= 0`,
		delta, id, expectedVersion, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		acct, err := getAccount(ctx, db, id)
		if err != nil {
			return 0, err
		}
		if acct.Version != expectedVersion {
			return 0, ledger.ErrConflict
		}
		return 0, &ledger.InsufficientPointsError{
			AccountID: id,
			Available: acct.Balance,
			Requested: -delta,
		}
	}

	var balance int64
	if err := db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ?`, id,
	).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// SetClaimState records the daily-claim bookkeeping.
func (s *Store) SetClaimState(ctx context.Context, id ledger.AccountID, lastClaimAt time.Time, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setClaimState(ctx, s.db, id, lastClaimAt, streak)
}

func setClaimState(ctx context.Context, db dbtx, id ledger.AccountID, lastClaimAt time.Time, streak int) error {
	res, err := db.ExecContext(ctx,
		`UPDATE accounts SET last_claim_at = ?, streak = ? WHERE id = ?`,
		lastClaimAt.UTC().Format(time.RFC3339Nano), streak, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set claim state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// Append persists a ledger entry. Append-only: there is no update or
// delete path anywhere in this package.
func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, db dbtx, e ledger.Entry) error {
	var metadataJSON sql.NullString
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO ledger_entries
		 (id, account_id, kind, amount, balance_after, ref_type, ref_id, metadata_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Kind, e.Amount, e.BalanceAfter,
		nullString(string(e.Ref.Type)), nullString(e.Ref.ID),
		metadataJSON, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// History returns entries newest-first (by seq, i.e. commit order).
func (s *Store) History(ctx context.Context, id ledger.AccountID, page ledger.Page) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadHistory(ctx, s.db, id, page)
}

func loadHistory(ctx context.Context, db dbtx, id ledger.AccountID, page ledger.Page) ([]ledger.Entry, error) {
	page = page.Clamp()
	rows, err := db.QueryContext(ctx,
		`SELECT id, account_id, kind, amount, balance_after, ref_type, ref_id, metadata_json, created_at
		 FROM ledger_entries
		 WHERE account_id = ?
		 ORDER BY seq DESC
		 LIMIT ? OFFSET ?`,
		id, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindByReference returns the first entry for (kind, refID), or nil.
func (s *Store) FindByReference(ctx context.Context, kind ledger.Kind, refID string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByReference(ctx, s.db, kind, refID)
}

func findByReference(ctx context.Context, db dbtx, kind ledger.Kind, refID string) (*ledger.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, account_id, kind, amount, balance_after, ref_type, ref_id, metadata_json, created_at
		 FROM ledger_entries
		 WHERE kind = ? AND ref_id = ?
		 ORDER BY seq ASC
		 LIMIT 1`,
		kind, refID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanEntry(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e            ledger.Entry
		refType      sql.NullString
		refID        sql.NullString
		metadataJSON sql.NullString
		createdAt    string
	)
	err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Amount, &e.BalanceAfter,
		&refType, &refID, &metadataJSON, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.Ref = ledger.Reference{Type: ledger.RefType(refType.String), ID: refID.String}
	if metadataJSON.Valid && metadataJSON.String != "" {
		json.Unmarshal([]byte(metadataJSON.String), &e.Metadata)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transactional view handed to WithTx callbacks.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateAccount(ctx context.Context, id ledger.AccountID) error {
	return createAccount(ctx, ts.tx, id)
}

func (ts *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) AdjustBalance(ctx context.Context, id ledger.AccountID, delta int64, expectedVersion int64) (int64, error) {
	return adjustBalance(ctx, ts.tx, id, delta, expectedVersion)
}

func (ts *txStore) SetClaimState(ctx context.Context, id ledger.AccountID, lastClaimAt time.Time, streak int) error {
	return setClaimState(ctx, ts.tx, id, lastClaimAt, streak)
}

func (ts *txStore) Append(ctx context.Context, e ledger.Entry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) History(ctx context.Context, id ledger.AccountID, page ledger.Page) ([]ledger.Entry, error) {
	return loadHistory(ctx, ts.tx, id, page)
}

func (ts *txStore) FindByReference(ctx context.Context, kind ledger.Kind, refID string) (*ledger.Entry, error) {
	return findByReference(ctx, ts.tx, kind, refID)
}

// =============================================================================
// SOCIAL ACTION STORE (social.Store interface)
// =============================================================================

// TryCreate inserts the (family, actor, target) pair. INSERT OR IGNORE
// makes the uniqueness check and the insert one atomic statement;
// RowsAffected tells us whether we won.
func (s *Store) TryCreate(ctx context.Context, f social.Family, actorID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO social_actions (family, actor_id, target_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		f, actorID, targetID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether the pair is present.
func (s *Store) Exists(ctx context.Context, f social.Family, actorID, targetID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM social_actions WHERE family = ? AND actor_id = ? AND target_id = ?`,
		f, actorID, targetID,
	).Scan(&count)
	return count > 0, err
}

// Delete removes the pair for undoable families.
func (s *Store) Delete(ctx context.Context, f social.Family, actorID, targetID string) (bool, error) {
	if !f.Undoable() {
		return false, social.ErrPermanentAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM social_actions WHERE family = ? AND actor_id = ? AND target_id = ?`,
		f, actorID, targetID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// =============================================================================
// CONVERSATION STORE (agora.Store interface)
// =============================================================================

// CreateConversation inserts a conversation row. A duplicate pair maps
// to agora.ErrConversationExists so GetOrCreate can resolve the race.
func (s *Store) CreateConversation(ctx context.Context, c agora.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_low, participant_high, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ParticipantLow, c.ParticipantHigh,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return agora.ErrConversationExists
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// FindConversation looks up by canonical pair.
func (s *Store) FindConversation(ctx context.Context, low, high agora.ParticipantID) (agora.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, participant_low, participant_high, created_at, updated_at
		 FROM conversations WHERE participant_low = ? AND participant_high = ?`,
		low, high,
	)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return agora.Conversation{}, false, nil
	}
	if err != nil {
		return agora.Conversation{}, false, err
	}
	return c, true, nil
}

// GetConversation looks up by id.
func (s *Store) GetConversation(ctx context.Context, id string) (agora.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, participant_low, participant_high, created_at, updated_at
		 FROM conversations WHERE id = ?`,
		id,
	)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return agora.Conversation{}, agora.ErrConversationNotFound
	}
	if err != nil {
		return agora.Conversation{}, err
	}
	return c, nil
}

func scanConversation(row *sql.Row) (agora.Conversation, error) {
	var (
		c         agora.Conversation
		createdAt string
		updatedAt string
	)
	err := row.Scan(&c.ID, &c.ParticipantLow, &c.ParticipantHigh, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return c, nil
}

// AppendMessage inserts the message and bumps the conversation's
// updated_at in one transaction.
func (s *Store) AppendMessage(ctx context.Context, m agora.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.Content,
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	res, err := sqlTx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		m.CreatedAt.UTC().Format(time.RFC3339Nano), m.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return agora.ErrConversationNotFound
	}
	return sqlTx.Commit()
}

// ListMessages returns the conversation's messages oldest-first.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]agora.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, content, edited_at, created_at
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY created_at ASC, rowid ASC
		 LIMIT ? OFFSET ?`,
		conversationID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []agora.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// GetMessage looks up by id.
func (s *Store) GetMessage(ctx context.Context, id string) (agora.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, content, edited_at, created_at
		 FROM messages WHERE id = ?`, id,
	)
	if err != nil {
		return agora.Message{}, fmt.Errorf("failed to query message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return agora.Message{}, err
		}
		return agora.Message{}, agora.ErrMessageNotFound
	}
	return scanMessage(rows)
}

func scanMessage(rows *sql.Rows) (agora.Message, error) {
	var (
		m         agora.Message
		editedAt  sql.NullString
		createdAt string
	)
	err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &editedAt, &createdAt)
	if err != nil {
		return m, fmt.Errorf("failed to scan message: %w", err)
	}
	if editedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, editedAt.String)
		m.EditedAt = &t
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return m, nil
}

// UpdateMessageContent rewrites content and stamps edited_at.
func (s *Store) UpdateMessageContent(ctx context.Context, id, content string, editedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, edited_at = ? WHERE id = ?`,
		content, editedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return agora.ErrMessageNotFound
	}
	return nil
}

// DeleteMessage removes the message row.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return agora.ErrMessageNotFound
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
