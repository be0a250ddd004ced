/*
Package ledger is the loyalty-points core: a mutable balance per account
plus an append-only entry log that explains every change to it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: the live balance record (balance, CAS version, claim state)
  - Entry: an immutable ledger record carrying the balance it produced
  - Kind: what moved the points (tip, quest reward, campaign cost, ...)
  - Reference: a tagged pointer to the entity that caused the movement

DESIGN PRINCIPLES:
  1. Immutability: entries are never updated or deleted
  2. Auditability: every entry carries BalanceAfter, so the log can be
     replayed and checked against the live balance at any time
  3. Single write path: balances change only through Engine operations
     (engine.go) - no other code writes to an Account

USAGE:
  store, _ := sqlite.New(":memory:")
  engine := ledger.NewEngine(store, ledger.DefaultEconomy())
  balance, err := engine.Spend(ctx, "acct-1", 100, ledger.KindCampaignLaunch,
      ledger.CampaignRef("camp-42"), nil)

SEE ALSO:
  - engine.go: the spend/earn/transfer/claim operations
  - store.go: persistence interfaces
  - errors.go: error taxonomy
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string

// =============================================================================
// KIND - What moved the points
// =============================================================================

type Kind string

const (
	KindQuestComplete    Kind = "quest_complete"    // Reward for finishing a quest
	KindReferral         Kind = "referral"          // One-time referrer bonus
	KindCampaignLaunch   Kind = "campaign_launch"   // Cost of creating a campaign
	KindCampaignQuestAdd Kind = "campaign_quest_add" // Cost of adding a quest to a campaign
	KindFeatureUse       Kind = "feature_use"       // Cost of an AI feature invocation
	KindPurchase         Kind = "purchase"          // Points bought with real money
	KindDailyClaim       Kind = "daily_claim"       // Daily streak claim
	KindTipSent          Kind = "tip_sent"          // Debit half of a tip
	KindTipReceived      Kind = "tip_received"      // Credit half of a tip
	KindAdminAdjust      Kind = "admin_adjust"      // Manual correction
)

// ValidKind reports whether k is a known entry kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindQuestComplete, KindReferral, KindCampaignLaunch, KindCampaignQuestAdd,
		KindFeatureUse, KindPurchase, KindDailyClaim, KindTipSent, KindTipReceived,
		KindAdminAdjust:
		return true
	}
	return false
}

// =============================================================================
// REFERENCE - Tagged pointer to the entity behind an entry
// =============================================================================

// RefType identifies which entity family a Reference points into.
type RefType string

const (
	RefQuest      RefType = "Quest"
	RefCampaign   RefType = "Campaign"
	RefPost       RefType = "Post"
	RefPayment    RefType = "Payment"
	RefDailyClaim RefType = "DailyClaim"
	RefFeature    RefType = "Feature"
	RefUser       RefType = "User"
)

// Reference is a typed pointer to whatever caused a ledger entry.
// The zero value means "no reference" (e.g. admin adjustments).
type Reference struct {
	Type RefType
	ID   string
}

func (r Reference) IsZero() bool { return r.Type == "" && r.ID == "" }

// Constructors, one per reference family. Using these instead of struct
// literals keeps Type and ID from drifting apart at call sites.
func QuestRef(id string) Reference      { return Reference{Type: RefQuest, ID: id} }
func CampaignRef(id string) Reference   { return Reference{Type: RefCampaign, ID: id} }
func PostRef(id string) Reference       { return Reference{Type: RefPost, ID: id} }
func PaymentRef(id string) Reference    { return Reference{Type: RefPayment, ID: id} }
func DailyClaimRef(id string) Reference { return Reference{Type: RefDailyClaim, ID: id} }
func FeatureRef(id string) Reference    { return Reference{Type: RefFeature, ID: id} }
func UserRef(id AccountID) Reference    { return Reference{Type: RefUser, ID: string(id)} }

// =============================================================================
// ENTRY - One immutable balance change
// =============================================================================

// Entry records a single balance change. Amount is signed: positive for
// credits, negative for debits. BalanceAfter is the account balance
// immediately after the change committed.
//
// INVARIANT: replaying an account's entries in commit order and summing
// Amount reproduces the live balance, and each entry's BalanceAfter equals
// the running sum up to and including that entry.
type Entry struct {
	ID           EntryID
	AccountID    AccountID
	Kind         Kind
	Amount       int64
	BalanceAfter int64
	Ref          Reference
	Metadata     map[string]string
	CreatedAt    time.Time
}

// =============================================================================
// ACCOUNT - Live balance plus claim state
// =============================================================================

// Account holds the current spendable balance. Version is bumped on every
// balance write and is the compare-and-set token the store uses to detect
// concurrent writers.
type Account struct {
	ID      AccountID
	Balance int64
	Version int64

	// Daily-claim state (mutated only by Engine.Claim)
	LastClaimAt *time.Time
	Streak      int

	CreatedAt time.Time
}

// =============================================================================
// PAGINATION
// =============================================================================

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is stateless offset pagination for History.
type Page struct {
	Limit  int
	Offset int
}

// Clamp normalizes a page to sane bounds.
func (p Page) Clamp() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
