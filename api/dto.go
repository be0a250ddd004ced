/*
dto.go - Request/response shapes for the REST API

Amounts arrive as JSON numbers and are parsed through decimal so that
fractional values are rejected as InvalidAmount instead of being
silently truncated. DTOs carry validator tags; handlers run them
through a shared validator instance before touching domain logic.
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plutohq/loyalty-engine/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

type CreateAccountRequest struct {
	ID string `json:"id" validate:"required,min=1,max=64"`
}

type TipRequest struct {
	To     string      `json:"to" validate:"required"`
	Amount json.Number `json:"amount" validate:"required"`
	PostID string      `json:"post_id"`
}

type ReferralRequest struct {
	Referred string `json:"referred" validate:"required"`
}

// SpendRequest covers the fixed-cost actions: campaign_launch,
// quest_add, and feature_use (with Feature naming which one).
type SpendRequest struct {
	Action  string `json:"action" validate:"required,oneof=campaign_launch quest_add feature_use"`
	RefID   string `json:"ref_id"`
	Feature string `json:"feature"`
}

type SocialActionRequest struct {
	ActorID  string `json:"actor_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type CompleteQuestRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
}

type ConversationRequest struct {
	ParticipantA string `json:"participant_a" validate:"required"`
	ParticipantB string `json:"participant_b" validate:"required"`
}

type PostMessageRequest struct {
	SenderID string `json:"sender_id" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type EditMessageRequest struct {
	EditorID string `json:"editor_id" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type DeleteMessageRequest struct {
	RequesterID string `json:"requester_id" validate:"required"`
}

// parsePoints converts a JSON number into whole points.
// Fractional amounts are an input error, never rounded.
func parsePoints(n json.Number) (int64, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() {
		return 0, ledger.ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// =============================================================================
// RESPONSES
// =============================================================================

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

type TipResponse struct {
	FromBalance int64 `json:"from_balance"`
	ToBalance   int64 `json:"to_balance"`
}

type ClaimResponse struct {
	Points     int64 `json:"points"`
	Day        int   `json:"day"`
	NewBalance int64 `json:"new_balance"`
}

type ReferralResponse struct {
	Credited   bool  `json:"credited"`
	NewBalance int64 `json:"new_balance"`
}

type SpendResponse struct {
	NewBalance int64 `json:"new_balance"`
}

type SocialActionResponse struct {
	Created bool `json:"created"`
}

type SocialUndoResponse struct {
	Deleted bool `json:"deleted"`
}

type CompleteQuestResponse struct {
	Completed  bool  `json:"completed"`
	Points     int64 `json:"points"`
	NewBalance int64 `json:"new_balance"`
}

type EntryDTO struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
	RefType      string            `json:"ref_type,omitempty"`
	RefID        string            `json:"ref_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:           string(e.ID),
		Kind:         string(e.Kind),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		RefType:      string(e.Ref.Type),
		RefID:        e.Ref.ID,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}

type ConversationDTO struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MessageDTO struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	NextAt  string `json:"next_claim_at,omitempty"`
}
