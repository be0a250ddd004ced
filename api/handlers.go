/*
handlers.go - HTTP handlers over the points engine

PURPOSE:
  Exposes the loyalty core via REST. Handlers parse and validate input,
  call exactly one domain operation, and shape the response. No balance
  arithmetic happens here - the Engine is the only write path.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                      Create account
    GET    /api/accounts/{id}/balance         Live balance
    GET    /api/accounts/{id}/ledger          Entry history (paginated)
    POST   /api/accounts/{id}/tip             Tip another account
    POST   /api/accounts/{id}/claim           Daily claim
    POST   /api/accounts/{id}/referral        Credit referral bonus
    POST   /api/accounts/{id}/spend           Fixed-cost actions

  Social:
    POST   /api/social/{family}               Like/bookmark/follow
    DELETE /api/social/{family}               Undo
    POST   /api/quests/{id}/complete          Complete quest (awards once)

  Agora:
    POST   /api/conversations                 Get-or-create by pair
    GET    /api/conversations/{id}/messages   List messages
    POST   /api/conversations/{id}/messages   Post message
    PUT    /api/messages/{id}                 Edit (author only)
    DELETE /api/messages/{id}                 Delete (author only)

ERROR MAPPING:
  400  invalid input (amount, family, content)
  402  insufficient points
  403  not participant / not author
  404  account, conversation, or message not found
  409  conflict that outlived the engine's internal retries
  429  claim window not yet elapsed (carries next_claim_at)
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/plutohq/loyalty-engine/agora"
	"github.com/plutohq/loyalty-engine/ledger"
	"github.com/plutohq/loyalty-engine/social"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *ledger.Engine
	Actions *social.Actions
	Agora   *agora.Agora

	validate *validator.Validate
}

// NewHandler creates a handler over the domain services.
func NewHandler(engine *ledger.Engine, actions *social.Actions, ag *agora.Agora) *Handler {
	return &Handler{
		Engine:   engine,
		Actions:  actions,
		Agora:    ag,
		validate: validator.New(),
	}
}

// decode parses the JSON body into dst and runs its validator tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount registers an account with balance 0.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.CreateAccount(r.Context(), ledger.AccountID(req.ID)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BalanceResponse{AccountID: req.ID, Balance: 0})
}

// GetBalance returns the live balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	balance, err := h.Engine.Balance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{AccountID: string(id), Balance: balance})
}

// GetLedger returns the account's entry history, newest first.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	page := ledger.Page{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	entries, err := h.Engine.History(r.Context(), id, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Tip transfers points from the path account to req.To.
func (h *Handler) Tip(w http.ResponseWriter, r *http.Request) {
	from := ledger.AccountID(chi.URLParam(r, "id"))

	var req TipRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parsePoints(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ref := ledger.Reference{}
	if req.PostID != "" {
		ref = ledger.PostRef(req.PostID)
	}
	res, err := h.Engine.Transfer(r.Context(), from, ledger.AccountID(req.To), amount, ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TipResponse{FromBalance: res.FromBalance, ToBalance: res.ToBalance})
}

// Claim performs the daily claim.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	res, err := h.Engine.Claim(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimResponse{Points: res.Points, Day: res.Day, NewBalance: res.NewBalance})
}

// Referral credits the path account for referring req.Referred.
func (h *Handler) Referral(w http.ResponseWriter, r *http.Request) {
	referrer := ledger.AccountID(chi.URLParam(r, "id"))

	var req ReferralRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Engine.CreditReferral(r.Context(), referrer, ledger.AccountID(req.Referred))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReferralResponse{Credited: res.Credited, NewBalance: res.NewBalance})
}

// Spend charges one of the fixed-cost actions.
func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req SpendRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		balance int64
		err     error
	)
	switch req.Action {
	case "campaign_launch":
		balance, err = h.Engine.LaunchCampaign(r.Context(), id, req.RefID)
	case "quest_add":
		balance, err = h.Engine.AddQuest(r.Context(), id, req.RefID)
	case "feature_use":
		balance, err = h.Engine.UseFeature(r.Context(), id, req.Feature)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SpendResponse{NewBalance: balance})
}

// =============================================================================
// SOCIAL HANDLERS
// =============================================================================

// SocialAct records an idempotent (actor, target) pair.
func (h *Handler) SocialAct(w http.ResponseWriter, r *http.Request) {
	family := social.Family(chi.URLParam(r, "family"))

	var req SocialActionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Actions.Act(r.Context(), family, req.ActorID, req.TargetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, SocialActionResponse{Created: created})
}

// SocialUndo removes an undoable pair.
func (h *Handler) SocialUndo(w http.ResponseWriter, r *http.Request) {
	family := social.Family(chi.URLParam(r, "family"))

	var req SocialActionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deleted, err := h.Actions.Undo(r.Context(), family, req.ActorID, req.TargetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SocialUndoResponse{Deleted: deleted})
}

// CompleteQuest marks a quest done and pays the reward exactly once.
func (h *Handler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	questID := chi.URLParam(r, "id")

	var req CompleteQuestRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Actions.CompleteQuest(r.Context(), ledger.AccountID(req.ActorID), questID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompleteQuestResponse{
		Completed:  res.Completed,
		Points:     res.Points,
		NewBalance: res.NewBalance,
	})
}

// =============================================================================
// AGORA HANDLERS
// =============================================================================

// GetOrCreateConversation resolves a participant pair to its conversation.
func (h *Handler) GetOrCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req ConversationRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Agora.GetOrCreate(r.Context(),
		agora.ParticipantID(req.ParticipantA), agora.ParticipantID(req.ParticipantB))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationDTO(c))
}

// ListMessages returns a conversation's messages, oldest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	msgs, err := h.Agora.Messages(r.Context(), conversationID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		dtos[i] = toMessageDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PostMessage appends a message to a conversation.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req PostMessageRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := h.Agora.AppendMessage(r.Context(), conversationID, agora.ParticipantID(req.SenderID), req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageDTO(m))
}

// EditMessage rewrites a message's content (author only).
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")

	var req EditMessageRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := h.Agora.EditMessage(r.Context(), messageID, agora.ParticipantID(req.EditorID), req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTO(m))
}

// DeleteMessage removes a message (author only).
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")

	var req DeleteMessageRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Agora.DeleteMessage(r.Context(), messageID, agora.ParticipantID(req.RequesterID)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func toConversationDTO(c agora.Conversation) ConversationDTO {
	return ConversationDTO{
		ID:           c.ID,
		Participants: [2]string{string(c.ParticipantLow), string(c.ParticipantHigh)},
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toMessageDTO(m agora.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       string(m.SenderID),
		Content:        m.Content,
		EditedAt:       m.EditedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var claimErr *ledger.ClaimNotReadyError
	if errors.As(err, &claimErr) {
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:  "Claim not yet available",
			NextAt: claimErr.NextAt.Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrInsufficientPoints):
		writeError(w, http.StatusPaymentRequired, "Insufficient points", err)
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, social.ErrUnknownFamily),
		errors.Is(err, social.ErrPermanentAction),
		errors.Is(err, agora.ErrSelfConversation),
		errors.Is(err, agora.ErrContentEmpty),
		errors.Is(err, agora.ErrContentTooLong):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, agora.ErrNotParticipant),
		errors.Is(err, agora.ErrNotAuthor):
		writeError(w, http.StatusForbidden, "Not allowed", err)
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, agora.ErrConversationNotFound),
		errors.Is(err, agora.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrConflict):
		writeError(w, http.StatusConflict, "Concurrent update, retry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
