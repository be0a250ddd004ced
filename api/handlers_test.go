package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plutohq/loyalty-engine/agora"
	"github.com/plutohq/loyalty-engine/api"
	"github.com/plutohq/loyalty-engine/ledger"
	"github.com/plutohq/loyalty-engine/social"
	"github.com/plutohq/loyalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	srv    *httptest.Server
	engine *ledger.Engine
}

func newTestServer(t *testing.T) *testServer {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := ledger.NewEngine(store, ledger.DefaultEconomy())
	actions := &social.Actions{Store: store, Engine: engine}
	handler := api.NewHandler(engine, actions, agora.New(store))

	srv := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, engine: engine}
}

func (ts *testServer) seedAccount(t *testing.T, id string, balance int64) {
	ctx := context.Background()
	require.NoError(t, ts.engine.CreateAccount(ctx, ledger.AccountID(id)))
	if balance > 0 {
		_, err := ts.engine.Earn(ctx, ledger.AccountID(id), balance,
			ledger.KindPurchase, ledger.PaymentRef("seed"), nil)
		require.NoError(t, err)
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decodeAs[T any](t *testing.T, raw []byte) T {
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body: %s", raw)
	return v
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestCreateAccountAndBalance(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/accounts", map[string]string{"id": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	resp, body = ts.do(t, http.MethodGet, "/api/accounts/alice/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeAs[map[string]any](t, body)
	assert.Equal(t, "alice", got["account_id"])
	assert.Equal(t, float64(0), got["balance"])
}

func TestGetBalance_UnknownAccountIs404(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/accounts/ghost/balance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTip_Flow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 100)
	ts.seedAccount(t, "bob", 0)

	resp, body := ts.do(t, http.MethodPost, "/api/accounts/alice/tip", map[string]any{
		"to": "bob", "amount": 30, "post_id": "post-9",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	got := decodeAs[map[string]any](t, body)
	assert.Equal(t, float64(70), got["from_balance"])
	assert.Equal(t, float64(30), got["to_balance"])
}

func TestTip_FractionalAmountRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 100)
	ts.seedAccount(t, "bob", 0)

	resp, _ := ts.do(t, http.MethodPost, "/api/accounts/alice/tip", map[string]any{
		"to": "bob", "amount": 10.5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	balance, err := ts.engine.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestTip_InsufficientIs402(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 5)
	ts.seedAccount(t, "bob", 0)

	resp, _ := ts.do(t, http.MethodPost, "/api/accounts/alice/tip", map[string]any{
		"to": "bob", "amount": 30,
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestClaim_ThenTooEarlyIs429(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 0)

	resp, body := ts.do(t, http.MethodPost, "/api/accounts/alice/claim", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	got := decodeAs[map[string]any](t, body)
	assert.Equal(t, float64(1), got["day"])
	assert.Equal(t, float64(10), got["points"])

	resp, body = ts.do(t, http.MethodPost, "/api/accounts/alice/claim", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	errBody := decodeAs[map[string]any](t, body)
	assert.NotEmpty(t, errBody["next_claim_at"])
}

func TestReferral_IdempotentAcrossRetries(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 0)
	ts.seedAccount(t, "bob", 0)

	resp, body := ts.do(t, http.MethodPost, "/api/accounts/alice/referral", map[string]string{"referred": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeAs[map[string]any](t, body)
	assert.Equal(t, true, got["credited"])
	assert.Equal(t, float64(500), got["new_balance"])

	resp, body = ts.do(t, http.MethodPost, "/api/accounts/alice/referral", map[string]string{"referred": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decodeAs[map[string]any](t, body)
	assert.Equal(t, false, got["credited"])
	assert.Equal(t, float64(500), got["new_balance"])
}

func TestSpend_Actions(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 200)

	resp, body := ts.do(t, http.MethodPost, "/api/accounts/alice/spend", map[string]string{
		"action": "campaign_launch", "ref_id": "camp-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	assert.Equal(t, float64(100), decodeAs[map[string]any](t, body)["new_balance"])

	resp, _ = ts.do(t, http.MethodPost, "/api/accounts/alice/spend", map[string]string{
		"action": "feature_use", "feature": "wallet_analysis",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Unknown action fails validation before touching the engine.
	resp, _ = ts.do(t, http.MethodPost, "/api/accounts/alice/spend", map[string]string{
		"action": "mint_money",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetLedger_NewestFirst(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 200)

	_, err := ts.engine.LaunchCampaign(context.Background(), "alice", "camp-1")
	require.NoError(t, err)

	resp, body := ts.do(t, http.MethodGet, "/api/accounts/alice/ledger?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeAs[[]map[string]any](t, body)
	require.Len(t, entries, 1)
	assert.Equal(t, "campaign_launch", entries[0]["kind"])
	assert.Equal(t, float64(-100), entries[0]["amount"])
	assert.Equal(t, float64(100), entries[0]["balance_after"])
}

// =============================================================================
// SOCIAL
// =============================================================================

func TestSocial_ActUndoCycle(t *testing.T) {
	ts := newTestServer(t)
	act := map[string]string{"actor_id": "alice", "target_id": "post-1"}

	resp, body := ts.do(t, http.MethodPost, "/api/social/like", act)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, decodeAs[map[string]any](t, body)["created"])

	resp, body = ts.do(t, http.MethodPost, "/api/social/like", act)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeAs[map[string]any](t, body)["created"])

	resp, body = ts.do(t, http.MethodDelete, "/api/social/like", act)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeAs[map[string]any](t, body)["deleted"])

	resp, _ = ts.do(t, http.MethodPost, "/api/social/repost", act)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteQuest_AwardsOnceOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "alice", 0)
	req := map[string]string{"actor_id": "alice"}

	resp, body := ts.do(t, http.MethodPost, "/api/quests/quest-1/complete", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeAs[map[string]any](t, body)
	assert.Equal(t, true, got["completed"])
	assert.Equal(t, float64(25), got["new_balance"])

	resp, body = ts.do(t, http.MethodPost, "/api/quests/quest-1/complete", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decodeAs[map[string]any](t, body)
	assert.Equal(t, false, got["completed"])
	assert.Equal(t, float64(25), got["new_balance"])
}

// =============================================================================
// AGORA
// =============================================================================

func TestConversation_PairIsDirectionless(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/conversations", map[string]string{
		"participant_a": "bob", "participant_b": "alice",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeAs[map[string]any](t, body)

	resp, body = ts.do(t, http.MethodPost, "/api/conversations", map[string]string{
		"participant_a": "alice", "participant_b": "bob",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeAs[map[string]any](t, body)

	assert.Equal(t, first["id"], second["id"])
}

func TestMessages_PostListEditDelete(t *testing.T) {
	ts := newTestServer(t)

	_, body := ts.do(t, http.MethodPost, "/api/conversations", map[string]string{
		"participant_a": "alice", "participant_b": "bob",
	})
	convID := decodeAs[map[string]any](t, body)["id"].(string)

	resp, body := ts.do(t, http.MethodPost, fmt.Sprintf("/api/conversations/%s/messages", convID),
		map[string]string{"sender_id": "alice", "content": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)
	msgID := decodeAs[map[string]any](t, body)["id"].(string)

	// Outsiders cannot post.
	resp, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/conversations/%s/messages", convID),
		map[string]string{"sender_id": "mallory", "content": "hi"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Only the author edits.
	resp, _ = ts.do(t, http.MethodPut, "/api/messages/"+msgID,
		map[string]string{"editor_id": "bob", "content": "hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPut, "/api/messages/"+msgID,
		map[string]string{"editor_id": "alice", "content": "hello again"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeAs[map[string]any](t, body)["edited_at"])

	resp, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/conversations/%s/messages", convID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decodeAs[[]map[string]any](t, body)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello again", msgs[0]["content"])

	resp, _ = ts.do(t, http.MethodDelete, "/api/messages/"+msgID,
		map[string]string{"requester_id": "alice"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/messages/"+msgID,
		map[string]string{"requester_id": "alice"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
