package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgethq/budgethq/api"
	memstore "github.com/budgethq/budgethq/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestServer builds a full router over the in-memory store with the
// clock pinned to March 2025.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := api.NewHandler(memstore.NewMemory())
	handler.Manager.Clock = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	server := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, server *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func doJSONList(t *testing.T, server *httptest.Server, path string) (*http.Response, []map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "user-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createAccount(t *testing.T, server *httptest.Server, name, beginning string) string {
	t.Helper()
	resp, body := doJSON(t, server, http.MethodPost, "/api/accounts", map[string]any{
		"name":              name,
		"beginning_balance": beginning,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestMissingUserHeaderIsRejected(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/accounts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ACCOUNTS AND BALANCES
// =============================================================================

func TestAccountLifecycle(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	resp, body := doJSON(t, server, http.MethodGet, "/api/accounts/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Checking", body["name"])
	assert.Equal(t, "100", body["beginning_balance"])

	resp, _ = doJSON(t, server, http.MethodDelete, "/api/accounts/"+id, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, server, http.MethodGet, "/api/accounts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBalancesReflectEntries(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	resp, _ := doJSON(t, server, http.MethodPost, "/api/entries", map[string]any{
		"kind": "payment", "account_id": id, "amount": "20.00", "date": "2025-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, server, http.MethodPost, "/api/entries", map[string]any{
		"kind": "deposit", "account_id": id, "amount": "50.00", "date": "2025-03-06",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, server, http.MethodGet, "/api/balances?as_of=2025-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "130", body["total"])
}

// =============================================================================
// ENTRY VALIDATION FLOW
// =============================================================================

func TestOutOfPeriodEntryReturnsWarningThenProceeds(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	entry := map[string]any{
		"kind": "payment", "account_id": id, "amount": "20.00", "date": "2025-01-15",
	}

	// First attempt: 409 with the warning naming the open month.
	resp, body := doJSON(t, server, http.MethodPost, "/api/entries", entry)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["warning"], "outside the open month March 2025")
	assert.Equal(t, "2025-03", body["open_period"])
	assert.Equal(t, "2025-01", body["candidate_period"])

	// Cancel path: nothing was saved.
	resp, entries := doJSONList(t, server, "/api/entries?period=2025-01")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, entries)

	// Proceed path: the open month moves, the entry lands.
	entry["proceed"] = true
	resp, _ = doJSON(t, server, http.MethodPost, "/api/entries", entry)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, state := doJSON(t, server, http.MethodGet, "/api/open-month", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2025-01", state["period"])
	assert.Equal(t, true, state["has_data"])

	resp, entries = doJSONList(t, server, "/api/entries?period=2025-01")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, entries, 1)
}

func TestInvalidEntryRejected(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	cases := []map[string]any{
		{"kind": "payment", "account_id": id, "amount": "-5.00", "date": "2025-03-05"},
		{"kind": "payment", "account_id": id, "amount": "abc", "date": "2025-03-05"},
		{"kind": "payment", "account_id": id, "amount": "5.00", "date": "March 5"},
		{"kind": "loan", "account_id": id, "amount": "5.00", "date": "2025-03-05"},
		{"kind": "adjustment", "account_id": id, "amount": "0", "date": "2025-03-05"},
	}
	for i, c := range cases {
		resp, _ := doJSON(t, server, http.MethodPost, "/api/entries", c)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "case %d", i)
	}
}

// =============================================================================
// CLOSE / REOPEN / DASHBOARD
// =============================================================================

func TestCloseReopenFlow(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	resp, _ := doJSON(t, server, http.MethodPost, "/api/entries", map[string]any{
		"kind": "payment", "account_id": id, "amount": "20.00", "date": "2025-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Checklist first.
	resp, checks := doJSONList(t, server, "/api/close/checklist")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, checks, 4)

	// Close without consent is refused.
	resp, _ = doJSON(t, server, http.MethodPost, "/api/close", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Close with both confirmations.
	resp, result := doJSON(t, server, http.MethodPost, "/api/close", map[string]any{
		"totals_reviewed": true, "final_lock_consent": true, "notes": "done with March",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2025-03", result["closed_period"])
	assert.Equal(t, "2025-04", result["new_period"])

	// The closed month serves the frozen dashboard.
	resp, dash := doJSON(t, server, http.MethodGet, "/api/dashboard?period=2025-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, dash["frozen"])
	assert.Equal(t, "20", dash["total_spent"])

	// History has one row with the notes.
	resp, history := doJSONList(t, server, "/api/close/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "done with March", history[0]["notes"])

	// Reopen while April is still empty.
	resp, reopened := doJSON(t, server, http.MethodPost, "/api/reopen", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2025-03", reopened["reopened_period"])

	// The dashboard falls back to live numbers and flags staleness.
	resp, dash = doJSON(t, server, http.MethodGet, "/api/dashboard?period=2025-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, dash["frozen"])
	assert.Equal(t, true, dash["stale"])
}

// =============================================================================
// RECURRING
// =============================================================================

func TestRecurringEndpoints(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	resp, created := doJSON(t, server, http.MethodPost, "/api/recurring", map[string]any{
		"kind": "payment", "account_id": id, "amount": "900.00",
		"description": "rent", "day_of_month": 1, "next_run": "2025-02",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "2025-02", created["next_run"])

	resp, run := doJSON(t, server, http.MethodPost, "/api/recurring/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// February and March are due as of the pinned clock.
	assert.Equal(t, float64(2), run["generated"])

	resp, templates := doJSONList(t, server, "/api/recurring")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, templates, 1)
	assert.Equal(t, "2025-04", templates[0]["next_run"])
}

func TestRecurringRejectsBadInput(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	for i, c := range []map[string]any{
		{"kind": "transfer", "account_id": id, "amount": "10.00", "day_of_month": 1},
		{"kind": "payment", "account_id": id, "amount": "10.00", "day_of_month": 0},
		{"kind": "payment", "account_id": id, "amount": "ten", "day_of_month": 1},
	} {
		resp, _ := doJSON(t, server, http.MethodPost, "/api/recurring", c)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "case %d", i)
	}

	resp, _ := doJSON(t, server, http.MethodPost, "/api/recurring", map[string]any{
		"kind": "payment", "account_id": "nope", "amount": "10.00", "day_of_month": 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ENTRY DELETION
// =============================================================================

func TestDeleteEntryIsSoft(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server, "Checking", "100.00")

	resp, created := doJSON(t, server, http.MethodPost, "/api/entries", map[string]any{
		"kind": "payment", "account_id": id, "amount": "20.00", "date": "2025-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entryID, _ := created["id"].(string)
	require.NotEmpty(t, entryID)

	resp, _ = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/entries/payment/%s", entryID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Balance no longer reflects the deleted payment.
	resp, body := doJSON(t, server, http.MethodGet, "/api/balances?as_of=2025-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", body["total"])

	// Deleting again is a 404.
	resp, _ = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/entries/payment/%s", entryID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
