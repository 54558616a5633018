package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guildnet/guildpoints/internal/app/economy"
	"github.com/guildnet/guildpoints/internal/domain"
	"github.com/guildnet/guildpoints/internal/infra/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *economy.Service) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	engine := economy.New(economy.DefaultConfig(), db)
	ts := httptest.NewServer(NewServer(engine).Handler())
	t.Cleanup(ts.Close)
	return ts, engine
}

func seedAccount(t *testing.T, engine *economy.Service, id string, role domain.Role) {
	t.Helper()
	if _, err := engine.EnsureAccount(context.Background(), id, id, role, domain.CategoryJunior); err != nil {
		t.Fatalf("EnsureAccount(%s) error: %v", id, err)
	}
}

// do issues a request with an optional caller identity and JSON body,
// decoding the JSON reply.
func do(t *testing.T, ts *httptest.Server, method, path, caller string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Caller-ID", caller)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	status, body := do(t, ts, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", status, body)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	ts, engine := newTestServer(t)
	seedAccount(t, engine, "admin-1", domain.RoleAdmin)
	seedAccount(t, engine, "worker", domain.RoleMember)

	status, task := do(t, ts, http.MethodPost, "/api/v1/tasks", "admin-1", map[string]any{
		"title": "wire the API", "points_reward": 40,
	})
	if status != http.StatusCreated {
		t.Fatalf("create task status = %d: %v", status, task)
	}
	taskID := task["id"].(string)

	status, _ = do(t, ts, http.MethodPost, "/api/v1/tasks/"+taskID+"/assign", "admin-1",
		map[string]any{"account_id": "worker"})
	if status != http.StatusOK {
		t.Fatalf("assign status = %d", status)
	}

	status, out := do(t, ts, http.MethodPost, "/api/v1/tasks/"+taskID+"/complete", "admin-1", nil)
	if status != http.StatusOK {
		t.Fatalf("complete status = %d: %v", status, out)
	}

	status, bal := do(t, ts, http.MethodGet, "/api/v1/accounts/worker/balance", "", nil)
	if status != http.StatusOK || bal["balance"].(float64) != 40 {
		t.Fatalf("balance = %d %v", status, bal)
	}

	// Completing again conflicts.
	status, _ = do(t, ts, http.MethodPost, "/api/v1/tasks/"+taskID+"/complete", "admin-1", nil)
	if status != http.StatusConflict {
		t.Fatalf("second complete status = %d, want 409", status)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts, engine := newTestServer(t)
	seedAccount(t, engine, "admin-1", domain.RoleAdmin)
	seedAccount(t, engine, "member-1", domain.RoleMember)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   any
		want   int
	}{
		{"missing caller", http.MethodPost, "/api/v1/tasks", "", map[string]any{"title": "x"}, http.StatusUnauthorized},
		{"unknown account", http.MethodGet, "/api/v1/accounts/ghost", "", nil, http.StatusNotFound},
		{"forbidden create", http.MethodPost, "/api/v1/tasks", "member-1", map[string]any{"title": "x"}, http.StatusForbidden},
		{"empty title", http.MethodPost, "/api/v1/tasks", "admin-1", map[string]any{"title": "  "}, http.StatusUnprocessableEntity},
		{"negative reward", http.MethodPost, "/api/v1/tasks", "admin-1", map[string]any{"title": "x", "points_reward": -1}, http.StatusUnprocessableEntity},
		{"self demotion", http.MethodPost, "/api/v1/accounts/admin-1/demote", "admin-1", nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, ts, tt.method, tt.path, tt.caller, tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d (%v)", status, tt.want, body)
			}
		})
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	ts, engine := newTestServer(t)
	seedAccount(t, engine, "admin-1", domain.RoleAdmin)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/tasks", bytes.NewBufferString("{not json"))
	req.Header.Set("X-Caller-ID", "admin-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPurchaseFailureIsNotAnHTTPError(t *testing.T) {
	ts, engine := newTestServer(t)
	seedAccount(t, engine, "admin-1", domain.RoleAdmin)
	seedAccount(t, engine, "buyer", domain.RoleMember)

	status, product := do(t, ts, http.MethodPost, "/api/v1/products", "admin-1", map[string]any{
		"name": "sticker", "price_points": 5, "stock": 10,
	})
	if status != http.StatusCreated {
		t.Fatalf("create product status = %d: %v", status, product)
	}
	productID := product["id"].(string)

	// Broke buyer: 200 with success=false, not a 4xx.
	status, out := do(t, ts, http.MethodPost, "/api/v1/products/"+productID+"/purchase", "buyer", nil)
	if status != http.StatusOK {
		t.Fatalf("purchase status = %d, want 200", status)
	}
	if out["success"].(bool) {
		t.Fatal("broke purchase reported success")
	}

	// Fund and retry.
	if _, err := engine.AdjustPoints(context.Background(), "buyer", 5, "seed", "admin-1"); err != nil {
		t.Fatalf("AdjustPoints() error: %v", err)
	}
	status, out = do(t, ts, http.MethodPost, "/api/v1/products/"+productID+"/purchase", "buyer", nil)
	if status != http.StatusOK || !out["success"].(bool) {
		t.Fatalf("funded purchase = %d %v", status, out)
	}
}

func TestRequestApprovalOverHTTP(t *testing.T) {
	ts, engine := newTestServer(t)
	seedAccount(t, engine, "admin-1", domain.RoleAdmin)
	seedAccount(t, engine, "partner-1", domain.RolePartner)

	status, req := do(t, ts, http.MethodPost, "/api/v1/requests", "partner-1", map[string]any{
		"title": "landing page", "suggested_reward": 80,
	})
	if status != http.StatusCreated {
		t.Fatalf("submit status = %d: %v", status, req)
	}
	reqID := req["id"].(string)

	status, pending := do(t, ts, http.MethodGet, "/api/v1/requests/pending", "", nil)
	if status != http.StatusOK {
		t.Fatalf("pending status = %d", status)
	}
	if n := len(pending["requests"].([]any)); n != 1 {
		t.Fatalf("pending requests = %d, want 1", n)
	}

	// Non-admin approval is forbidden.
	status, _ = do(t, ts, http.MethodPost, "/api/v1/requests/"+reqID+"/approve", "partner-1",
		map[string]any{"final_reward": 100})
	if status != http.StatusForbidden {
		t.Fatalf("partner approve status = %d, want 403", status)
	}

	status, approved := do(t, ts, http.MethodPost, "/api/v1/requests/"+reqID+"/approve", "admin-1",
		map[string]any{"final_reward": 100})
	if status != http.StatusOK {
		t.Fatalf("approve status = %d: %v", status, approved)
	}
	if approved["points_reward"].(float64) != 100 || approved["status"] != "open" {
		t.Fatalf("approved task = %v", approved)
	}
}

func TestStatementVisibilityOverHTTP(t *testing.T) {
	ts, engine := newTestServer(t)
	seedAccount(t, engine, "admin-1", domain.RoleAdmin)
	seedAccount(t, engine, "m1", domain.RoleMember)
	seedAccount(t, engine, "m2", domain.RoleMember)

	status, _ := do(t, ts, http.MethodGet, "/api/v1/accounts/m1/ledger", "m1", nil)
	if status != http.StatusOK {
		t.Fatalf("own statement status = %d", status)
	}
	status, _ = do(t, ts, http.MethodGet, "/api/v1/accounts/m1/ledger", "m2", nil)
	if status != http.StatusForbidden {
		t.Fatalf("peer statement status = %d, want 403", status)
	}
}

func TestLedgerHubBroadcast(t *testing.T) {
	hub := NewLedgerHub()
	ch, unsub := hub.Subscribe()
	defer unsub()

	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.BroadcastEntry(domain.LedgerEntry{AccountID: "m1", Amount: -30, Reason: domain.ReasonPurchaseDebit})

	select {
	case data := <-ch:
		var ev LedgerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if ev.Type != "ledger_entry" || ev.Amount != -30 {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("no event delivered")
	}
}
