package flows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/directory"
	"github.com/lenden-pay/lenden/internal/logging"
	"github.com/lenden-pay/lenden/internal/money"
	"github.com/lenden-pay/lenden/internal/session"
	"github.com/lenden-pay/lenden/internal/wizard"
)

// flowBackend serves the endpoints the wizard flows touch for one
// logged-in account whose profile it returns verbatim.
type flowBackend struct {
	mu       sync.Mutex
	profile  map[string]any
	sends    []map[string]any
	requests []map[string]any
}

func (b *flowBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "lenden_session", Value: "tok", Path: "/"})
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]any{"success": true, "role": b.profile["role"], "user": b.profile})
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]any{"success": true, "user": b.profile})
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "users": []map[string]any{
			{"id": "u2", "name": "Rahim", "phone": "01722222222"},
		}})
	})
	mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "agents": []map[string]any{
			{"id": "a1", "name": "Bashir", "phone": "01811111111"},
		}})
	})
	mux.HandleFunc("/transactions/send-money", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.sends = append(b.sends, req)
		b.mu.Unlock()
		writeJSON(w, map[string]any{"success": true, "transactionId": "tx9", "senderBalance": 294_00})
	})
	mux.HandleFunc("/agents/withdraw-request", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.requests = append(b.requests, req)
		b.mu.Unlock()
		writeJSON(w, map[string]any{"success": true, "requestId": "rq1", "message": "Request submitted"})
	})
	mux.HandleFunc("/agents/cash-request", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.requests = append(b.requests, req)
		b.mu.Unlock()
		writeJSON(w, map[string]any{"success": true, "requestId": "rq2"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestFlows(t *testing.T, profile map[string]any) (*Service, *session.Store, *flowBackend, func()) {
	t.Helper()
	backend := &flowBackend{profile: profile}
	srv := httptest.NewServer(backend.handler())
	client, err := api.New(srv.URL, time.Second, logging.Discard())
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	sessions := session.NewStore(client, logging.Discard())
	if _, err := sessions.Login(context.Background(), "x@x.test", "12345"); err != nil {
		t.Fatalf("login: %v", err)
	}
	svc := NewService(client, sessions, directory.NewService(client))
	return svc, sessions, backend, srv.Close
}

func userProfile(balance int64) map[string]any {
	return map[string]any{
		"id": "u1", "name": "Alice", "email": "a@x.test", "phone": "01711111111",
		"role": "User", "balance": balance, "approved": true,
	}
}

func agentProfile(balance, income int64) map[string]any {
	return map[string]any{
		"id": "a9", "name": "Karim", "email": "k@x.test", "phone": "01899999999",
		"role": "Agent", "balance": balance, "agentIncome": income, "approved": true,
	}
}

func TestSendMoneyEndToEnd(t *testing.T) {
	svc, sessions, backend, done := newTestFlows(t, userProfile(500_00))
	defer done()

	ctx := context.Background()
	flow, contacts, err := svc.SendMoney(ctx)
	if err != nil {
		t.Fatalf("send money: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("contacts = %+v", contacts)
	}

	if err := flow.Select(contacts[0]); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := flow.SetAmount(201_00); err != nil {
		t.Fatalf("amount: %v", err)
	}
	if err := flow.SetReference("rent"); err != nil {
		t.Fatalf("reference: %v", err)
	}
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	flow.SetPIN("12345")

	res, err := flow.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TransactionID != "tx9" || res.NewBalance != 294_00 {
		t.Fatalf("result = %+v", res)
	}

	// The cached balance adopts the server's figure.
	id, _ := sessions.Current()
	if id.Balance != 294_00 {
		t.Fatalf("cached balance = %d", id.Balance)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.sends) != 1 {
		t.Fatalf("sends = %d", len(backend.sends))
	}
	sent := backend.sends[0]
	if sent["recipientPhone"] != "01722222222" {
		t.Fatalf("recipient = %v", sent["recipientPhone"])
	}
	if sent["amount"] != float64(201_00) {
		t.Fatalf("amount = %v", sent["amount"])
	}
	if sent["reference"] != "rent" {
		t.Fatalf("reference = %v", sent["reference"])
	}
}

func TestSendMoneyInsufficientFundsNeverCallsBackend(t *testing.T) {
	svc, _, backend, done := newTestFlows(t, userProfile(100_00))
	defer done()

	ctx := context.Background()
	flow, contacts, err := svc.SendMoney(ctx)
	if err != nil {
		t.Fatalf("send money: %v", err)
	}
	flow.Select(contacts[0])
	flow.SetAmount(99_00)
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed within balance: %v", err)
	}
	flow.Back()
	// 101.00 + 5.00 fee exceeds the 100.00 balance.
	flow.SetAmount(101_00)
	if err := flow.Proceed(); err == nil {
		t.Fatal("proceed beyond balance accepted")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.sends) != 0 {
		t.Fatal("a rejected proceed still reached the backend")
	}
}

func TestCashInRejectsNonAgents(t *testing.T) {
	svc, _, _, done := newTestFlows(t, userProfile(100_00))
	defer done()

	if _, _, err := svc.CashIn(context.Background()); err == nil {
		t.Fatal("cash-in allowed for a user account")
	}
}

func TestWithdrawRequestCapsAtIncome(t *testing.T) {
	svc, _, backend, done := newTestFlows(t, agentProfile(500_00, 30_00))
	defer done()

	ctx := context.Background()
	flow, err := svc.WithdrawRequest(ctx)
	if err != nil {
		t.Fatalf("withdraw request: %v", err)
	}
	if flow.Step() != wizard.StepEnterAmount {
		t.Fatalf("flow starts at %v", flow.Step())
	}
	if flow.Available() != 30_00 {
		t.Fatalf("available = %d, want the agent income", flow.Available())
	}

	flow.SetAmount(40_00)
	if err := flow.Proceed(); err == nil {
		t.Fatal("amount above income accepted")
	}

	flow.SetAmount(25_00)
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if _, err := flow.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.requests) != 1 || backend.requests[0]["amount"] != float64(25_00) {
		t.Fatalf("requests = %+v", backend.requests)
	}
}

func TestCashRequestIsFixedAmount(t *testing.T) {
	svc, _, backend, done := newTestFlows(t, agentProfile(500_00, 0))
	defer done()

	ctx := context.Background()
	flow, err := svc.CashRequest(ctx)
	if err != nil {
		t.Fatalf("cash request: %v", err)
	}
	if flow.Amount() != money.CashRequestAmount {
		t.Fatalf("amount = %d", flow.Amount())
	}
	if err := flow.SetAmount(1_00); err == nil {
		t.Fatal("fixed amount accepted an edit")
	}
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if _, err := flow.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.requests) != 1 || backend.requests[0]["amount"] != float64(money.CashRequestAmount) {
		t.Fatalf("requests = %+v", backend.requests)
	}
}
