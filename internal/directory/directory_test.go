package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/logging"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client, err := api.New(srv.URL, time.Second, logging.Discard())
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return NewService(client), srv.Close
}

func TestUsersSendsAccountTypeQuery(t *testing.T) {
	svc, done := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("accountType"); got != "User" {
			t.Errorf("accountType = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"users":[{"id":"u1","name":"Alice","phone":"01711111111"}]}`))
	}))
	defer done()

	users, err := svc.Users(context.Background())
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Alice" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestApprovedAgentsSendsApprovedQuery(t *testing.T) {
	svc, done := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("approved"); got != "true" {
			t.Errorf("approved = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"agents":[]}`))
	}))
	defer done()

	agents, err := svc.ApprovedAgents(context.Background())
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	if len(agents) != 0 {
		t.Fatalf("unexpected agents: %+v", agents)
	}
}

func TestFilter(t *testing.T) {
	contacts := []identity.Counterparty{
		{ID: "1", Name: "Alice Rahman", Phone: "01711111111"},
		{ID: "2", Name: "Bashir Uddin", Phone: "01822222222"},
		{ID: "3", Name: "alim", Phone: "01933333333"},
	}

	if got := Filter(contacts, ""); len(got) != 3 {
		t.Fatalf("empty term filtered to %d", len(got))
	}
	if got := Filter(contacts, "ali"); len(got) != 2 {
		t.Fatalf("name match returned %d, want 2", len(got))
	}
	if got := Filter(contacts, "ALI"); len(got) != 2 {
		t.Fatalf("name match should ignore case, got %d", len(got))
	}
	if got := Filter(contacts, "0182"); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("phone match returned %+v", got)
	}
	if got := Filter(contacts, "zzz"); len(got) != 0 {
		t.Fatalf("no-match term returned %+v", got)
	}
}
