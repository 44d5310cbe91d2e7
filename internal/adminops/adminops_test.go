package adminops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/logging"
)

// adminBackend records calls and serves a tiny user roster.
type adminBackend struct {
	mu       sync.Mutex
	fetches  int
	searches []string
	paths    []string
	blocked  map[string]bool
}

func (b *adminBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/users", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.fetches++
		b.searches = append(b.searches, r.URL.Query().Get("search"))
		blocked := b.blocked["u1"]
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"users": []map[string]any{
				{"id": "u1", "name": "Alice", "phone": "01711111111", "role": "User", "balance": 40_00, "blocked": blocked},
			},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.paths = append(b.paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/admin/users/u1/block" {
			b.blocked["u1"] = !b.blocked["u1"]
		}
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	return mux
}

func newTestAdmin(t *testing.T) (*Service, *adminBackend, func()) {
	t.Helper()
	backend := &adminBackend{blocked: map[string]bool{}}
	srv := httptest.NewServer(backend.handler())
	client, err := api.New(srv.URL, time.Second, logging.Discard())
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return NewService(client), backend, srv.Close
}

func TestRosterSearchReplacesRowsWithOneFetch(t *testing.T) {
	svc, backend, done := newTestAdmin(t)
	defer done()

	roster := NewUserRoster(svc)
	ctx := context.Background()

	if err := roster.Search(ctx, ""); err != nil {
		t.Fatalf("initial search: %v", err)
	}
	if err := roster.Search(ctx, "0171"); err != nil {
		t.Fatalf("filtered search: %v", err)
	}

	backend.mu.Lock()
	fetches, searches := backend.fetches, backend.searches
	backend.mu.Unlock()
	if fetches != 2 {
		t.Fatalf("fetches = %d, want exactly one per settled search", fetches)
	}
	if searches[1] != "0171" {
		t.Fatalf("search term not sent server-side: %v", searches)
	}
	if roster.SearchTerm() != "0171" {
		t.Fatalf("active term = %q", roster.SearchTerm())
	}
	if len(roster.Rows()) != 1 {
		t.Fatalf("rows = %+v", roster.Rows())
	}
}

func TestToggleBlockThenRefetchShowsServerState(t *testing.T) {
	svc, backend, done := newTestAdmin(t)
	defer done()

	roster := NewUserRoster(svc)
	ctx := context.Background()
	if err := roster.Search(ctx, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	row, err := roster.Row("u1")
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if row.Blocked {
		t.Fatal("fixture starts blocked")
	}

	if err := svc.ToggleUserBlock(ctx, "u1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := roster.Refetch(ctx); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	row, _ = roster.Row("u1")
	if !row.Blocked {
		t.Fatal("refetch did not adopt the server's blocked state")
	}

	backend.mu.Lock()
	paths := backend.paths
	backend.mu.Unlock()
	if len(paths) != 1 || paths[0] != "PATCH /admin/users/u1/block" {
		t.Fatalf("mutations = %v", paths)
	}
}

func TestResolvePathsAndVerbs(t *testing.T) {
	svc, backend, done := newTestAdmin(t)
	defer done()

	ctx := context.Background()
	if err := svc.ResolveCashRequest(ctx, "r1", true); err != nil {
		t.Fatalf("resolve cash: %v", err)
	}
	if err := svc.ResolveWithdrawRequest(ctx, "r2", false); err != nil {
		t.Fatalf("resolve withdraw: %v", err)
	}
	if err := svc.ApproveAgent(ctx, "a1"); err != nil {
		t.Fatalf("approve agent: %v", err)
	}
	if err := svc.RejectAgent(ctx, "a2"); err != nil {
		t.Fatalf("reject agent: %v", err)
	}

	want := []string{
		"PATCH /admin/agent-cash-requests/r1/approve",
		"PATCH /admin/agent-withdraw-requests/r2/reject",
		"PATCH /admin/agents/a1/approve",
		"DELETE /admin/agents/a2/reject",
	}
	backend.mu.Lock()
	paths := backend.paths
	backend.mu.Unlock()
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, paths[i], want[i])
		}
	}
}
