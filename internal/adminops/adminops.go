// Package adminops implements the admin management screens: account
// rosters with server-side search, the agent approval queue, and the
// cash/withdraw request workflows. Row actions issue one mutating call
// and refetch the collection; the client never mutates a list
// optimistically.
package adminops

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/lenden-pay/lenden/internal/api"
)

// AccountRow is one entry of a managed account roster.
type AccountRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	Balance     int64  `json:"balance"`
	AgentIncome int64  `json:"agentIncome"`
	Approved    bool   `json:"approved"`
	Blocked     bool   `json:"blocked"`
}

// RequestRow is one pending cash or withdraw request.
type RequestRow struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agentId"`
	AgentName  string    `json:"agentName"`
	AgentPhone string    `json:"agentPhone"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stats is the admin overview snapshot.
type Stats struct {
	TotalUsers        int   `json:"totalUsers"`
	TotalAgents       int   `json:"totalAgents"`
	TotalTransactions int   `json:"totalTransactions"`
	SystemBalance     int64 `json:"systemBalance"`
	TotalAgentIncome  int64 `json:"totalAgentIncome"`
}

type rosterResponse struct {
	api.Envelope
	Users  []AccountRow `json:"users"`
	Agents []AccountRow `json:"agents"`
}

type requestsResponse struct {
	api.Envelope
	Requests []RequestRow `json:"requests"`
}

type statsResponse struct {
	api.Envelope
	Stats Stats `json:"stats"`
}

// Service issues the admin moderation calls.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Users fetches the user roster, filtered server-side by a phone
// substring. The filter is not duplicated client-side.
func (s *Service) Users(ctx context.Context, search string) ([]AccountRow, error) {
	var resp rosterResponse
	if err := s.client.Get(ctx, "/admin/users", searchQuery(search), &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Agents fetches the agent roster with the same server-side filter.
func (s *Service) Agents(ctx context.Context, search string) ([]AccountRow, error) {
	var resp rosterResponse
	if err := s.client.Get(ctx, "/admin/agents", searchQuery(search), &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

func searchQuery(search string) url.Values {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	return q
}

// ToggleUserBlock flips the blocked flag on a user account.
func (s *Service) ToggleUserBlock(ctx context.Context, id string) error {
	return s.client.Patch(ctx, "/admin/users/"+id+"/block", nil, nil)
}

// ToggleAgentBlock flips the blocked flag on an agent account.
func (s *Service) ToggleAgentBlock(ctx context.Context, id string) error {
	return s.client.Patch(ctx, "/admin/agents/"+id+"/block", nil, nil)
}

// PendingAgents lists agents awaiting admin approval.
func (s *Service) PendingAgents(ctx context.Context) ([]AccountRow, error) {
	var resp rosterResponse
	if err := s.client.Get(ctx, "/admin/agent-approvals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// ApproveAgent activates a pending agent account.
func (s *Service) ApproveAgent(ctx context.Context, id string) error {
	return s.client.Patch(ctx, "/admin/agents/"+id+"/approve", nil, nil)
}

// RejectAgent removes a pending agent account.
func (s *Service) RejectAgent(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/admin/agents/"+id+"/reject", nil)
}

// CashRequests lists pending agent cash requests.
func (s *Service) CashRequests(ctx context.Context) ([]RequestRow, error) {
	return s.requests(ctx, "/admin/agent-cash-requests")
}

// WithdrawRequests lists pending agent withdraw requests.
func (s *Service) WithdrawRequests(ctx context.Context) ([]RequestRow, error) {
	return s.requests(ctx, "/admin/agent-withdraw-requests")
}

func (s *Service) requests(ctx context.Context, path string) ([]RequestRow, error) {
	q := url.Values{"status": {"pending"}}
	var resp requestsResponse
	if err := s.client.Get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// ResolveCashRequest approves or rejects one cash request. The next
// status is whatever the server says on refetch, never computed here.
func (s *Service) ResolveCashRequest(ctx context.Context, id string, approve bool) error {
	return s.resolve(ctx, "/admin/agent-cash-requests/"+id, approve)
}

// ResolveWithdrawRequest approves or rejects one withdraw request.
func (s *Service) ResolveWithdrawRequest(ctx context.Context, id string, approve bool) error {
	return s.resolve(ctx, "/admin/agent-withdraw-requests/"+id, approve)
}

func (s *Service) resolve(ctx context.Context, path string, approve bool) error {
	verb := "/reject"
	if approve {
		verb = "/approve"
	}
	return s.client.Patch(ctx, path+verb, nil, nil)
}

// SystemStats fetches the admin overview counters.
func (s *Service) SystemStats(ctx context.Context) (Stats, error) {
	var resp statsResponse
	if err := s.client.Get(ctx, "/admin/system-stats", nil, &resp); err != nil {
		return Stats{}, err
	}
	return resp.Stats, nil
}

// RecentUsers fetches the newest user accounts for the overview.
func (s *Service) RecentUsers(ctx context.Context) ([]AccountRow, error) {
	var resp rosterResponse
	if err := s.client.Get(ctx, "/admin/recent-users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// RecentAgents fetches the newest agent accounts for the overview.
func (s *Service) RecentAgents(ctx context.Context) ([]AccountRow, error) {
	var resp rosterResponse
	if err := s.client.Get(ctx, "/admin/recent-agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// Roster is the stateful list a management screen renders: a search
// filter plus the rows the last fetch returned. Every settled search
// change triggers exactly one fetch, and the fetched collection replaces
// the displayed one.
type Roster struct {
	svc    *Service
	fetch  func(ctx context.Context, search string) ([]AccountRow, error)
	search string
	rows   []AccountRow
}

// NewUserRoster builds the Manage Users list.
func NewUserRoster(svc *Service) *Roster {
	return &Roster{svc: svc, fetch: svc.Users}
}

// NewAgentRoster builds the Manage Agents list.
func NewAgentRoster(svc *Service) *Roster {
	return &Roster{svc: svc, fetch: svc.Agents}
}

// Rows returns the currently displayed collection.
func (r *Roster) Rows() []AccountRow { return r.rows }

// SearchTerm returns the active filter.
func (r *Roster) SearchTerm() string { return r.search }

// Search applies a settled filter change: one fetch, replace rows.
func (r *Roster) Search(ctx context.Context, term string) error {
	rows, err := r.fetch(ctx, term)
	if err != nil {
		return err
	}
	r.search = term
	r.rows = rows
	return nil
}

// Refetch reloads the collection under the current filter, used after a
// row mutation succeeds.
func (r *Roster) Refetch(ctx context.Context) error {
	return r.Search(ctx, r.search)
}

// Row looks up a displayed row by identifier.
func (r *Roster) Row(id string) (AccountRow, error) {
	for _, row := range r.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return AccountRow{}, fmt.Errorf("no row with id %s", id)
}
