// Package history reads the transaction log: the user's own recent
// activity and the per-account overlays admin screens show on demand.
package history

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/lenden-pay/lenden/internal/api"
)

// Record is a read-only projection of a ledger transaction. It is never
// constructed or mutated client-side.
type Record struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Fee       int64     `json:"fee"`
	Reference string    `json:"reference"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"createdAt"`
}

type listResponse struct {
	api.Envelope
	Transactions []Record `json:"transactions"`
}

// Service fetches transaction lists.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Query scopes a transaction fetch to one account.
type Query struct {
	UserID  string
	AgentID string
	Limit   int
}

// List fetches the records matching the query. Each call replaces the
// caller's previous view; nothing is appended client-side.
func (s *Service) List(ctx context.Context, q Query) ([]Record, error) {
	values := url.Values{}
	if q.UserID != "" {
		values.Set("userId", q.UserID)
	}
	if q.AgentID != "" {
		values.Set("agentId", q.AgentID)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	var resp listResponse
	if err := s.client.Get(ctx, "/transactions", values, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}
