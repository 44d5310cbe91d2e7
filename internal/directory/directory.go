package directory

import (
	"context"
	"net/url"
	"strings"

	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/identity"
)

// Service performs the directory lookups wizard flows need to pick a
// counterparty. Results live only for the duration of a wizard session.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

type contactPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type usersResponse struct {
	api.Envelope
	Users []contactPayload `json:"users"`
}

type agentsResponse struct {
	api.Envelope
	Agents []contactPayload `json:"agents"`
}

// Users lists accounts of type User, the recipients for transfers and
// cash-in.
func (s *Service) Users(ctx context.Context) ([]identity.Counterparty, error) {
	q := url.Values{"accountType": {string(identity.RoleUser)}}
	var resp usersResponse
	if err := s.client.Get(ctx, "/users", q, &resp); err != nil {
		return nil, err
	}
	return toCounterparties(resp.Users), nil
}

// ApprovedAgents lists agents cleared by admin, the counterparties for
// cash-out.
func (s *Service) ApprovedAgents(ctx context.Context) ([]identity.Counterparty, error) {
	q := url.Values{"approved": {"true"}}
	var resp agentsResponse
	if err := s.client.Get(ctx, "/agents", q, &resp); err != nil {
		return nil, err
	}
	return toCounterparties(resp.Agents), nil
}

func toCounterparties(payloads []contactPayload) []identity.Counterparty {
	out := make([]identity.Counterparty, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, identity.Counterparty{ID: p.ID, Name: p.Name, Phone: p.Phone})
	}
	return out
}

// Filter narrows contacts by a live search term: case-insensitive
// substring match on the name, plain substring match on the phone.
func Filter(contacts []identity.Counterparty, term string) []identity.Counterparty {
	if term == "" {
		return contacts
	}
	lowered := strings.ToLower(term)
	out := make([]identity.Counterparty, 0, len(contacts))
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), lowered) || strings.Contains(c.Phone, term) {
			out = append(out, c)
		}
	}
	return out
}
