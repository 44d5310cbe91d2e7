package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/identity"
)

// Store holds the current authenticated identity. The identity is either
// empty or fully populated; it is replaced wholesale on every fetch and
// cleared on logout or on an auth-failure interception.
type Store struct {
	client *api.Client
	logger *slog.Logger

	mu      sync.RWMutex
	current *identity.Identity
}

// NewStore wires a session store to the API client and installs the
// client's unauthorized hook so a 401/403 anywhere clears the identity.
func NewStore(client *api.Client, logger *slog.Logger) *Store {
	s := &Store{client: client, logger: logger}
	client.SetUnauthorizedHook(s.clear)
	return s
}

// Current returns the identity and whether a session is present.
func (s *Store) Current() (identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return identity.Identity{}, false
	}
	return *s.current, true
}

func (s *Store) set(id identity.Identity) {
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
}

func (s *Store) clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// UserPayload is the account object carried by auth and profile
// responses.
type UserPayload struct {
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

// Identity converts the wire payload into a session identity. An
// unrecognised role collapses to User.
func (p UserPayload) Identity() identity.Identity {
	return identity.Identity{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		Role:        identity.ParseRole(p.Role),
		Balance:     p.Balance,
		AgentIncome: p.AgentIncome,
		Approved:    p.Approved,
		Blocked:     p.Blocked,
	}
}

type profileResponse struct {
	api.Envelope
	User *UserPayload `json:"user"`
}

// Refresh loads the profile for whatever session cookie is present. Any
// failure is treated as "logged out" and surfaced to nobody; the app
// starts unauthenticated.
func (s *Store) Refresh(ctx context.Context) {
	var resp profileResponse
	if err := s.client.Get(ctx, "/profile", nil, &resp); err != nil || resp.User == nil {
		if err != nil && !errors.Is(err, api.ErrSessionExpired) && s.logger != nil {
			s.logger.Debug("profile fetch failed", "error", err)
		}
		s.clear()
		return
	}
	s.set(resp.User.Identity())
}

type loginRequest struct {
	EmailOrMobile string `json:"emailOrMobile"`
	PIN           string `json:"pin"`
}

type loginResponse struct {
	api.Envelope
	Role string       `json:"role"`
	User *UserPayload `json:"user"`
}

// Login submits credentials and populates the identity on success. The
// returned error carries the backend-provided message for display.
func (s *Store) Login(ctx context.Context, emailOrMobile, pin string) (identity.Identity, error) {
	emailOrMobile = strings.TrimSpace(emailOrMobile)
	if emailOrMobile == "" || pin == "" {
		return identity.Identity{}, fmt.Errorf("mobile number / email and PIN are required")
	}

	// Fresh cookie jar and a rearmed auth-failure latch for the new
	// session generation.
	s.client.ResetSession()

	var resp loginResponse
	if err := s.client.Post(ctx, "/login", loginRequest{EmailOrMobile: emailOrMobile, PIN: pin}, &resp); err != nil {
		return identity.Identity{}, err
	}
	if resp.User == nil {
		return identity.Identity{}, fmt.Errorf("login succeeded without a profile")
	}
	id := resp.User.Identity()
	if resp.Role != "" {
		id.Role = identity.ParseRole(resp.Role)
	}
	s.set(id)
	return id, nil
}

// RegisterInput carries a new-account request.
type RegisterInput struct {
	Name        string
	PIN         string
	Email       string
	Phone       string
	AccountType identity.Role
	NationalID  string
}

type registerRequest struct {
	Name       string `json:"name"`
	PIN        string `json:"pin"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalId"`
}

// Register submits a new-account request to the role-specific endpoint.
// Agent accounts come back unapproved; the informational message from
// the backend is returned for display.
func (s *Store) Register(ctx context.Context, in RegisterInput) (identity.Identity, string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return identity.Identity{}, "", fmt.Errorf("name is required")
	}
	if !identity.ValidPIN(in.PIN) {
		return identity.Identity{}, "", fmt.Errorf("PIN must be exactly %d digits", identity.PINLength)
	}
	if !strings.Contains(in.Email, "@") {
		return identity.Identity{}, "", fmt.Errorf("a valid email is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return identity.Identity{}, "", fmt.Errorf("mobile number is required")
	}
	if strings.TrimSpace(in.NationalID) == "" {
		return identity.Identity{}, "", fmt.Errorf("national ID is required")
	}

	path := "/register-user"
	if in.AccountType == identity.RoleAgent {
		path = "/register-agent"
	}

	s.client.ResetSession()

	var resp loginResponse
	req := registerRequest{Name: in.Name, PIN: in.PIN, Email: in.Email, Phone: in.Phone, NationalID: in.NationalID}
	if err := s.client.Post(ctx, path, req, &resp); err != nil {
		return identity.Identity{}, "", err
	}
	if resp.User == nil {
		return identity.Identity{}, "", fmt.Errorf("registration succeeded without a profile")
	}
	id := resp.User.Identity()
	s.set(id)
	return id, resp.Message, nil
}

// Logout clears the identity locally first, then asks the backend to
// invalidate the session. The local clear never waits on the network so
// a dead backend cannot leave a stuck session.
func (s *Store) Logout(ctx context.Context) error {
	s.clear()
	err := s.client.Post(ctx, "/logout", nil, nil)
	s.client.ResetSession()
	if err != nil && !errors.Is(err, api.ErrSessionExpired) {
		return err
	}
	return nil
}

// UpdateBalance overwrites the cached balance with the authoritative
// value a transaction response reported. No-op when logged out.
func (s *Store) UpdateBalance(balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Balance = balance
	}
}

// UpdateAgentIncome overwrites the cached agent income.
func (s *Store) UpdateAgentIncome(income int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.AgentIncome = income
	}
}
