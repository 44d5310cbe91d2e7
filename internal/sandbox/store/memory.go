package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/money"
)

// MemoryStore is a concurrency-safe in-memory Store, the sandbox
// default and the backing for unit tests.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	transactions []Transaction
	requests     map[string]Request
}

// NewMemory builds an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		requests: make(map[string]Request),
	}
}

func (m *MemoryStore) CreateAccount(_ context.Context, acc Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Phone == acc.Phone || strings.EqualFold(existing.Email, acc.Email) {
			return ErrDuplicateAccount
		}
	}
	m.accounts[acc.ID] = acc
	return nil
}

func (m *MemoryStore) AccountByID(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (m *MemoryStore) AccountByPhone(_ context.Context, phone string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(func(a Account) bool { return a.Phone == phone })
}

func (m *MemoryStore) AccountByLogin(_ context.Context, emailOrMobile string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(func(a Account) bool {
		return a.Phone == emailOrMobile || strings.EqualFold(a.Email, emailOrMobile)
	})
}

func (m *MemoryStore) findLocked(match func(Account) bool) (Account, error) {
	for _, acc := range m.accounts {
		if match(acc) {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (m *MemoryStore) ListAccounts(_ context.Context, f AccountFilter) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Account, 0)
	for _, acc := range m.accounts {
		if f.Role != "" && acc.Role != f.Role {
			continue
		}
		if f.ApprovedOnly && !acc.Approved {
			continue
		}
		if f.PendingOnly && acc.Approved {
			continue
		}
		if f.PhoneSearch != "" && !strings.Contains(acc.Phone, f.PhoneSearch) {
			continue
		}
		out = append(out, acc)
	}

	sort.Slice(out, func(i, j int) bool {
		if f.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateAccount(_ context.Context, acc Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acc.ID]; !ok {
		return ErrNotFound
	}
	m.accounts[acc.ID] = acc
	return nil
}

func (m *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *MemoryStore) Post(_ context.Context, p Posting) (PostResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.accounts[p.FromID]
	if !ok {
		return PostResult{}, ErrNotFound
	}
	to, ok := m.accounts[p.ToID]
	if !ok {
		return PostResult{}, ErrNotFound
	}
	if from.Balance < p.Amount+p.Fee {
		return PostResult{}, ErrInsufficientFunds
	}

	from.Balance -= p.Amount + p.Fee
	to.Balance += p.Amount
	to.AgentIncome += p.Commission
	m.accounts[from.ID] = from
	m.accounts[to.ID] = to

	tx := Transaction{
		ID:        uuid.NewString(),
		Kind:      p.Kind,
		FromID:    from.ID,
		ToID:      to.ID,
		Amount:    p.Amount,
		Fee:       p.Fee,
		Reference: p.Reference,
		CreatedAt: time.Now().UTC(),
	}
	m.transactions = append(m.transactions, tx)

	return PostResult{
		Tx:          tx,
		FromBalance: from.Balance,
		ToBalance:   to.Balance,
		ToIncome:    to.AgentIncome,
	}, nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, accountID string, limit int) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Transaction, 0)
	for i := len(m.transactions) - 1; i >= 0; i-- {
		tx := m.transactions[i]
		if accountID != "" && tx.FromID != accountID && tx.ToID != accountID {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateRequest(_ context.Context, req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return nil
}

func (m *MemoryStore) ListRequests(_ context.Context, kind, status string) ([]Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Request, 0)
	for _, req := range m.requests {
		if kind != "" && req.Kind != kind {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ResolveRequest(_ context.Context, id string, approve bool) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if req.Status != StatusPending {
		return Request{}, ErrRequestResolved
	}

	if !approve {
		req.Status = StatusRejected
		m.requests[id] = req
		return req, nil
	}

	agent, ok := m.accounts[req.AgentID]
	if !ok {
		return Request{}, ErrNotFound
	}
	switch req.Kind {
	case RequestCash:
		agent.Balance += req.Amount
	case RequestWithdraw:
		if agent.AgentIncome < req.Amount {
			return Request{}, ErrInsufficientFunds
		}
		agent.AgentIncome -= req.Amount
	}
	m.accounts[agent.ID] = agent

	req.Status = StatusApproved
	m.requests[id] = req
	return req, nil
}

func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	for _, acc := range m.accounts {
		switch acc.Role {
		case identity.RoleUser:
			s.TotalUsers++
		case identity.RoleAgent:
			s.TotalAgents++
		}
		s.SystemBalance += acc.Balance
		s.TotalAgentIncome += acc.AgentIncome
	}
	s.TotalTransactions = len(m.transactions)
	return s, nil
}

// SeedBalance is a test helper that overwrites an account's balance.
func SeedBalance(s Store, id string, balance int64) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if acc, exists := mem.accounts[id]; exists {
			acc.Balance = balance
			mem.accounts[id] = acc
		}
	}
}

// SeedIncome is a test helper that overwrites an agent's income.
func SeedIncome(s Store, id string, income int64) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if acc, exists := mem.accounts[id]; exists {
			acc.AgentIncome = income
			mem.accounts[id] = acc
		}
	}
}

// Starter balances for newly registered accounts: users get a signup
// bonus, agents start with a float once approved.
const (
	UserStartingBalance  int64 = 40 * 100
	AgentStartingBalance int64 = money.CashRequestAmount
)
