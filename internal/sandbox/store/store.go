// Package store persists the sandbox backend's accounts, transactions
// and agent requests. The in-memory implementation is the default; the
// Postgres implementation backs longer-lived sandboxes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lenden-pay/lenden/internal/identity"
)

var (
	// ErrNotFound indicates a missing account, transaction or request.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAccount indicates the phone or email is taken.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInsufficientFunds occurs when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient balance")
	// ErrRequestResolved indicates the request is no longer pending.
	ErrRequestResolved = errors.New("request already resolved")
)

// Account is a registered user, agent or admin.
type Account struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Role        identity.Role
	PINHash     []byte
	NationalID  string
	Balance     int64
	AgentIncome int64
	Approved    bool
	Blocked     bool
	CreatedAt   time.Time
}

// Transaction is one completed money movement.
type Transaction struct {
	ID        string
	Kind      string
	FromID    string
	ToID      string
	Amount    int64
	Fee       int64
	Reference string
	CreatedAt time.Time
}

// Transaction kinds.
const (
	KindSendMoney = "send-money"
	KindCashIn    = "cash-in"
	KindCashOut   = "cash-out"
	KindRecharge  = "recharge"
	KindWithdraw  = "withdraw"
)

// Request is an agent-initiated cash or withdraw request.
type Request struct {
	ID        string
	AgentID   string
	Kind      string
	Amount    int64
	Reason    string
	Status    string
	CreatedAt time.Time
}

// Request kinds and statuses.
const (
	RequestCash     = "cash"
	RequestWithdraw = "withdraw"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Role         identity.Role
	ApprovedOnly bool
	PendingOnly  bool
	// PhoneSearch is a substring match on the phone number, applied
	// server-side.
	PhoneSearch string
	Limit       int
	NewestFirst bool
}

// Posting is one atomic money movement: debit amount+fee from the
// source, credit amount to the destination, and optionally credit a
// commission to the destination's agent income.
type Posting struct {
	Kind       string
	FromID     string
	ToID       string
	Amount     int64
	Fee        int64
	Commission int64
	Reference  string
}

// PostResult reports the authoritative balances after a posting.
type PostResult struct {
	Tx          Transaction
	FromBalance int64
	ToBalance   int64
	ToIncome    int64
}

// Stats is the admin overview snapshot.
type Stats struct {
	TotalUsers        int
	TotalAgents       int
	TotalTransactions int
	SystemBalance     int64
	TotalAgentIncome  int64
}

// Store is the persistence contract the sandbox handlers rely on.
type Store interface {
	CreateAccount(ctx context.Context, acc Account) error
	AccountByID(ctx context.Context, id string) (Account, error)
	AccountByPhone(ctx context.Context, phone string) (Account, error)
	// AccountByLogin matches either email or phone.
	AccountByLogin(ctx context.Context, emailOrMobile string) (Account, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]Account, error)
	UpdateAccount(ctx context.Context, acc Account) error
	DeleteAccount(ctx context.Context, id string) error

	Post(ctx context.Context, p Posting) (PostResult, error)
	ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)

	CreateRequest(ctx context.Context, req Request) error
	ListRequests(ctx context.Context, kind, status string) ([]Request, error)
	// ResolveRequest flips a pending request and, on approval, applies
	// its money effect atomically: cash requests credit the agent's
	// balance, withdraw requests debit the agent's income.
	ResolveRequest(ctx context.Context, id string, approve bool) (Request, error)

	Stats(ctx context.Context) (Stats, error)
}
