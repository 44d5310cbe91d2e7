package identity

import "time"

// Role is the closed set of account types the service recognises.
type Role string

const (
	RoleUser  Role = "User"
	RoleAgent Role = "Agent"
	RoleAdmin Role = "Admin"
)

// ParseRole maps a wire value onto a known role. Anything unrecognised
// collapses to the least-privileged role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAgent:
		return RoleAgent
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Valid reports whether the role is one of the three enumerated variants.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Identity is the client-side view of the authenticated account. It is
// replaced wholesale on every profile fetch and cleared on logout; it is
// never partially populated.
type Identity struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Role        Role
	Balance     int64
	AgentIncome int64
	Approved    bool
	Blocked     bool
	CreatedAt   time.Time
}

// Counterparty is a transfer recipient or agent reference, fetched per
// wizard session and discarded with the form.
type Counterparty struct {
	ID    string
	Name  string
	Phone string
}
