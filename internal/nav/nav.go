// Package nav models the role-based dashboard navigation: a fixed menu
// per role, a home destination per role, and the guard that gates the
// dashboard behind a resolved session.
package nav

import "github.com/lenden-pay/lenden/internal/identity"

// Destination is a named dashboard screen.
type Destination struct {
	Key   string
	Title string
}

// Login is where unauthenticated navigation lands.
var Login = Destination{Key: "login", Title: "Login"}

var (
	UserHome         = Destination{Key: "user-home", Title: "Home"}
	SendMoney        = Destination{Key: "send-money", Title: "Send Money"}
	CashOut          = Destination{Key: "cash-out", Title: "Cash Out"}
	Transactions     = Destination{Key: "transactions", Title: "Transactions"}
	AgentHome        = Destination{Key: "agent-home", Title: "Agent Home"}
	CashIn           = Destination{Key: "cash-in", Title: "Cash In"}
	CashRequest      = Destination{Key: "cash-request", Title: "Request Cash"}
	WithdrawRequest  = Destination{Key: "withdraw-request", Title: "Withdraw Income"}
	AdminHome        = Destination{Key: "admin-home", Title: "Admin Home"}
	ManageUsers      = Destination{Key: "manage-users", Title: "Manage Users"}
	ManageAgents     = Destination{Key: "manage-agents", Title: "Manage Agents"}
	AgentApprovals   = Destination{Key: "agent-approvals", Title: "Agent Approvals"}
	CashRequests     = Destination{Key: "agent-cash-requests", Title: "Cash Requests"}
	WithdrawRequests = Destination{Key: "agent-withdraw-requests", Title: "Withdraw Requests"}
	Logout           = Destination{Key: "logout", Title: "Log Out"}
)

var (
	userMenu  = []Destination{UserHome, SendMoney, CashOut, Transactions, Logout}
	agentMenu = []Destination{AgentHome, CashIn, CashRequest, WithdrawRequest, Transactions, Logout}
	adminMenu = []Destination{AdminHome, ManageUsers, ManageAgents, AgentApprovals, CashRequests, WithdrawRequests, Logout}
)

// MenuFor returns the fixed navigation menu for a role. The lookup is a
// static table; an out-of-range role never reaches here because
// identity.ParseRole collapses unknowns to User.
func MenuFor(role identity.Role) []Destination {
	switch role {
	case identity.RoleAdmin:
		return adminMenu
	case identity.RoleAgent:
		return agentMenu
	default:
		return userMenu
	}
}

// HomeFor returns the landing destination after login for a role.
func HomeFor(role identity.Role) Destination {
	switch role {
	case identity.RoleAdmin:
		return AdminHome
	case identity.RoleAgent:
		return AgentHome
	default:
		return UserHome
	}
}

// Decision is the route guard's verdict for a requested destination.
type Decision struct {
	// Pending means the session fetch is still in flight; render a
	// placeholder and decide again once resolved.
	Pending bool
	// Allowed grants the requested destination.
	Allowed bool
	// RedirectTo is the destination to navigate to instead, with the
	// originally requested destination preserved for post-login return.
	RedirectTo Destination
	// Requested is echoed back so login can return the user there.
	Requested Destination
}

// Guard gates the dashboard subtree on session presence. A pure gating
// decision with no side effects.
func Guard(resolved, authenticated bool, requested Destination) Decision {
	if !resolved {
		return Decision{Pending: true, Requested: requested}
	}
	if !authenticated {
		return Decision{RedirectTo: Login, Requested: requested}
	}
	return Decision{Allowed: true, Requested: requested}
}
