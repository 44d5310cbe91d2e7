package sandbox

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

const recentLimit = 5

// AdminUsers lists user accounts, filtered by a phone substring.
func (s *Server) AdminUsers(c *fiber.Ctx) error {
	accounts, err := s.store.ListAccounts(c.UserContext(), store.AccountFilter{
		Role:        identity.RoleUser,
		PhoneSearch: c.Query("search"),
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "", fiber.Map{"users": accountsJSON(accounts)})
}

// AdminAgents lists agent accounts, filtered by a phone substring.
func (s *Server) AdminAgents(c *fiber.Ctx) error {
	accounts, err := s.store.ListAccounts(c.UserContext(), store.AccountFilter{
		Role:        identity.RoleAgent,
		PhoneSearch: c.Query("search"),
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "", fiber.Map{"agents": accountsJSON(accounts)})
}

// AgentApprovals lists agents awaiting approval.
func (s *Server) AgentApprovals(c *fiber.Ctx) error {
	accounts, err := s.store.ListAccounts(c.UserContext(), store.AccountFilter{
		Role:        identity.RoleAgent,
		PendingOnly: true,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "", fiber.Map{"agents": accountsJSON(accounts)})
}

// ToggleUserBlock flips the blocked flag on a user account.
func (s *Server) ToggleUserBlock(c *fiber.Ctx) error {
	return s.toggleBlock(c, identity.RoleUser)
}

// ToggleAgentBlock flips the blocked flag on an agent account.
func (s *Server) ToggleAgentBlock(c *fiber.Ctx) error {
	return s.toggleBlock(c, identity.RoleAgent)
}

func (s *Server) toggleBlock(c *fiber.Ctx, role identity.Role) error {
	acc, err := s.store.AccountByID(c.UserContext(), c.Params("id"))
	if err != nil || acc.Role != role {
		return fail(c, fiber.StatusNotFound, "account not found")
	}
	acc.Blocked = !acc.Blocked
	if err := s.store.UpdateAccount(c.UserContext(), acc); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	message := "Account unblocked"
	if acc.Blocked {
		message = "Account blocked"
	}
	return ok(c, message, fiber.Map{"user": accountJSON(acc)})
}

// ApproveAgent activates a pending agent and grants the starting float.
func (s *Server) ApproveAgent(c *fiber.Ctx) error {
	acc, err := s.store.AccountByID(c.UserContext(), c.Params("id"))
	if err != nil || acc.Role != identity.RoleAgent {
		return fail(c, fiber.StatusNotFound, "agent not found")
	}
	if acc.Approved {
		return fail(c, fiber.StatusBadRequest, "agent already approved")
	}
	acc.Approved = true
	acc.Balance += store.AgentStartingBalance
	if err := s.store.UpdateAccount(c.UserContext(), acc); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "Agent approved", fiber.Map{"agent": accountJSON(acc)})
}

// RejectAgent removes a pending agent account entirely.
func (s *Server) RejectAgent(c *fiber.Ctx) error {
	acc, err := s.store.AccountByID(c.UserContext(), c.Params("id"))
	if err != nil || acc.Role != identity.RoleAgent {
		return fail(c, fiber.StatusNotFound, "agent not found")
	}
	if acc.Approved {
		return fail(c, fiber.StatusBadRequest, "cannot reject an approved agent")
	}
	if err := s.store.DeleteAccount(c.UserContext(), acc.ID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "Agent rejected", nil)
}

// CashRequests lists agent cash requests by status.
func (s *Server) CashRequests(c *fiber.Ctx) error {
	return s.listRequests(c, store.RequestCash)
}

// WithdrawRequests lists agent withdraw requests by status.
func (s *Server) WithdrawRequests(c *fiber.Ctx) error {
	return s.listRequests(c, store.RequestWithdraw)
}

func (s *Server) listRequests(c *fiber.Ctx, kind string) error {
	status := c.Query("status")
	requests, err := s.store.ListRequests(c.UserContext(), kind, status)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	payload := make([]fiber.Map, 0, len(requests))
	for _, req := range requests {
		agent, err := s.store.AccountByID(c.UserContext(), req.AgentID)
		if err != nil {
			agent = store.Account{}
		}
		payload = append(payload, requestJSON(req, agent))
	}
	return ok(c, "", fiber.Map{"requests": payload})
}

// ResolveCashRequest approves or rejects a cash request; approval
// credits the agent's float.
func (s *Server) ResolveCashRequest(c *fiber.Ctx) error {
	return s.resolveRequest(c)
}

// ResolveWithdrawRequest approves or rejects a withdraw request;
// approval debits the agent's income.
func (s *Server) ResolveWithdrawRequest(c *fiber.Ctx) error {
	return s.resolveRequest(c)
}

func (s *Server) resolveRequest(c *fiber.Ctx) error {
	approve := strings.HasSuffix(c.Path(), "/approve")
	req, err := s.store.ResolveRequest(c.UserContext(), c.Params("id"), approve)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fail(c, fiber.StatusNotFound, "request not found")
		case errors.Is(err, store.ErrRequestResolved):
			return fail(c, fiber.StatusBadRequest, "request already resolved")
		case errors.Is(err, store.ErrInsufficientFunds):
			return fail(c, fiber.StatusBadRequest, "agent income no longer covers this request")
		default:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	}
	message := "Request rejected"
	if approve {
		message = "Request approved"
	}
	return ok(c, message, fiber.Map{"status": req.Status})
}

// SystemStats returns the admin overview counters.
func (s *Server) SystemStats(c *fiber.Ctx) error {
	stats, err := s.store.Stats(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "", fiber.Map{"stats": fiber.Map{
		"totalUsers":        stats.TotalUsers,
		"totalAgents":       stats.TotalAgents,
		"totalTransactions": stats.TotalTransactions,
		"systemBalance":     stats.SystemBalance,
		"totalAgentIncome":  stats.TotalAgentIncome,
	}})
}

// RecentUsers returns the newest user accounts.
func (s *Server) RecentUsers(c *fiber.Ctx) error {
	accounts, err := s.store.ListAccounts(c.UserContext(), store.AccountFilter{
		Role:        identity.RoleUser,
		NewestFirst: true,
		Limit:       recentLimit,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "", fiber.Map{"users": accountsJSON(accounts)})
}

// RecentAgents returns the newest agent accounts.
func (s *Server) RecentAgents(c *fiber.Ctx) error {
	accounts, err := s.store.ListAccounts(c.UserContext(), store.AccountFilter{
		Role:        identity.RoleAgent,
		NewestFirst: true,
		Limit:       recentLimit,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "", fiber.Map{"agents": accountsJSON(accounts)})
}

func accountsJSON(accounts []store.Account) []fiber.Map {
	payload := make([]fiber.Map, 0, len(accounts))
	for _, acc := range accounts {
		payload = append(payload, accountJSON(acc))
	}
	return payload
}
