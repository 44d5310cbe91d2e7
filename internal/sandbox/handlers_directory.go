package sandbox

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

// Users lists accounts for counterparty selection, optionally narrowed
// by accountType.
func (s *Server) Users(c *fiber.Ctx) error {
	filter := store.AccountFilter{Role: identity.RoleUser}
	if t := c.Query("accountType"); t != "" {
		filter.Role = identity.ParseRole(t)
	}
	accounts, err := s.store.ListAccounts(c.UserContext(), filter)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	payload := make([]fiber.Map, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Blocked {
			continue
		}
		payload = append(payload, contactJSON(acc))
	}
	return ok(c, "", fiber.Map{"users": payload})
}

// Agents lists agent accounts; approved=true narrows to admin-cleared
// agents, the set users may cash out through.
func (s *Server) Agents(c *fiber.Ctx) error {
	filter := store.AccountFilter{Role: identity.RoleAgent}
	if c.Query("approved") == "true" {
		filter.ApprovedOnly = true
	}
	accounts, err := s.store.ListAccounts(c.UserContext(), filter)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	payload := make([]fiber.Map, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Blocked {
			continue
		}
		payload = append(payload, contactJSON(acc))
	}
	return ok(c, "", fiber.Map{"agents": payload})
}
