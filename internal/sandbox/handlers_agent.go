package sandbox

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/lenden-pay/lenden/internal/money"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

type agentRequestBody struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// CashRequest files the fixed-amount float recharge request an agent
// sends to admin.
func (s *Server) CashRequest(c *fiber.Ctx) error {
	agent := currentAccount(c)

	var req agentRequestBody
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount != money.CashRequestAmount {
		return fail(c, fiber.StatusBadRequest, "cash requests are fixed at "+money.Format(money.CashRequestAmount))
	}

	pending, err := s.store.ListRequests(c.UserContext(), store.RequestCash, store.StatusPending)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	for _, p := range pending {
		if p.AgentID == agent.ID {
			return fail(c, fiber.StatusBadRequest, "you already have a pending cash request")
		}
	}

	record := store.Request{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Kind:      store.RequestCash,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Status:    store.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRequest(c.UserContext(), record); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "Cash request submitted for admin approval", fiber.Map{"requestId": record.ID})
}

// WithdrawRequest files a request to pay out earned agent income.
func (s *Server) WithdrawRequest(c *fiber.Ctx) error {
	agent := currentAccount(c)

	var req agentRequestBody
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		return fail(c, fiber.StatusBadRequest, "please enter a valid amount")
	}
	if req.Amount > agent.AgentIncome {
		return fail(c, fiber.StatusBadRequest, "you cannot withdraw more than your agent income")
	}

	record := store.Request{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Kind:      store.RequestWithdraw,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Status:    store.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRequest(c.UserContext(), record); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, "Withdraw request submitted for admin approval", fiber.Map{"requestId": record.ID})
}
