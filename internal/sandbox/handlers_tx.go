package sandbox

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/money"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

const maxReferenceLen = 25

type sendMoneyRequest struct {
	RecipientPhone string `json:"recipientPhone"`
	Amount         int64  `json:"amount"`
	PIN            string `json:"pin"`
	Reference      string `json:"reference"`
}

// SendMoney executes a P2P transfer from the authenticated user. The
// server recomputes the fee; whatever the client estimated is ignored.
func (s *Server) SendMoney(c *fiber.Ctx) error {
	sender := currentAccount(c)

	var req sendMoneyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount < money.MinTransfer {
		return fail(c, fiber.StatusBadRequest, "minimum amount is "+money.Format(money.MinTransfer))
	}
	if len(req.Reference) > maxReferenceLen {
		return fail(c, fiber.StatusBadRequest, "reference too long")
	}
	if err := verifyPIN(sender, req.PIN); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid PIN")
	}

	recipient, err := s.store.AccountByPhone(c.UserContext(), req.RecipientPhone)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "recipient not found")
	}
	if recipient.ID == sender.ID {
		return fail(c, fiber.StatusBadRequest, "cannot send money to yourself")
	}
	if recipient.Role != identity.RoleUser {
		return fail(c, fiber.StatusBadRequest, "recipient must be a user account")
	}

	res, err := s.store.Post(c.UserContext(), store.Posting{
		Kind:      store.KindSendMoney,
		FromID:    sender.ID,
		ToID:      recipient.ID,
		Amount:    req.Amount,
		Fee:       money.TransferFee(req.Amount),
		Reference: req.Reference,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return fail(c, fiber.StatusBadRequest, "insufficient balance")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	s.notifier.TransactionCompleted(c.UserContext(), res.Tx, recipient.ID)
	return ok(c, "Transaction successful", fiber.Map{
		"transactionId": res.Tx.ID,
		"senderBalance": res.FromBalance,
		"fee":           res.Tx.Fee,
	})
}

type cashOutRequest struct {
	AgentPhone string `json:"agentPhone"`
	Amount     int64  `json:"amount"`
	PIN        string `json:"pin"`
}

// CashOut debits the user, credits the agent's float and pays the agent
// a 1% commission. The 1.5% fee is recomputed server-side.
func (s *Server) CashOut(c *fiber.Ctx) error {
	user := currentAccount(c)

	var req cashOutRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		return fail(c, fiber.StatusBadRequest, "please enter a valid amount")
	}
	if err := verifyPIN(user, req.PIN); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid PIN")
	}

	agent, err := s.store.AccountByPhone(c.UserContext(), req.AgentPhone)
	if err != nil || agent.Role != identity.RoleAgent || !agent.Approved {
		return fail(c, fiber.StatusBadRequest, "agent not found or not approved")
	}

	res, err := s.store.Post(c.UserContext(), store.Posting{
		Kind:       store.KindCashOut,
		FromID:     user.ID,
		ToID:       agent.ID,
		Amount:     req.Amount,
		Fee:        money.CashOutFee(req.Amount),
		Commission: money.AgentCommission(req.Amount),
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return fail(c, fiber.StatusBadRequest, "insufficient balance for cash out")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	s.notifier.TransactionCompleted(c.UserContext(), res.Tx, agent.ID)
	return ok(c, "Cash out successful", fiber.Map{
		"transactionId": res.Tx.ID,
		"newBalance":    res.FromBalance,
		"fee":           res.Tx.Fee,
	})
}

type cashInRequest struct {
	UserPhone string `json:"userPhone"`
	Amount    int64  `json:"amount"`
	PIN       string `json:"pin"`
	Reference string `json:"reference"`
}

// CashIn moves value from the agent's float into a user's balance
// against physical cash the agent received. No fee either way.
func (s *Server) CashIn(c *fiber.Ctx) error {
	agent := currentAccount(c)

	var req cashInRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		return fail(c, fiber.StatusBadRequest, "please enter a valid amount")
	}
	if len(req.Reference) > maxReferenceLen {
		return fail(c, fiber.StatusBadRequest, "reference too long")
	}
	if err := verifyPIN(agent, req.PIN); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid PIN")
	}

	user, err := s.store.AccountByPhone(c.UserContext(), req.UserPhone)
	if err != nil || user.Role != identity.RoleUser {
		return fail(c, fiber.StatusBadRequest, "user not found")
	}

	res, err := s.store.Post(c.UserContext(), store.Posting{
		Kind:      store.KindCashIn,
		FromID:    agent.ID,
		ToID:      user.ID,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return fail(c, fiber.StatusBadRequest, "insufficient agent float")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	s.notifier.TransactionCompleted(c.UserContext(), res.Tx, user.ID)
	return ok(c, "Cash in successful", fiber.Map{
		"transactionId": res.Tx.ID,
		"userBalance":   res.ToBalance,
		"agentBalance":  res.FromBalance,
	})
}

// Transactions lists the ledger scoped to one account. Non-admin
// callers only see their own history.
func (s *Server) Transactions(c *fiber.Ctx) error {
	caller := currentAccount(c)

	accountID := c.Query("userId")
	if accountID == "" {
		accountID = c.Query("agentId")
	}
	// Non-admin callers only ever see their own history; an admin with
	// no filter gets the whole ledger.
	if caller.Role != identity.RoleAdmin {
		if accountID == "" {
			accountID = caller.ID
		}
		if accountID != caller.ID {
			return fiber.NewError(fiber.StatusForbidden, "forbidden")
		}
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	txs, err := s.store.ListTransactions(c.UserContext(), accountID, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	payload := make([]fiber.Map, 0, len(txs))
	for _, tx := range txs {
		payload = append(payload, transactionJSON(tx))
	}
	return ok(c, "", fiber.Map{"transactions": payload})
}

func verifyPIN(acc store.Account, pin string) error {
	return bcrypt.CompareHashAndPassword(acc.PINHash, []byte(pin))
}
