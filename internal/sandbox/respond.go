package sandbox

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

// ok writes the uniform success envelope with optional payload fields.
func ok(c *fiber.Ctx, message string, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// fail writes a business rejection. The client treats success:false as
// a recoverable, displayable error regardless of the HTTP status.
func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

// accountJSON is the wire shape of an account shared by auth, profile
// and admin responses.
func accountJSON(acc store.Account) fiber.Map {
	return fiber.Map{
		"id":          acc.ID,
		"name":        acc.Name,
		"email":       acc.Email,
		"phone":       acc.Phone,
		"role":        string(acc.Role),
		"balance":     acc.Balance,
		"agentIncome": acc.AgentIncome,
		"approved":    acc.Approved,
		"blocked":     acc.Blocked,
	}
}

// contactJSON is the reduced shape directory lookups expose.
func contactJSON(acc store.Account) fiber.Map {
	return fiber.Map{"id": acc.ID, "name": acc.Name, "phone": acc.Phone}
}

func transactionJSON(tx store.Transaction) fiber.Map {
	return fiber.Map{
		"id":        tx.ID,
		"type":      tx.Kind,
		"from":      tx.FromID,
		"to":        tx.ToID,
		"amount":    tx.Amount,
		"fee":       tx.Fee,
		"reference": tx.Reference,
		"createdAt": tx.CreatedAt,
	}
}

func requestJSON(req store.Request, agent store.Account) fiber.Map {
	return fiber.Map{
		"id":         req.ID,
		"agentId":    req.AgentID,
		"agentName":  agent.Name,
		"agentPhone": agent.Phone,
		"amount":     req.Amount,
		"reason":     req.Reason,
		"status":     req.Status,
		"createdAt":  req.CreatedAt,
	}
}
