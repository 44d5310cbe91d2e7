package sandbox

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

type registerRequest struct {
	Name       string `json:"name"`
	PIN        string `json:"pin"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalId"`
}

// RegisterUser creates a User account, logs it in and hands back a
// session cookie.
func (s *Server) RegisterUser(c *fiber.Ctx) error {
	return s.register(c, identity.RoleUser)
}

// RegisterAgent creates an Agent account pending admin approval.
func (s *Server) RegisterAgent(c *fiber.Ctx) error {
	return s.register(c, identity.RoleAgent)
}

func (s *Server) register(c *fiber.Ctx, role identity.Role) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Phone == "" || !strings.Contains(req.Email, "@") {
		return fail(c, fiber.StatusBadRequest, "name, email and mobile number are required")
	}
	if !identity.ValidPIN(req.PIN) {
		return fail(c, fiber.StatusBadRequest, "PIN must be exactly 5 digits")
	}
	if strings.TrimSpace(req.NationalID) == "" {
		return fail(c, fiber.StatusBadRequest, "national ID is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	acc := store.Account{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Role:       role,
		PINHash:    hash,
		NationalID: req.NationalID,
		CreatedAt:  time.Now().UTC(),
	}
	message := "Registration successful"
	switch role {
	case identity.RoleUser:
		acc.Balance = store.UserStartingBalance
		acc.Approved = true
	case identity.RoleAgent:
		// Float arrives once admin approves the account.
		acc.Approved = false
		message = "Registration successful. Your agent account awaits admin approval."
	}

	if err := s.store.CreateAccount(c.UserContext(), acc); err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			return fail(c, fiber.StatusConflict, "an account with this mobile number or email already exists")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if err := s.issueSession(c, acc.ID); err != nil {
		return err
	}
	return ok(c, message, fiber.Map{"role": string(acc.Role), "user": accountJSON(acc)})
}

type loginRequest struct {
	EmailOrMobile string `json:"emailOrMobile"`
	PIN           string `json:"pin"`
}

// Login authenticates by email or mobile plus PIN.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	acc, err := s.store.AccountByLogin(c.UserContext(), strings.TrimSpace(req.EmailOrMobile))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "account not found")
	}
	if err := bcrypt.CompareHashAndPassword(acc.PINHash, []byte(req.PIN)); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid PIN")
	}
	if acc.Blocked {
		return fail(c, fiber.StatusBadRequest, "this account is blocked")
	}

	if err := s.issueSession(c, acc.ID); err != nil {
		return err
	}
	return ok(c, "Login successful", fiber.Map{"role": string(acc.Role), "user": accountJSON(acc)})
}

// Logout invalidates the server-side session and expires the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(SessionCookie); token != "" {
		_ = s.sessions.Delete(c.UserContext(), token)
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ok(c, "Logged out", nil)
}

// Profile returns the authenticated account.
func (s *Server) Profile(c *fiber.Ctx) error {
	acc := currentAccount(c)
	return ok(c, "", fiber.Map{"user": accountJSON(acc)})
}

func (s *Server) issueSession(c *fiber.Ctx, accountID string) error {
	token, err := s.sessions.Create(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(s.sessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
