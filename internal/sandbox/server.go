package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/sandbox/notify"
	"github.com/lenden-pay/lenden/internal/sandbox/sessions"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

// Options tunes the sandbox server. Zero values fall back to defaults.
type Options struct {
	AppName        string
	SessionTTL     time.Duration
	IdempotencyTTL time.Duration
	LoginPerMinute int
}

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app        *fiber.App
	store      store.Store
	sessions   sessions.Store
	cache      *redis.Client
	notifier   notify.Notifier
	logger     *slog.Logger
	sessionTTL time.Duration
}

// New instantiates the HTTP server and wires every route. The Redis
// client is optional; without it idempotency replay and login rate
// limiting are disabled.
func New(st store.Store, tokens sessions.Store, cache *redis.Client, logger *slog.Logger, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}

	app := fiber.New(fiber.Config{
		AppName:      opts.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: envelopeErrorHandler,
	})

	s := &Server{
		app:        app,
		store:      st,
		sessions:   tokens,
		cache:      cache,
		notifier:   notify.NewLogNotifier(logger),
		logger:     logger,
		sessionTTL: opts.SessionTTL,
	}

	app.Use(RequestID())
	app.Use(Audit(logger))
	app.Use(Idempotency(cache, opts.IdempotencyTTL, logger))

	app.Post("/login", LoginRateLimit(cache, opts.LoginPerMinute), s.Login)
	app.Post("/register-user", s.RegisterUser)
	app.Post("/register-agent", s.RegisterAgent)

	authed := app.Group("", SessionAuth(tokens, st))
	authed.Post("/logout", s.Logout)
	authed.Get("/profile", s.Profile)
	authed.Get("/users", s.Users)
	authed.Get("/agents", s.Agents)
	authed.Get("/transactions", s.Transactions)
	authed.Post("/transactions/send-money", RequireRole(identity.RoleUser), s.SendMoney)
	authed.Post("/transactions/cash-out", RequireRole(identity.RoleUser), s.CashOut)
	authed.Post("/transactions/cash-in", RequireRole(identity.RoleAgent), s.CashIn)
	authed.Post("/agents/cash-request", RequireRole(identity.RoleAgent), s.CashRequest)
	authed.Post("/agents/withdraw-request", RequireRole(identity.RoleAgent), s.WithdrawRequest)

	admin := authed.Group("/admin", RequireRole(identity.RoleAdmin))
	admin.Get("/users", s.AdminUsers)
	admin.Get("/agents", s.AdminAgents)
	admin.Patch("/users/:id/block", s.ToggleUserBlock)
	admin.Patch("/agents/:id/block", s.ToggleAgentBlock)
	admin.Get("/agent-approvals", s.AgentApprovals)
	admin.Patch("/agents/:id/approve", s.ApproveAgent)
	admin.Delete("/agents/:id/reject", s.RejectAgent)
	admin.Get("/agent-cash-requests", s.CashRequests)
	admin.Get("/agent-withdraw-requests", s.WithdrawRequests)
	admin.Patch("/agent-cash-requests/:id/approve", s.ResolveCashRequest)
	admin.Patch("/agent-cash-requests/:id/reject", s.ResolveCashRequest)
	admin.Patch("/agent-withdraw-requests/:id/approve", s.ResolveWithdrawRequest)
	admin.Patch("/agent-withdraw-requests/:id/reject", s.ResolveWithdrawRequest)
	admin.Get("/system-stats", s.SystemStats)
	admin.Get("/recent-users", s.RecentUsers)
	admin.Get("/recent-agents", s.RecentAgents)

	return s
}

// App exposes the underlying Fiber application for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// AdminSeed describes the bootstrap administrator account.
type AdminSeed struct {
	Name  string
	Email string
	Phone string
	PIN   string
}

// SeedAdmin creates the administrator account unless one with the same
// email already exists. The sandbox has no other path to an admin role.
func (s *Server) SeedAdmin(ctx context.Context, seed AdminSeed) error {
	if _, err := s.store.AccountByLogin(ctx, seed.Email); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.PIN), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = s.store.CreateAccount(ctx, store.Account{
		ID:        uuid.NewString(),
		Name:      seed.Name,
		Email:     seed.Email,
		Phone:     seed.Phone,
		PINHash:   hash,
		Role:      identity.RoleAdmin,
		Approved:  true,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicateAccount) {
		return nil
	}
	return err
}

// envelopeErrorHandler folds Fiber errors into the response envelope so
// the client sees success:false on every non-2xx path.
func envelopeErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return fail(c, code, message)
}
