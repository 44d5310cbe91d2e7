package sandbox

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/sandbox/sessions"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

const (
	// SessionCookie carries the opaque session token.
	SessionCookie = "lenden_session"

	requestIDHeader      = "X-Request-ID"
	idempotencyKeyHeader = "Idempotency-Key"

	localAccount = "account"
)

// RequestID ensures each request has a stable identifier for tracing.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Set(requestIDHeader, reqID)
		}
		c.Locals(requestIDHeader, reqID)
		return c.Next()
	}
}

// Audit emits a structured log line per request.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if reqID, _ := c.Locals(requestIDHeader).(string); reqID != "" {
			attrs = append(attrs, slog.String("request_id", reqID))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}
		logger.Info("request completed", attrs...)
		return nil
	}
}

// SessionAuth resolves the session cookie to an account and stores it in
// locals. Missing or expired sessions get 401; blocked accounts get 403.
// The client interprets both as "session invalid" and forces logout.
func SessionAuth(tokens sessions.Store, accounts store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" || !sessions.TokenLooksValid(token) {
			return fiber.NewError(fiber.StatusUnauthorized, "missing session")
		}
		accountID, err := tokens.Get(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "session expired")
		}
		acc, err := accounts.AccountByID(c.UserContext(), accountID)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "account not found")
		}
		if acc.Blocked {
			return fiber.NewError(fiber.StatusForbidden, "account blocked")
		}
		c.Locals(localAccount, acc)
		return c.Next()
	}
}

// RequireRole gates a route group on the caller's role.
func RequireRole(role identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc := currentAccount(c)
		if acc.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}

func currentAccount(c *fiber.Ctx) store.Account {
	acc, _ := c.Locals(localAccount).(store.Account)
	return acc
}

type storedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays stored responses for repeated unsafe requests
// keyed by the Idempotency-Key header, backed by Redis. Without a Redis
// client it degrades to a pass-through.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}

		cacheKey := "idempotency:v1:" + key
		if cached, err := cache.Get(c.UserContext(), cacheKey).Result(); err == nil {
			var stored storedResponse
			if err := json.Unmarshal([]byte(cached), &stored); err == nil {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(stored.Status).SendString(stored.Body)
			}
		} else if err != redis.Nil {
			logger.Warn("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
		}

		if err := c.Next(); err != nil {
			return err
		}

		stored := storedResponse{Status: c.Response().StatusCode(), Body: string(c.Response().Body())}
		payload, err := json.Marshal(stored)
		if err != nil {
			return nil
		}
		if err := cache.Set(c.UserContext(), cacheKey, payload, ttl).Err(); err != nil {
			logger.Warn("idempotency persist failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil
	}
}

// LoginRateLimit bounds login attempts per identifier or IP using Redis
// when available; it fails open without it.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			EmailOrMobile string `json:"emailOrMobile"`
		}
		_ = c.BodyParser(&req)
		who := strings.TrimSpace(req.EmailOrMobile)
		if who == "" {
			who = c.IP()
		}
		key := "rl:login:" + who
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fail(c, fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
