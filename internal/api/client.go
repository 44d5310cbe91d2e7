package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const idempotencyKeyHeader = "Idempotency-Key"

// ErrSessionExpired indicates the backend rejected the session cookie
// (401/403). The configured unauthorized hook has already fired by the
// time a caller observes this error.
var ErrSessionExpired = errors.New("session expired")

// Error is a business-rule rejection carried in the response envelope or
// a non-auth HTTP failure. It is recoverable and user-displayable.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Envelope is the uniform response wrapper used by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (e Envelope) result() (bool, string) { return e.Success, e.Message }

type enveloped interface {
	result() (bool, string)
}

// Client wraps outbound HTTP calls to a single fixed origin, attaching
// the session cookie on every request. A 401/403 on any call clears the
// cookie jar and fires the unauthorized hook exactly once per session
// generation, so concurrent failures cannot trigger duplicate redirects.
type Client struct {
	base   *url.URL
	httpc  *http.Client
	jar    *cookiejar.Jar
	logger *slog.Logger

	mu             sync.Mutex
	onUnauthorized func()
	tripped        bool
}

// New builds a client for the given origin with its own cookie jar.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   base,
		httpc:  &http.Client{Jar: jar, Timeout: timeout},
		jar:    jar,
		logger: logger,
	}, nil
}

// SetUnauthorizedHook registers the callback fired on the first 401/403
// of a session generation.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// ResetSession discards stored cookies and rearms the unauthorized hook.
// Called after a successful login so a later auth failure fires again.
func (c *Client) ResetSession() {
	c.clearCookies()
	c.mu.Lock()
	c.tripped = false
	c.mu.Unlock()
}

// clearCookies expires every cookie stored for the origin through the
// jar's own synchronized API. The jar itself is created once in New and
// never replaced, so requests in flight on other goroutines always see
// the same client.
func (c *Client) clearCookies() {
	stale := c.jar.Cookies(c.base)
	if len(stale) == 0 {
		return
	}
	expired := make([]*http.Cookie, 0, len(stale))
	for _, ck := range stale {
		expired = append(expired, &http.Cookie{Name: ck.Name, MaxAge: -1})
	}
	c.jar.SetCookies(c.base, expired)
}

// Get issues a GET and decodes the envelope response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a mutating POST carrying a JSON body and a fresh
// idempotency key.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a mutating PATCH.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set(idempotencyKeyHeader, uuid.NewString())
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.trip()
		return ErrSessionExpired
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if out == nil {
		out = &Envelope{}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	// success:false is a recoverable business rejection regardless of
	// HTTP status.
	if env, ok := out.(enveloped); ok {
		if success, message := env.result(); !success {
			return &Error{Status: resp.StatusCode, Message: message}
		}
	}
	return nil
}

// trip fires the unauthorized hook at most once per session generation
// and drops the stale cookies so later calls fail fast server-side.
func (c *Client) trip() {
	c.mu.Lock()
	already := c.tripped
	c.tripped = true
	hook := c.onUnauthorized
	c.mu.Unlock()

	if already {
		return
	}
	c.clearCookies()
	if c.logger != nil {
		c.logger.Warn("session invalidated by backend")
	}
	if hook != nil {
		hook()
	}
}
