package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	mw "github.com/learnforge/trainingportal/internal/api/middleware"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/security"
)

const (
	defaultLoginRate   = 0.2 // one attempt every five seconds
	defaultLoginBurst  = 5
	loginLimiterExpiry = 15 * time.Minute
)

// LoginRequest is the admin login form
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse describes the admin session
type SessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Session       *security.Session `json:"session,omitempty"`
	CSRFToken     string            `json:"csrfToken,omitempty"`
}

// loginRateLimiter throttles login attempts per client with echo's token
// bucket limiter
func (c *Controller) loginRateLimiter() echo.MiddlewareFunc {
	limit := c.Settings.Security.LoginRateLimit
	if limit <= 0 {
		limit = defaultLoginRate
	}
	burst := c.Settings.Security.LoginBurst
	if burst <= 0 {
		burst = defaultLoginBurst
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(limit),
				Burst:     burst,
				ExpiresIn: loginLimiterExpiry,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return c.HandleError(ctx, err, "Unable to process login", http.StatusForbidden)
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			c.metrics.RecordLogin(false)
			return c.HandleError(ctx, err, "Too many login attempts, please wait before trying again", http.StatusTooManyRequests)
		},
	})
}

// Login handles POST /api/admin/login
func (c *Controller) Login(ctx echo.Context) error {
	var req LoginRequest
	if err := bindBody(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid login request", http.StatusBadRequest)
	}

	sess, err := c.auth.Login(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, security.ErrLoginDisabled):
		c.metrics.RecordLogin(false)
		return c.HandleError(ctx, err, "Admin login is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, security.ErrInvalidCredentials):
		c.metrics.RecordLogin(false)
		return c.HandleError(ctx, err, "Invalid username or password", http.StatusUnauthorized)
	case err != nil:
		c.metrics.RecordLogin(false)
		return c.HandleError(ctx, err, "Login failed", http.StatusInternalServerError)
	}
	c.metrics.RecordLogin(true)

	token, err := mw.EnsureCSRFToken(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to issue CSRF token", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Authenticated: true, Session: sess, CSRFToken: token})
}

// Logout handles POST /api/admin/logout
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		return c.HandleError(ctx, err, "Logout failed", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Authenticated: false})
}

// GetSession handles GET /api/admin/session and hands out the CSRF token
// the admin UI must send with every change.
func (c *Controller) GetSession(ctx echo.Context) error {
	sess, ok := c.auth.CurrentSession(ctx.Request())
	if !ok {
		return ctx.JSON(http.StatusOK, SessionResponse{Authenticated: false})
	}
	token, err := mw.EnsureCSRFToken(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to issue CSRF token", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Authenticated: true, Session: sess, CSRFToken: token})
}

func (c *Controller) unauthorized(ctx echo.Context) error {
	return c.HandleError(ctx, nil, "Authentication required", http.StatusUnauthorized)
}
