package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/learnforge/trainingportal/internal/logger"
)

const (
	// CSRFContextKey is the key used to store the CSRF token in the context.
	CSRFContextKey = "csrf"

	csrfCookieName = "trainingportal_csrf"
	csrfHeaderName = "X-CSRF-Token"

	// csrfCookieMaxAge is the max age of the CSRF cookie in seconds (8 hours,
	// matching the default admin session).
	csrfCookieMaxAge = 8 * 3600

	csrfTokenLength = 32
)

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a proxy setting X-Forwarded-Proto.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}

// CSRFConfig holds configuration for the CSRF middleware.
type CSRFConfig struct {
	// Skipper defines a function to skip the middleware.
	Skipper middleware.Skipper

	// TokenLookup is where the token is read from.
	// Default is "header:X-CSRF-Token,form:_csrf".
	TokenLookup string

	// CookieMaxAge is the max age (in seconds) of the CSRF cookie.
	CookieMaxAge int

	// CookieSecure sets the Secure flag on the CSRF cookie.
	CookieSecure bool
}

// NewCSRF creates a CSRF middleware for the admin API. Safe methods pass
// and receive a token cookie; mutating requests must echo it back in the
// X-CSRF-Token header.
func NewCSRF(config *CSRFConfig) echo.MiddlewareFunc {
	if config == nil {
		config = &CSRFConfig{}
	}

	tokenLookup := config.TokenLookup
	if tokenLookup == "" {
		tokenLookup = "header:" + csrfHeaderName + ",form:_csrf"
	}

	cookieMaxAge := config.CookieMaxAge
	if cookieMaxAge == 0 {
		cookieMaxAge = csrfCookieMaxAge
	}

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        config.Skipper,
		TokenLength:    csrfTokenLength,
		TokenLookup:    tokenLookup,
		ContextKey:     CSRFContextKey,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: false, // the admin UI reads it to fill the header
		CookieSecure:   config.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
		CookieMaxAge:   cookieMaxAge,
		ErrorHandler: func(err error, c echo.Context) error {
			GetLogger().Warn("CSRF validation failed",
				logger.String("method", c.Request().Method),
				logger.String("path", c.Request().URL.Path),
				logger.String("remote_ip", c.RealIP()),
				logger.Error(err))

			return echo.NewHTTPError(http.StatusForbidden, "Invalid CSRF token")
		},
	})
}
