package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/logger"
)

func setCSRFCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false,
		Secure:   IsSecureRequest(ctx.Request()),
		SameSite: http.SameSiteLaxMode,
	})
}

// GenerateCSRFToken creates a random base64 token.
func GenerateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EnsureCSRFToken returns the request's CSRF token for endpoints that hand
// it to the admin UI. It prefers the token set by the middleware, then the
// existing cookie, and otherwise generates and sets a new one.
//
// Echo skips token generation for same-origin requests flagged by
// Sec-Fetch-Site, so the middleware alone does not guarantee a token.
func EnsureCSRFToken(ctx echo.Context) (string, error) {
	if token, ok := ctx.Get(CSRFContextKey).(string); ok && token != "" {
		return token, nil
	}

	if cookie, err := ctx.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		ctx.Set(CSRFContextKey, cookie.Value)
		setCSRFCookie(ctx, cookie.Value)
		return cookie.Value, nil
	}

	token, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}
	setCSRFCookie(ctx, token)
	ctx.Set(CSRFContextKey, token)

	GetLogger().Debug("CSRF token generated",
		logger.Bool("secure_cookie", IsSecureRequest(ctx.Request())))

	return token, nil
}
