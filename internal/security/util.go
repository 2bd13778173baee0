package security

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// deriveKey turns the configured secret into a 32-byte key for one purpose,
// so the cookie signing and encryption keys differ
func deriveKey(purpose, secret string) []byte {
	sum := sha256.Sum256([]byte(purpose + ":" + secret))
	return sum[:]
}

// newCookieStore creates a signed and encrypted cookie store
func newCookieStore(secret string, secure bool, maxAgeSeconds int) *sessions.CookieStore {
	store := sessions.NewCookieStore(deriveKey("auth", secret), deriveKey("encrypt", secret))
	store.Options = buildSessionOptions(secure, maxAgeSeconds)
	store.MaxAge(maxAgeSeconds)
	return store
}

// buildSessionOptions creates session options with standard security settings.
func buildSessionOptions(secure bool, maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
