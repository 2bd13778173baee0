package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(&conf.SecuritySettings{
		AdminUsername:     "admin",
		AdminPasswordHash: testHash(t, "correct horse"),
		SessionSecret:     testSecret,
		SessionMaxAge:     time.Hour,
	})
	require.NoError(t, err)
	return a
}

func newContext(e *echo.Echo, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", SessionName)
	return nil
}

func TestLoginStartsSession(t *testing.T) {
	t.Parallel()
	e := echo.New()
	a := newTestAuthenticator(t)

	c, rec := newContext(e)
	sess, err := a.Login(c, "admin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
	assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.IssuedAt))

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotContains(t, cookie.Value, "admin", "cookie is encrypted")

	c2, _ := newContext(e, cookie)
	current, ok := a.CurrentSession(c2.Request())
	require.True(t, ok)
	assert.Equal(t, "admin", current.Username)
	assert.True(t, a.IsAuthenticated(c2))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	e := echo.New()
	a := newTestAuthenticator(t)

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "correct horse"},
		{"", ""},
	} {
		c, rec := newContext(e)
		_, err := a.Login(c, tc.user, tc.pass)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	t.Parallel()
	a, err := NewAuthenticator(&conf.SecuritySettings{AdminUsername: "admin", SessionSecret: testSecret})
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	c, _ := newContext(echo.New())
	_, err = a.Login(c, "admin", "")
	require.ErrorIs(t, err, ErrLoginDisabled)
}

func TestSessionExpires(t *testing.T) {
	t.Parallel()
	e := echo.New()
	a := newTestAuthenticator(t)
	now := time.Now()
	a.now = func() time.Time { return now }

	c, rec := newContext(e)
	_, err := a.Login(c, "admin", "correct horse")
	require.NoError(t, err)
	cookie := sessionCookie(t, rec)

	now = now.Add(59 * time.Minute)
	c2, _ := newContext(e, cookie)
	assert.True(t, a.IsAuthenticated(c2))

	now = now.Add(2 * time.Minute)
	assert.False(t, a.IsAuthenticated(c2))
}

func TestSessionFromOtherSecretIsRejected(t *testing.T) {
	t.Parallel()
	e := echo.New()
	a := newTestAuthenticator(t)

	c, rec := newContext(e)
	_, err := a.Login(c, "admin", "correct horse")
	require.NoError(t, err)

	other, err := NewAuthenticator(&conf.SecuritySettings{
		AdminUsername: "admin",
		SessionSecret: strings.Repeat("z", 40),
	})
	require.NoError(t, err)
	c2, _ := newContext(e, sessionCookie(t, rec))
	assert.False(t, other.IsAuthenticated(c2))
}

func TestLogoutClearsCookie(t *testing.T) {
	t.Parallel()
	e := echo.New()
	a := newTestAuthenticator(t)

	c, rec := newContext(e)
	_, err := a.Login(c, "admin", "correct horse")
	require.NoError(t, err)

	c2, rec2 := newContext(e, sessionCookie(t, rec))
	require.NoError(t, a.Logout(c2))
	cleared := sessionCookie(t, rec2)
	assert.Negative(t, cleared.MaxAge)
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()
	e := echo.New()
	a := newTestAuthenticator(t)

	deny := func(c echo.Context) error { return c.NoContent(http.StatusUnauthorized) }
	handler := a.RequireAdmin(deny)(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(ContextKeyAdmin).(string))
	})

	c, rec := newContext(e)
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	login, loginRec := newContext(e)
	_, err := a.Login(login, "admin", "correct horse")
	require.NoError(t, err)

	c2, rec2 := newContext(e, sessionCookie(t, loginRec))
	require.NoError(t, handler(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "admin", rec2.Body.String())
}

func TestNewAuthenticatorValidatesSettings(t *testing.T) {
	t.Parallel()

	_, err := NewAuthenticator(&conf.SecuritySettings{AdminUsername: "admin", SessionSecret: "short"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = NewAuthenticator(&conf.SecuritySettings{AdminUsername: "admin", SessionSecret: testSecret, AdminPasswordHash: "plaintext"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, ValidateHash(hash))
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "s3cret-pasS"))
	assert.False(t, CheckPassword("", "s3cret-pass"))

	_, err = HashPassword("")
	require.Error(t, err)
	_, err = HashPassword(strings.Repeat("x", 73))
	require.Error(t, err)
}
