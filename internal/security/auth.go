// Package security checks the admin credential and keeps the admin session
// in a signed, encrypted cookie.
package security

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// ErrInvalidCredentials is returned by Login for a wrong username or password
var ErrInvalidCredentials = errors.NewStd("invalid username or password")

// ErrLoginDisabled is returned by Login when no password hash is configured
var ErrLoginDisabled = errors.NewStd("admin login is disabled")

// Session describes an authenticated admin
type Session struct {
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticator checks admin credentials and manages the session cookie
type Authenticator struct {
	username     string
	passwordHash string
	maxAge       time.Duration
	store        sessions.Store
	now          func() time.Time
	log          logger.Logger
}

// NewAuthenticator creates an authenticator from the security settings
func NewAuthenticator(settings *conf.SecuritySettings) (*Authenticator, error) {
	if len(settings.SessionSecret) < MinSessionSecretLength {
		return nil, errors.Newf("session secret must be at least %d characters", MinSessionSecretLength).
			Component("security").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.AdminPasswordHash != "" {
		if err := ValidateHash(settings.AdminPasswordHash); err != nil {
			return nil, err
		}
	}
	maxAge := settings.SessionMaxAge
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}

	return &Authenticator{
		username:     settings.AdminUsername,
		passwordHash: settings.AdminPasswordHash,
		maxAge:       maxAge,
		store:        newCookieStore(settings.SessionSecret, settings.SecureCookies, int(maxAge.Seconds())),
		now:          time.Now,
		log:          GetLogger(),
	}, nil
}

// Enabled reports whether admin login is possible
func (a *Authenticator) Enabled() bool {
	return a.passwordHash != ""
}

// CheckCredentials reports whether username and password match the admin
// credential. The password hash is compared even for a wrong username.
func (a *Authenticator) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := CheckPassword(a.passwordHash, password)
	return userOK && passOK
}

// Login checks the credential and starts a session on success
func (a *Authenticator) Login(c echo.Context, username, password string) (*Session, error) {
	log := a.log.With(logger.String("client_ip", c.RealIP()))
	if !a.Enabled() {
		log.Warn("admin login attempted while disabled")
		return nil, ErrLoginDisabled
	}
	if !a.CheckCredentials(username, password) {
		log.Warn("admin login failed", logger.String("username", username))
		return nil, ErrInvalidCredentials
	}

	sess, err := a.store.New(c.Request(), SessionName)
	if err != nil && sess == nil {
		return nil, a.sessionError(err, "new_session")
	}
	issued := a.now().UTC()
	sess.Values[sessionKeyUser] = username
	sess.Values[sessionKeyIssuedAt] = issued.Unix()
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return nil, a.sessionError(err, "save_session")
	}

	log.Info("admin logged in", logger.String("username", username))
	return &Session{Username: username, IssuedAt: issued, ExpiresAt: issued.Add(a.maxAge)}, nil
}

// Logout clears the session cookie
func (a *Authenticator) Logout(c echo.Context) error {
	sess, _ := a.store.Get(c.Request(), SessionName)
	if sess == nil {
		return nil
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return a.sessionError(err, "clear_session")
	}
	return nil
}

// CurrentSession returns the session of the request, if it is valid
func (a *Authenticator) CurrentSession(r *http.Request) (*Session, bool) {
	sess, err := a.store.Get(r, SessionName)
	if err != nil || sess == nil || sess.IsNew {
		return nil, false
	}
	user, ok := sess.Values[sessionKeyUser].(string)
	if !ok || user == "" || user != a.username {
		return nil, false
	}
	issuedUnix, ok := sess.Values[sessionKeyIssuedAt].(int64)
	if !ok {
		return nil, false
	}
	issued := time.Unix(issuedUnix, 0).UTC()
	expires := issued.Add(a.maxAge)
	if !a.now().Before(expires) {
		return nil, false
	}
	return &Session{Username: user, IssuedAt: issued, ExpiresAt: expires}, true
}

// IsAuthenticated reports whether the request carries a valid admin session
func (a *Authenticator) IsAuthenticated(c echo.Context) bool {
	_, ok := a.CurrentSession(c.Request())
	return ok
}

// RequireAdmin rejects requests without a valid admin session
func (a *Authenticator) RequireAdmin(onUnauthorized func(echo.Context) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := a.CurrentSession(c.Request())
			if !ok {
				return onUnauthorized(c)
			}
			c.Set(ContextKeyAdmin, sess.Username)
			return next(c)
		}
	}
}

// ContextKeyAdmin holds the admin username on authenticated requests
const ContextKeyAdmin = "admin_user"

func (a *Authenticator) sessionError(err error, operation string) error {
	return errors.New(err).
		Component("security").
		Category(errors.CategoryAuthentication).
		Context("operation", operation).
		Build()
}
