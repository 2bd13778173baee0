// Package api implements the portal's JSON API: the public site endpoints,
// the chat widget and the admin dashboard.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/chat"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/notification"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/repository"
	"github.com/learnforge/trainingportal/internal/security"
)

// Notifier queues admin alerts
type Notifier interface {
	Notify(n *notification.Notification) bool
}

// ChatHandler answers chat widget messages
type ChatHandler interface {
	Handle(ctx context.Context, req chat.Request, clientIP string) chat.Response
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Repos    *repository.Repositories
	Settings *conf.Settings

	chat     ChatHandler
	auth     *security.Authenticator
	leads    chat.LeadRecorder
	notifier Notifier
	metrics  *metrics.HTTPMetrics
	now      func() time.Time
	log      logger.Logger

	// registerMu serializes the capacity and duplicate checks with the insert
	registerMu sync.Mutex
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithChat enables POST /api/chat
func WithChat(h ChatHandler) Option {
	return func(c *Controller) { c.chat = h }
}

// WithAuthenticator enables the admin API
func WithAuthenticator(a *security.Authenticator) Option {
	return func(c *Controller) { c.auth = a }
}

// WithLeads records contact and registration leads
func WithLeads(l chat.LeadRecorder) Option {
	return func(c *Controller) { c.leads = l }
}

// WithNotifier sends admin alerts for new messages and registrations
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithMetrics records admin login attempts
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now for date-based queries
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates the controller and registers its routes under /api
func New(e *echo.Echo, repos *repository.Repositories, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if e == nil || repos == nil || settings == nil {
		return nil, errors.Newf("api controller requires echo, repositories and settings").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:     e,
		Group:    e.Group("/api"),
		Repos:    repos,
		Settings: settings,
		now:      time.Now,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"catalog routes", c.initCatalogRoutes},
		{"site routes", c.initSiteRoutes},
		{"registration routes", c.initRegistrationRoutes},
		{"contact routes", c.initContactRoutes},
		{"verification routes", c.initVerifyRoutes},
		{"chat routes", c.initChatRoutes},
		{"admin routes", c.initAdminRoutes},
	}

	for _, initializer := range routeInitializers {
		initializer.fn()
		c.log.Debug("routes initialized", logger.String("group", initializer.name))
	}
}

// recordLead stores a contact or registration lead when a recorder is set
func (c *Controller) recordLead(ctx echo.Context, lead entities.LeadAuditLog) {
	if c.leads == nil {
		return
	}
	lead.ClientIP = ctx.RealIP()
	c.leads.RecordLead(ctx.Request().Context(), lead)
}

func (c *Controller) notify(n *notification.Notification) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(n)
}

// GetLogger returns the api module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}
