package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/learnforge/trainingportal/internal/api/middleware"
	v1 "github.com/learnforge/trainingportal/internal/api/v1"
	"github.com/learnforge/trainingportal/internal/buildinfo"
	"github.com/learnforge/trainingportal/internal/chat"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability"
	"github.com/learnforge/trainingportal/internal/ratelimit"
	"github.com/learnforge/trainingportal/internal/repository"
	"github.com/learnforge/trainingportal/internal/security"
	"github.com/learnforge/trainingportal/internal/store"
)

// Server is the portal's HTTP server. It owns the Echo instance, the
// middleware stack and the API controller.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	// Dependencies
	repos     *repository.Repositories
	store     store.Store
	chat      v1.ChatHandler
	limiter   *ratelimit.Limiter
	auth      *security.Authenticator
	leads     chat.LeadRecorder
	notifier  v1.Notifier
	metrics   *observability.Metrics
	buildInfo *buildinfo.Info

	apiController *v1.Controller
	startTime     time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithRepositories sets the repositories served by the API. Required.
func WithRepositories(r *repository.Repositories) ServerOption {
	return func(s *Server) { s.repos = r }
}

// WithStore reports the backing store on the health endpoint.
func WithStore(st store.Store) ServerOption {
	return func(s *Server) { s.store = st }
}

// WithChat enables the chat endpoint.
func WithChat(h v1.ChatHandler) ServerOption {
	return func(s *Server) { s.chat = h }
}

// WithRateLimiter gates contact, verification and registration requests.
func WithRateLimiter(l *ratelimit.Limiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

// WithAuthenticator enables the admin API.
func WithAuthenticator(a *security.Authenticator) ServerOption {
	return func(s *Server) { s.auth = a }
}

// WithLeads sets the lead recorder used by contact and registration.
func WithLeads(l chat.LeadRecorder) ServerOption {
	return func(s *Server) { s.leads = l }
}

// WithNotifier sets the admin notification sink.
func WithNotifier(n v1.Notifier) ServerOption {
	return func(s *Server) { s.notifier = n }
}

// WithMetrics enables request metrics and, when configured, the scrape endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithBuildInfo sets the version reported by the health endpoint.
func WithBuildInfo(b *buildinfo.Info) ServerOption {
	return func(s *Server) { s.buildInfo = b }
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	if settings == nil {
		return nil, errors.Newf("server requires settings").
			Category(errors.CategoryConfiguration).
			Build()
	}
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_server_config").
			Build()
	}

	s := &Server{
		config:    config,
		settings:  settings,
		log:       GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repos == nil {
		return nil, errors.Newf("server requires repositories").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.IPExtractor = ratelimit.IPExtractor()

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("admin", s.auth != nil),
		logger.Bool("chat", s.chat != nil),
		logger.Bool("rate_limit", s.limiter != nil),
		logger.Bool("debug", config.Debug))
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(mw.GetLogger()))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	securityConfig := mw.SecurityConfigFromOrigins(s.config.AllowedOrigins)
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))

	if s.limiter != nil {
		s.echo.Use(ratelimit.Middleware(s.limiter, ratelimit.DefaultRules()))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	s.echo.GET("/api/health", s.healthCheck)

	if s.metrics != nil && s.config.MetricsPath != "" {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	opts := []v1.Option{}
	if s.chat != nil {
		opts = append(opts, v1.WithChat(s.chat))
	}
	if s.auth != nil {
		opts = append(opts, v1.WithAuthenticator(s.auth))
	}
	if s.leads != nil {
		opts = append(opts, v1.WithLeads(s.leads))
	}
	if s.notifier != nil {
		opts = append(opts, v1.WithNotifier(s.notifier))
	}
	if s.metrics != nil {
		opts = append(opts, v1.WithMetrics(s.metrics.HTTP))
	}

	ctrl, err := v1.New(s.echo, s.repos, s.settings, opts...)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init_api_v1").
			Build()
	}
	s.apiController = ctrl

	s.echo.RouteNotFound("/api/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Endpoint not found")
	})
	return nil
}

// Run serves requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Address()
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Category(errors.CategoryNetwork).
			Context("address", addr).
			Build()
	case <-ctx.Done():
	}

	if err := s.Shutdown(); err != nil {
		return err
	}
	<-errCh
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return errors.New(err).
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	s.log.Info("server shutdown complete")
	return nil
}

// APIController returns the v1 API controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}
