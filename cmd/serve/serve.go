// Package serve provides the serve command, which runs the HTTP API together
// with its background workers.
package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/learnforge/trainingportal/cmd/backup"
	"github.com/learnforge/trainingportal/internal/api"
	bk "github.com/learnforge/trainingportal/internal/backup"
	"github.com/learnforge/trainingportal/internal/buildinfo"
	"github.com/learnforge/trainingportal/internal/chat"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/httpclient"
	"github.com/learnforge/trainingportal/internal/leads"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/mqtt"
	"github.com/learnforge/trainingportal/internal/notification"
	"github.com/learnforge/trainingportal/internal/observability"
	"github.com/learnforge/trainingportal/internal/ratelimit"
	"github.com/learnforge/trainingportal/internal/repository"
	"github.com/learnforge/trainingportal/internal/security"
	"github.com/learnforge/trainingportal/internal/store/backend"
)

const (
	defaultSweepInterval = 5 * time.Minute
	mqttConnectTimeout   = 30 * time.Second
)

// Command creates and returns the serve command
func Command(settings *conf.Settings, info *buildinfo.Info) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the training portal API",
		Long:  "Serve starts the HTTP API, the rate limiter sweep, scheduled backups and the optional MQTT and notification integrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, info)
		},
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func Run(ctx context.Context, settings *conf.Settings, info *buildinfo.Info) error {
	log := logger.Global().Module("main")
	log.Info("starting trainingportal",
		logger.String("version", info.GetVersion()),
		logger.String("build_date", info.BuildDate),
		logger.String("instance_id", info.InstanceID))

	flushSentry, err := initSentry(&settings.Sentry, info)
	if err != nil {
		return err
	}
	defer flushSentry()

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	st, closeStore, err := backend.Open(&settings.Storage, m.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("failed to close store", logger.Error(err))
		}
	}()
	repos := repository.NewRepositories(st)

	notifier, err := notification.NewServiceFromSettings(&settings.Notification, m.Integrations)
	if err != nil {
		return err
	}
	defer notifier.Close()

	g, gctx := errgroup.WithContext(ctx)

	leadOpts := []leads.Option{leads.WithNotifier(notifier), leads.WithMetrics(m.Integrations)}
	if settings.MQTT.Enabled {
		client := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT, "trainingportal-"+info.InstanceID[:8]), m.Integrations)
		defer client.Disconnect()
		leadOpts = append(leadOpts, leads.WithPublisher(client))

		// a broker that is down must not keep the API from starting
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, mqttConnectTimeout)
			defer cancel()
			if err := client.Connect(cctx); err != nil {
				log.Warn("MQTT connection failed, lead events will not be published until it recovers",
					logger.String("broker", settings.MQTT.Broker),
					logger.Error(err))
			}
			return nil
		})
	}
	leadService := leads.NewService(repos.Leads, leadOpts...)
	defer leadService.Close()

	serverOpts := []api.ServerOption{
		api.WithRepositories(repos),
		api.WithStore(st),
		api.WithLeads(leadService),
		api.WithNotifier(notifier),
		api.WithMetrics(m),
		api.WithBuildInfo(info),
	}

	if settings.Chat.Enabled {
		svc, hc, err := newChatService(settings, repos, leadService, m)
		if err != nil {
			return err
		}
		defer hc.Close()
		serverOpts = append(serverOpts, api.WithChat(svc))
	}

	if settings.Security.AdminPasswordHash != "" {
		auth, err := security.NewAuthenticator(&settings.Security)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, api.WithAuthenticator(auth))
	} else {
		log.Warn("no admin password hash configured, admin API disabled; create one with `trainingportal hashpw`")
	}

	if settings.RateLimit.Enabled {
		limiter := ratelimit.New(ratelimit.PoliciesFromSettings(&settings.RateLimit),
			ratelimit.WithRetention(settings.RateLimit.Retention),
			ratelimit.WithMetrics(m.RateLimit))
		serverOpts = append(serverOpts, api.WithRateLimiter(limiter))

		interval := settings.RateLimit.SweepInterval
		if interval <= 0 {
			interval = defaultSweepInterval
		}
		g.Go(func() error {
			limiter.Run(gctx, interval)
			return nil
		})
	}

	if settings.Backup.Enabled {
		manager, err := backup.NewManager(settings, st, info, m.Integrations)
		if err != nil {
			return err
		}
		scheduler := bk.NewScheduler(manager, settings.Backup.Interval)
		g.Go(func() error {
			scheduler.Run(gctx)
			return nil
		})
	}

	server, err := api.New(settings, serverOpts...)
	if err != nil {
		return err
	}
	g.Go(func() error {
		return server.Run(gctx)
	})

	err = g.Wait()
	log.Info("trainingportal stopped", logger.Any("notifications", notifier.Stats()))
	return err
}

// newChatService builds the assistant. Without an API key the assistant
// still classifies messages and answers with the contact fallback.
func newChatService(settings *conf.Settings, repos *repository.Repositories, lr chat.LeadRecorder, m *observability.Metrics) (*chat.Service, *httpclient.Client, error) {
	catalog, err := chat.LoadCatalog(settings.Chat.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []chat.Option{
		chat.WithLeadRecorder(lr),
		chat.WithContact(chat.Contact{Email: settings.Chat.ContactEmail, Phone: settings.Chat.ContactPhone}),
		chat.WithHistoryLimit(settings.Chat.HistoryLimit),
		chat.WithMetrics(m.Chat),
	}
	if settings.Chat.IncludeLiveCourses {
		opts = append(opts, chat.WithCourseSource(repos.Courses))
	}

	hc := httpclient.New(&httpclient.Config{Timeout: settings.Chat.Timeout})
	client, err := chat.NewClient(&settings.Chat, hc, m.Chat)
	if err != nil {
		logger.Global().Module("main").Warn("chat provider unavailable, replies fall back to contact details", logger.Error(err))
	} else {
		opts = append(opts, chat.WithProvider(client))
	}

	return chat.NewService(catalog, opts...), hc, nil
}
