package serve

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/learnforge/trainingportal/internal/buildinfo"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
)

const sentryFlushTimeout = 2 * time.Second

// initSentry starts error telemetry and installs the reporter used by the
// errors package. The returned func flushes pending events.
func initSentry(settings *conf.SentrySettings, info *buildinfo.Info) (func(), error) {
	if !settings.Enabled {
		return func() {}, nil
	}
	if settings.DSN == "" {
		return nil, errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sampleRate := settings.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	env := settings.Environment
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "",
		Release:          fmt.Sprintf("trainingportal@%s", info.GetVersion()),
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("instance_id", info.InstanceID)
	})
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	return func() {
		errors.SetTelemetryReporter(nil)
		sentry.Flush(sentryFlushTimeout)
	}, nil
}

// scrubEvent drops user, host and request details before an event leaves
// the process
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
