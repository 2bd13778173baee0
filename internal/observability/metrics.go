// Package observability provides Prometheus metrics for the training portal.
// Sentry error telemetry lives in the errors package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	HTTP         *metrics.HTTPMetrics
	Store        *metrics.StoreMetrics
	RateLimit    *metrics.RateLimitMetrics
	Chat         *metrics.ChatMetrics
	Integrations *metrics.IntegrationMetrics
}

// NewMetrics creates a registry with Go runtime and process collectors and
// every application collector registered on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	storeMetrics, err := metrics.NewStoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create store metrics: %w", err)
	}
	rateLimitMetrics, err := metrics.NewRateLimitMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit metrics: %w", err)
	}
	chatMetrics, err := metrics.NewChatMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat metrics: %w", err)
	}
	integrationMetrics, err := metrics.NewIntegrationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create integration metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		HTTP:         httpMetrics,
		Store:        storeMetrics,
		RateLimit:    rateLimitMetrics,
		Chat:         chatMetrics,
		Integrations: integrationMetrics,
	}, nil
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
