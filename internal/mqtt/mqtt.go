// Package mqtt publishes portal events (new leads, registrations) to an MQTT
// broker for downstream CRM or automation consumers.
package mqtt

import (
	"context"
	"time"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/logger"
)

// Publisher sends payloads to a broker
type Publisher interface {
	// Publish sends payload to topic below the configured base topic
	Publish(ctx context.Context, subtopic string, payload []byte) error

	// IsConnected reports whether the broker connection is up
	IsConnected() bool
}

// Config holds the configuration for the MQTT client
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // base topic, subtopics are appended with a slash
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with default timeouts
func DefaultConfig() Config {
	return Config{
		Topic:             "trainingportal",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a Config from application settings. The client
// id falls back to instanceName.
func ConfigFromSettings(s *conf.MQTTSettings, instanceName string) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.ClientID = s.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = instanceName
	}
	cfg.Username = s.Username
	cfg.Password = s.Password
	if s.Topic != "" {
		cfg.Topic = s.Topic
	}
	cfg.Retain = s.Retain
	return cfg
}

// GetLogger returns the mqtt module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
