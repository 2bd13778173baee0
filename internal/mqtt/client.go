package mqtt

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

// Client is a paho-backed Publisher. Reconnects are left to paho's auto
// reconnect once the first connection succeeded.
type Client struct {
	config  Config
	metrics *metrics.IntegrationMetrics
	log     logger.Logger

	// newPaho builds the underlying client; replaced in tests
	newPaho func(*paho.ClientOptions) paho.Client

	mu     sync.Mutex
	paho   paho.Client
	closed bool
}

// NewClient creates an unconnected client
func NewClient(cfg Config, m *metrics.IntegrationMetrics) *Client {
	return &Client{
		config:  cfg,
		metrics: m,
		log:     GetLogger(),
		newPaho: paho.NewClient,
	}
}

func (c *Client) validateBroker(ctx context.Context) error {
	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		return errors.Newf("invalid broker URL %q", c.config.Broker).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return nil
	}
	if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker_host", host).
			Build()
	}
	return nil
}

// Connect resolves the broker and opens the connection
func (c *Client) Connect(ctx context.Context) error {
	if err := c.validateBroker(ctx); err != nil {
		return err
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(func(paho.Client) {
		c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
		c.metrics.SetMQTTConnected(true)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("MQTT connection lost", logger.String("broker", c.config.Broker), logger.Error(err))
		c.metrics.SetMQTTConnected(false)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.Newf("mqtt client closed").Component("mqtt").Category(errors.CategoryMQTTConnection).Build()
	}

	client := c.newPaho(opts)
	token := client.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}
	c.paho = client
	return nil
}

// IsConnected reports whether the broker connection is up
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paho != nil && c.paho.IsConnected()
}

// Topic joins the base topic and subtopic
func (c *Client) Topic(subtopic string) string {
	base := strings.TrimSuffix(c.config.Topic, "/")
	subtopic = strings.Trim(subtopic, "/")
	switch {
	case subtopic == "":
		return base
	case base == "":
		return subtopic
	default:
		return base + "/" + subtopic
	}
}

// Publish sends payload at QoS 1 to the subtopic below the base topic
func (c *Client) Publish(ctx context.Context, subtopic string, payload []byte) error {
	c.mu.Lock()
	client := c.paho
	c.mu.Unlock()

	topic := c.Topic(subtopic)
	if client == nil || !client.IsConnected() {
		err := errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
		c.metrics.RecordMQTTPublish(err)
		return err
	}

	token := client.Publish(topic, 1, c.config.Retain, payload)
	err := waitToken(ctx, token, c.config.PublishTimeout)
	if err != nil {
		err = errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	c.metrics.RecordMQTTPublish(err)
	if err == nil {
		c.log.Debug("published", logger.String("topic", topic), logger.Int("bytes", len(payload)))
	}
	return err
}

// Disconnect closes the connection. The client cannot be reused.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.paho != nil {
		c.paho.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.paho = nil
	}
	c.metrics.SetMQTTConnected(false)
}

// waitToken waits for token within timeout or until ctx is done
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.Newf("timed out after %s", timeout).Category(errors.CategoryTimeout).Build()
	case <-ctx.Done():
		return ctx.Err()
	}
}
