package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/httpclient"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

// ErrorKind classifies provider failures
type ErrorKind string

const (
	KindQuota     ErrorKind = "quota"
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed"
	KindUpstream  ErrorKind = "upstream"
)

// ProviderError is returned by Provider implementations
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("chat provider %s error", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf returns the kind of a provider error, KindUpstream for other errors
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUpstream
}

// Turn is one message of the conversation history
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Prompt is everything sent to the model for one reply
type Prompt struct {
	System  string
	History []Turn
	Message string
}

// Provider produces a reply for a prompt
type Provider interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

const maxProviderBody = 1 << 20

// Client calls a generateContent-style generative-AI endpoint. Requests are
// paced by a token bucket, and replies to prompts without history are cached.
type Client struct {
	http        *httpclient.Client
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int

	limiter *rate.Limiter
	cache   *cache.Cache
	metrics *metrics.ChatMetrics
	log     logger.Logger
}

// NewClient creates a provider client from chat settings. It fails when no
// API key is configured.
func NewClient(s *conf.ChatSettings, hc *httpclient.Client, m *metrics.ChatMetrics) (*Client, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.Newf("chat API key is not configured").
			Component("chat").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{Timeout: s.Timeout})
	}

	c := &Client{
		http:        hc,
		baseURL:     strings.TrimRight(s.BaseURL, "/"),
		model:       s.Model,
		apiKey:      s.APIKey,
		temperature: s.Temperature,
		maxTokens:   s.MaxOutputTokens,
		metrics:     m,
		log:         GetLogger().Module("provider"),
	}
	if s.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.RequestsPerSecond), max(s.Burst, 1))
	}
	if s.CacheTTL > 0 {
		c.cache = cache.New(s.CacheTTL, 2*s.CacheTTL)
	}
	return c, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
}

func cacheKey(model string, p Prompt) string {
	sum := sha256.Sum256([]byte(model + "\x00" + p.System + "\x00" + normalize(p.Message)))
	return hex.EncodeToString(sum[:])
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

func providerRole(role string) string {
	switch strings.ToLower(role) {
	case "assistant", "model", "bot":
		return "model"
	default:
		return "user"
	}
}

func (c *Client) buildRequest(p Prompt) generateRequest {
	req := generateRequest{
		GenerationConfig: generationConfig{Temperature: c.temperature, MaxOutputTokens: c.maxTokens},
	}
	if p.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: p.System}}}
	}
	for _, t := range p.History {
		req.Contents = append(req.Contents, content{Role: providerRole(t.Role), Parts: []part{{Text: t.Content}}})
	}
	req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: p.Message}}})
	return req
}

// Generate sends p to the provider. Failures are *ProviderError values
// wrapped with the chat-provider category; nothing is retried.
func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	cacheable := c.cache != nil && len(p.History) == 0
	var key string
	if cacheable {
		key = cacheKey(c.model, p)
		if v, ok := c.cache.Get(key); ok {
			c.metrics.RecordCacheLookup(true)
			return v.(string), nil
		}
		c.metrics.RecordCacheLookup(false)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", c.fail(&ProviderError{Kind: KindTimeout, Message: "waiting for request slot", Err: err}, 0)
		}
	}

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.endpoint(), c.buildRequest(p), map[string]string{"x-goog-api-key": c.apiKey})
	if err != nil {
		kind := KindUpstream
		if httpclient.IsTimeout(err) {
			kind = KindTimeout
		}
		return "", c.fail(&ProviderError{Kind: kind, Err: err}, time.Since(start))
	}

	body, err := httpclient.ReadBody(resp, maxProviderBody)
	elapsed := time.Since(start)
	if err != nil {
		kind := KindMalformed
		if httpclient.IsTimeout(err) {
			kind = KindTimeout
		}
		return "", c.fail(&ProviderError{Kind: kind, StatusCode: resp.StatusCode, Err: err}, elapsed)
	}

	if resp.StatusCode != http.StatusOK {
		kind := KindUpstream
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			kind = KindQuota
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			kind = KindTimeout
		}
		return "", c.fail(&ProviderError{Kind: kind, StatusCode: resp.StatusCode, Message: upstreamMessage(body)}, elapsed)
	}

	reply, err := extractReply(body)
	if err != nil {
		return "", c.fail(&ProviderError{Kind: KindMalformed, StatusCode: resp.StatusCode, Err: err}, elapsed)
	}

	c.metrics.RecordProviderRequest(metrics.StatusSuccess, elapsed)
	c.log.Debug("provider reply received",
		logger.Duration("elapsed", elapsed),
		logger.Int("reply_chars", len(reply)))
	if cacheable {
		c.cache.SetDefault(key, reply)
	}
	return reply, nil
}

func (c *Client) fail(pe *ProviderError, elapsed time.Duration) error {
	c.metrics.RecordProviderRequest(string(pe.Kind), elapsed)
	c.log.Warn("chat provider request failed",
		logger.String("kind", string(pe.Kind)),
		logger.Int("status", pe.StatusCode),
		logger.Error(pe))
	return errors.New(pe).
		Component("chat").
		Category(errors.CategoryChatProvider).
		Context("kind", string(pe.Kind)).
		Context("model", c.model).
		Build()
}

// extractReply joins the text parts of the first candidate
func extractReply(body []byte) (string, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return "", err
	}
	candidates, err := obj.GetObjectArray("candidates")
	if err != nil {
		if reason, rerr := obj.GetString("promptFeedback", "blockReason"); rerr == nil {
			return "", errors.Newf("prompt blocked: %s", reason).Component("chat").Build()
		}
		return "", err
	}
	if len(candidates) == 0 {
		return "", errors.Newf("no candidates in response").Component("chat").Build()
	}

	parts, err := candidates[0].GetObjectArray("content", "parts")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		if text, err := p.GetString("text"); err == nil {
			b.WriteString(text)
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", errors.Newf("empty reply").Component("chat").Build()
	}
	return reply, nil
}

// upstreamMessage pulls error.message out of an error body, if present
func upstreamMessage(body []byte) string {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return ""
	}
	msg, _ := obj.GetString("error", "message")
	return msg
}

// GetLogger returns the chat module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("chat")
}
