// Package chat implements the course assistant: keyword intent
// classification, the welcome flow, catalog context and the call to the
// generative-AI provider.
package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

const (
	// MaxMessageRunes caps the user message passed to the provider
	MaxMessageRunes = 2000

	defaultHistoryLimit = 10
	goalWelcome         = "welcome"
)

// Request is a chat message from the widget
type Request struct {
	Message   string `json:"message"`
	History   []Turn `json:"history"`
	SessionID string `json:"sessionId,omitempty"`
}

// Response is the assistant's answer
type Response struct {
	Reply       string   `json:"reply"`
	Intent      Intent   `json:"intent"`
	Goal        string   `json:"goal"`
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	SessionID   string   `json:"sessionId"`
}

// LeadRecorder stores sales-relevant interactions
type LeadRecorder interface {
	RecordLead(ctx context.Context, lead entities.LeadAuditLog)
}

// Option configures a Service
type Option func(*Service)

// WithProvider sets the generative-AI provider. Without one every
// non-canned reply is the "contact us" message.
func WithProvider(p Provider) Option { return func(s *Service) { s.provider = p } }

// WithCourseSource merges published courses into the catalog context
func WithCourseSource(src CourseSource) Option { return func(s *Service) { s.courses = src } }

// WithLeadRecorder records pricing and escalation messages as leads
func WithLeadRecorder(r LeadRecorder) Option { return func(s *Service) { s.leads = r } }

// WithContact sets the human contact fallback
func WithContact(c Contact) Option { return func(s *Service) { s.contact = c } }

// WithHistoryLimit caps the number of history turns sent to the provider
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// WithMetrics records classified messages
func WithMetrics(m *metrics.ChatMetrics) Option { return func(s *Service) { s.metrics = m } }

// Service answers chat requests
type Service struct {
	catalog      *Catalog
	provider     Provider
	courses      CourseSource
	leads        LeadRecorder
	contact      Contact
	historyLimit int
	metrics      *metrics.ChatMetrics
	log          logger.Logger
}

// NewService creates a chat service over catalog
func NewService(catalog *Catalog, opts ...Option) *Service {
	if catalog == nil {
		catalog = &Catalog{}
	}
	s := &Service{
		catalog:      catalog,
		historyLimit: defaultHistoryLimit,
		log:          GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a provider is configured
func (s *Service) Available() bool { return s.provider != nil }

// Handle answers one message. It never fails: provider problems become
// canned replies with Success=false.
func (s *Service) Handle(ctx context.Context, req Request, clientIP string) Response {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	msg := truncateRunes(strings.TrimSpace(req.Message), MaxMessageRunes)
	history := cleanHistory(req.History)

	if len(history) == 0 && IsGreeting(msg) {
		w := welcome(s.catalog.Organization)
		s.metrics.RecordMessage(goalWelcome)
		return Response{
			Reply:       w.Reply,
			Intent:      IntentGeneral,
			Goal:        goalWelcome,
			Success:     true,
			Suggestions: w.Suggestions,
			SessionID:   sessionID,
		}
	}
	if msg == "" {
		return Response{
			Reply:     "Please type your question and I'll do my best to help.",
			Intent:    IntentGeneral,
			Goal:      GoalLabel(IntentGeneral),
			Success:   false,
			Error:     "empty message",
			SessionID: sessionID,
		}
	}

	intent := Classify(msg)
	goal := GoalLabel(intent)
	s.metrics.RecordMessage(string(intent))
	resp := Response{Intent: intent, Goal: goal, SessionID: sessionID}

	if intent.IsRefusal() {
		s.log.Info("exam question refused", logger.String("session_id", sessionID))
		resp.Reply = refusalReply()
		resp.Success = true
		return resp
	}

	if intent.IsLead() && s.leads != nil {
		s.leads.RecordLead(ctx, entities.LeadAuditLog{
			SessionID: sessionID,
			Source:    entities.LeadSourceChat,
			Intent:    string(intent),
			Goal:      goal,
			Message:   msg,
			ClientIP:  clientIP,
		})
	}

	if s.provider == nil {
		resp.Reply = unavailableReply(s.contact)
		resp.Error = "assistant unavailable"
		return resp
	}

	reply, err := s.provider.Generate(ctx, Prompt{
		System:  s.systemPrompt(intent),
		History: s.trimHistory(history),
		Message: msg,
	})
	if err != nil {
		kind := KindOf(err)
		resp.Reply = providerFailureReply(kind, s.contact)
		resp.Error = string(kind)
		return resp
	}

	resp.Reply = reply
	resp.Success = true
	return resp
}

func (s *Service) catalogFor() *Catalog {
	if s.courses == nil {
		return s.catalog
	}
	live, err := s.courses.Active()
	if err != nil {
		s.log.Warn("live courses unavailable, using static catalog", logger.Error(err))
		return s.catalog
	}
	return s.catalog.WithCourses(live)
}

func (s *Service) systemPrompt(intent Intent) string {
	org := s.catalog.Organization
	if org == "" {
		org = "a professional IT training center"
	}

	var b strings.Builder
	b.WriteString("You are the course assistant of " + org + ". Answer prospective students in a friendly, ")
	b.WriteString("concise way, in the language they write in. Only use facts from the catalog below; if the ")
	b.WriteString("answer is not there, say so and offer the contact details. Never provide answers to exam ")
	b.WriteString("or assessment questions.\n\n")
	b.WriteString(s.catalogFor().Context())
	b.WriteString("\nGoal: " + goalInstruction(intent) + "\n")
	b.WriteString("Contact: " + s.contact.line() + "\n")
	return b.String()
}

func (s *Service) trimHistory(history []Turn) []Turn {
	if s.historyLimit == 0 {
		return nil
	}
	if len(history) > s.historyLimit {
		return history[len(history)-s.historyLimit:]
	}
	return history
}

func cleanHistory(history []Turn) []Turn {
	out := make([]Turn, 0, len(history))
	for _, t := range history {
		text := strings.TrimSpace(t.Content)
		if text == "" {
			continue
		}
		out = append(out, Turn{Role: providerRole(t.Role), Content: truncateRunes(text, MaxMessageRunes)})
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
