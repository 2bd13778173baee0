// Package notification delivers admin alerts (new contact messages,
// registrations, chat leads) through shoutrrr service URLs. Delivery happens
// on a background worker so request handlers never wait on a push service.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
)

// Kind identifies what an alert is about
type Kind string

const (
	KindContactMessage Kind = "contact_message"
	KindRegistration   Kind = "registration"
	KindLead           Kind = "lead"
	KindSystem         Kind = "system"
)

// Notification is a single admin alert
type Notification struct {
	Kind      Kind
	Title     string
	Message   string
	Timestamp time.Time
}

// Sender delivers a notification to one or more services
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// ContactMessageNotification describes a new contact form submission
func ContactMessageNotification(m *entities.ContactMessage) *Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", m.Name, m.Email)
	if m.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", m.Phone)
	}
	if m.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	}
	b.WriteString("\n")
	b.WriteString(excerpt(m.Message, 500))

	return &Notification{
		Kind:      KindContactMessage,
		Title:     "New contact message",
		Message:   b.String(),
		Timestamp: time.Now(),
	}
}

// RegistrationNotification describes a new event registration
func RegistrationNotification(r *entities.EventRegistration, eventTitle string) *Notification {
	if eventTitle == "" {
		eventTitle = fmt.Sprintf("event #%d", r.EventID)
	}
	msg := fmt.Sprintf("%s <%s> registered for %s", r.FullName, r.Email, eventTitle)
	if r.Company != "" {
		msg += " (" + r.Company + ")"
	}
	return &Notification{
		Kind:      KindRegistration,
		Title:     "New registration",
		Message:   msg,
		Timestamp: time.Now(),
	}
}

// LeadNotification describes a chat conversation worth following up
func LeadNotification(l *entities.LeadAuditLog) *Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s", l.Source)
	if l.Intent != "" {
		fmt.Fprintf(&b, ", intent: %s", l.Intent)
	}
	if l.SessionID != "" {
		fmt.Fprintf(&b, "\nSession: %s", l.SessionID)
	}
	if l.Message != "" {
		b.WriteString("\n\n")
		b.WriteString(excerpt(l.Message, 300))
	}
	return &Notification{
		Kind:      KindLead,
		Title:     "New lead",
		Message:   b.String(),
		Timestamp: time.Now(),
	}
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}

// GetLogger returns the notification module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("notification")
}
