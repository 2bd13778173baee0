package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/notification"
)

// Reasons an event refuses registrations
const (
	reasonClosed = "registration is closed for this event"
	reasonEnded  = "this event has already taken place"
	reasonFull   = "this event is fully booked"
)

// RegistrationRequest is the public event sign-up form
type RegistrationRequest struct {
	EventID  int    `json:"eventId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// RegistrationResponse confirms a sign-up
type RegistrationResponse struct {
	Success      bool                        `json:"success"`
	Message      string                      `json:"message"`
	Registration *entities.EventRegistration `json:"registration"`
}

func (c *Controller) initRegistrationRoutes() {
	c.Group.POST("/events/register", c.RegisterForEvent)
}

// registrationClosedReason returns why event refuses a new registration,
// or "" when it accepts one. registered counts active, non-cancelled sign-ups.
func registrationClosedReason(event *entities.Event, registered int, now time.Time) string {
	switch {
	case !event.RegistrationOpen:
		return reasonClosed
	case event.HasEnded(now):
		return reasonEnded
	case event.Capacity > 0 && registered >= event.Capacity:
		return reasonFull
	default:
		return ""
	}
}

// RegisterForEvent handles POST /api/events/register
func (c *Controller) RegisterForEvent(ctx echo.Context) error {
	var req RegistrationRequest
	if err := bindBody(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid registration request", http.StatusBadRequest)
	}

	reg := entities.EventRegistration{
		EventID:  req.EventID,
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Company:  strings.TrimSpace(req.Company),
		Notes:    strings.TrimSpace(req.Notes),
		Status:   entities.RegistrationPending,
	}
	if err := reg.Validate(); err != nil {
		return c.HandleError(ctx, err, "Please check the registration form", http.StatusBadRequest)
	}

	c.registerMu.Lock()
	defer c.registerMu.Unlock()

	event, ok, err := c.Repos.Events.GetByID(reg.EventID)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load event")
	}
	if !ok || !entities.IsActive(event) {
		return c.notFound(ctx, "Event")
	}

	registered, err := c.Repos.Registrations.CountForEvent(event.ID)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to check event capacity")
	}
	if reason := registrationClosedReason(&event, registered, c.now()); reason != "" {
		return c.HandleError(ctx, conflict("event %d: %s", event.ID, reason), reason, http.StatusConflict)
	}

	if _, dup, err := c.Repos.Registrations.FindForEvent(event.ID, reg.Email); err != nil {
		return c.handleStoreError(ctx, err, "Failed to check existing registrations")
	} else if dup {
		msg := "this email address is already registered for the event"
		return c.HandleError(ctx, conflict("duplicate registration for event %d", event.ID), msg, http.StatusConflict)
	}

	saved, err := c.Repos.Registrations.Add(reg)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to save registration")
	}

	c.log.Info("event registration received",
		logger.Int("registration_id", saved.ID),
		logger.Int("event_id", event.ID))

	c.recordLead(ctx, entities.LeadAuditLog{
		Source:  entities.LeadSourceRegistration,
		Goal:    "event-registration",
		Message: fmt.Sprintf("Registered for %q", event.Title),
		Email:   saved.Email,
	})
	c.notify(notification.RegistrationNotification(&saved, event.Title))

	return ctx.JSON(http.StatusCreated, RegistrationResponse{
		Success:      true,
		Message:      fmt.Sprintf("Thank you, %s. Your registration for %s has been received.", saved.FullName, event.Title),
		Registration: &saved,
	})
}
