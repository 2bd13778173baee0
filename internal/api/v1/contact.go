package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/notification"
)

// ContactRequest is the public contact form
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
	EventID *int   `json:"eventId,omitempty"`
}

// ContactResponse acknowledges a contact message
type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int    `json:"id"`
}

func (c *Controller) initContactRoutes() {
	c.Group.POST("/contact", c.SubmitContact)
}

// SubmitContact handles POST /api/contact
func (c *Controller) SubmitContact(ctx echo.Context) error {
	var req ContactRequest
	if err := bindBody(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid contact request", http.StatusBadRequest)
	}

	msg := entities.ContactMessage{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Subject:  strings.TrimSpace(req.Subject),
		Message:  strings.TrimSpace(req.Message),
		EventID:  req.EventID,
		Status:   entities.MessageNew,
		ClientIP: ctx.RealIP(),
	}
	if err := msg.Validate(); err != nil {
		return c.HandleError(ctx, err, "Please check the contact form", http.StatusBadRequest)
	}

	saved, err := c.Repos.Messages.Add(msg)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to save your message")
	}

	c.log.Info("contact message received", logger.Int("message_id", saved.ID))

	c.recordLead(ctx, entities.LeadAuditLog{
		Source:  entities.LeadSourceContact,
		Goal:    "contact-form",
		Message: saved.Subject,
		Email:   saved.Email,
	})
	c.notify(notification.ContactMessageNotification(&saved))

	return ctx.JSON(http.StatusCreated, ContactResponse{
		Success: true,
		Message: "Thank you for your message. We will get back to you shortly.",
		ID:      saved.ID,
	})
}
