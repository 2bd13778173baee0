package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	mw "github.com/learnforge/trainingportal/internal/api/middleware"
	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/security"
)

const (
	defaultLeadLimit = 100
	maxLeadLimit     = 1000
)

func (c *Controller) initAdminRoutes() {
	if c.auth == nil {
		c.log.Info("admin API disabled, no authenticator configured")
		return
	}

	admin := c.Group.Group("/admin")
	admin.POST("/login", c.Login, c.loginRateLimiter())
	admin.POST("/logout", c.Logout)
	admin.GET("/session", c.GetSession)

	protected := admin.Group("",
		c.auth.RequireAdmin(c.unauthorized),
		mw.NewCSRF(&mw.CSRFConfig{CookieSecure: c.Settings.Security.SecureCookies}),
	)

	mountCRUD(protected, &resource[entities.Training]{name: "trainings", label: "Training", repo: c.Repos.Trainings, ctrl: c})
	mountCRUD(protected, &resource[entities.Course]{name: "courses", label: "Course", repo: c.Repos.Courses, ctrl: c})
	mountCRUD(protected, &resource[entities.Event]{name: "events", label: "Event", repo: c.Repos.Events, ctrl: c})
	mountCRUD(protected, &resource[entities.ContactMessage]{
		name: "messages", label: "Message", repo: c.Repos.Messages, ctrl: c,
		prepare: func(m *entities.ContactMessage) {
			if m.Status == "" {
				m.Status = entities.MessageNew
			}
		},
	})
	mountCRUD(protected, &resource[entities.Certificate]{
		name: "certificates", label: "Certificate", repo: c.Repos.Certificates, ctrl: c,
		prepare: func(cert *entities.Certificate) {
			cert.CertificateNumber = entities.NormalizeCertificateNumber(cert.CertificateNumber)
			if cert.Status == "" {
				cert.Status = entities.CertificateValid
			}
		},
		check: c.checkCertificateNumber,
	})
	mountCRUD(protected, &resource[entities.EventRegistration]{
		name: "registrations", label: "Registration", repo: c.Repos.Registrations, ctrl: c,
		prepare: func(r *entities.EventRegistration) {
			if r.Status == "" {
				r.Status = entities.RegistrationPending
			}
		},
	})
	mountCRUD(protected, &resource[entities.WebsiteImage]{name: "images", label: "Image", repo: c.Repos.Images, ctrl: c})
	mountCRUD(protected, &resource[entities.Video]{name: "videos", label: "Video", repo: c.Repos.Videos, ctrl: c})

	protected.PATCH("/messages/:id/status", c.UpdateMessageStatus)

	protected.GET("/profile", c.GetProfile)
	protected.PUT("/profile", c.SaveProfile)
	protected.GET("/settings", c.GetAdminSettings)
	protected.PUT("/settings", c.SaveSettings)

	protected.GET("/leads", c.ListLeads)
	protected.GET("/dashboard", c.Dashboard)
}

// checkCertificateNumber rejects a number already used by another active
// certificate
func (c *Controller) checkCertificateNumber(cert *entities.Certificate, id int) error {
	existing, ok, err := c.Repos.Certificates.ByNumber(cert.CertificateNumber)
	if err != nil {
		return err
	}
	if ok && existing.ID != id {
		return conflict("certificate number %s is already issued", cert.CertificateNumber)
	}
	return nil
}

// MessageStatusRequest is the body of PATCH /api/admin/messages/:id/status
type MessageStatusRequest struct {
	Status string `json:"status"`
}

// UpdateMessageStatus handles PATCH /api/admin/messages/:id/status
func (c *Controller) UpdateMessageStatus(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid message id", http.StatusBadRequest)
	}
	var req MessageStatusRequest
	if err := bindBody(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid status request", http.StatusBadRequest)
	}

	msg, ok, err := c.Repos.Messages.GetByID(id)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load message")
	}
	if !ok || !entities.IsActive(msg) {
		return c.notFound(ctx, "Message")
	}

	from := msg.Status
	msg.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := msg.Validate(); err != nil {
		return c.HandleError(ctx, err, "Invalid message status", http.StatusBadRequest)
	}
	if !entities.CanTransitionMessage(from, msg.Status) {
		err := conflict("message %d cannot move from %q to %q", id, from, msg.Status)
		return c.HandleError(ctx, err, "Status change not allowed", http.StatusConflict)
	}

	saved, err := c.Repos.Messages.Update(msg)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to update message")
	}
	c.log.Info("message status changed",
		logger.Int("message_id", id),
		logger.String("from", from),
		logger.String("to", saved.Status),
		logger.String("admin", adminUser(ctx)))
	return ctx.JSON(http.StatusOK, saved)
}

// SaveProfile handles PUT /api/admin/profile
func (c *Controller) SaveProfile(ctx echo.Context) error {
	var p entities.Profile
	if err := bindBody(ctx, &p); err != nil {
		return c.HandleError(ctx, err, "Invalid profile", http.StatusBadRequest)
	}
	if err := p.Validate(); err != nil {
		return c.HandleError(ctx, err, "Please check the profile", http.StatusBadRequest)
	}
	saved, err := c.Repos.Profiles.Save(p)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to save profile")
	}
	return ctx.JSON(http.StatusOK, saved)
}

// GetAdminSettings handles GET /api/admin/settings
func (c *Controller) GetAdminSettings(ctx echo.Context) error {
	s, ok, err := c.Repos.Settings.Current()
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load settings")
	}
	if !ok {
		return c.notFound(ctx, "Settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

// SaveSettings handles PUT /api/admin/settings
func (c *Controller) SaveSettings(ctx echo.Context) error {
	var s entities.SystemSetting
	if err := bindBody(ctx, &s); err != nil {
		return c.HandleError(ctx, err, "Invalid settings", http.StatusBadRequest)
	}
	if err := s.Validate(); err != nil {
		return c.HandleError(ctx, err, "Please check the settings", http.StatusBadRequest)
	}
	saved, err := c.Repos.Settings.Save(s)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to save settings")
	}
	c.log.Info("system settings updated", logger.String("admin", adminUser(ctx)))
	return ctx.JSON(http.StatusOK, saved)
}

// ListLeads handles GET /api/admin/leads?limit=&session=&intent=
func (c *Controller) ListLeads(ctx echo.Context) error {
	limit := defaultLeadLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.HandleError(ctx, err, "limit must be a positive integer", http.StatusBadRequest)
		}
		limit = min(n, maxLeadLimit)
	}

	var (
		leads []entities.LeadAuditLog
		err   error
	)
	switch {
	case ctx.QueryParam("session") != "":
		leads, err = c.Repos.Leads.BySession(ctx.QueryParam("session"))
	case ctx.QueryParam("intent") != "":
		leads, err = c.Repos.Leads.ByIntent(ctx.QueryParam("intent"))
	default:
		leads, err = c.Repos.Leads.Recent(limit)
	}
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load leads")
	}
	if len(leads) > limit {
		leads = leads[:limit]
	}
	return ctx.JSON(http.StatusOK, leads)
}

// DashboardSummary is the admin landing page overview
type DashboardSummary struct {
	UnreadMessages      int                          `json:"unreadMessages"`
	UpcomingEvents      int                          `json:"upcomingEvents"`
	UpcomingTrainings   int                          `json:"upcomingTrainings"`
	ActiveCourses       int                          `json:"activeCourses"`
	RecentRegistrations []entities.EventRegistration `json:"recentRegistrations"`
	RecentMessages      []entities.ContactMessage    `json:"recentMessages"`
}

// Dashboard handles GET /api/admin/dashboard
func (c *Controller) Dashboard(ctx echo.Context) error {
	now := c.now()
	unread, err1 := c.Repos.Messages.Unread()
	events, err2 := c.Repos.Events.Upcoming(now)
	trainings, err3 := c.Repos.Trainings.Upcoming(now)
	courses, err4 := c.Repos.Courses.Active()
	regs, err5 := c.Repos.Registrations.Recent(5)
	msgs, err6 := c.Repos.Messages.Recent(5)
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return c.handleStoreError(ctx, err, "Failed to load dashboard")
		}
	}

	return ctx.JSON(http.StatusOK, DashboardSummary{
		UnreadMessages:      len(unread),
		UpcomingEvents:      len(events),
		UpcomingTrainings:   len(trainings),
		ActiveCourses:       len(courses),
		RecentRegistrations: regs,
		RecentMessages:      msgs,
	})
}

func adminUser(ctx echo.Context) string {
	user, _ := ctx.Get(security.ContextKeyAdmin).(string)
	return user
}
