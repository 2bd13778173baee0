package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/entities"
)

func (c *Controller) initSiteRoutes() {
	c.Group.GET("/profile", c.GetProfile)
	c.Group.GET("/settings", c.GetPublicSettings)
	c.Group.GET("/images", c.ListImages)
	c.Group.GET("/video", c.GetVideo)
}

// GetProfile handles GET /api/profile
func (c *Controller) GetProfile(ctx echo.Context) error {
	profile, ok, err := c.Repos.Profiles.Current()
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load profile")
	}
	if !ok {
		return c.notFound(ctx, "Profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

// PublicSettings is the part of the system settings the site needs
type PublicSettings struct {
	SiteName        string `json:"siteName"`
	ContactEmail    string `json:"contactEmail,omitempty"`
	ChatEnabled     bool   `json:"chatEnabled"`
	MaintenanceMode bool   `json:"maintenanceMode"`
	Announcement    string `json:"announcement,omitempty"`
}

// GetPublicSettings handles GET /api/settings. Without a stored record the
// configured site name is returned.
func (c *Controller) GetPublicSettings(ctx echo.Context) error {
	s, ok, err := c.Repos.Settings.Current()
	c.degraded(ctx, err, "settings")
	if !ok {
		return ctx.JSON(http.StatusOK, PublicSettings{
			SiteName:    c.Settings.Main.Name,
			ChatEnabled: c.chat != nil,
		})
	}
	return ctx.JSON(http.StatusOK, PublicSettings{
		SiteName:        s.SiteName,
		ContactEmail:    s.ContactEmail,
		ChatEnabled:     s.ChatEnabled && c.chat != nil,
		MaintenanceMode: s.MaintenanceMode,
		Announcement:    s.Announcement,
	})
}

// ListImages handles GET /api/images?section=
func (c *Controller) ListImages(ctx echo.Context) error {
	var (
		images []entities.WebsiteImage
		err    error
	)
	if section := strings.TrimSpace(ctx.QueryParam("section")); section != "" {
		images, err = c.Repos.Images.BySection(section)
	} else {
		images, err = c.Repos.Images.Active()
	}
	c.degraded(ctx, err, "images")
	return ctx.JSON(http.StatusOK, images)
}

// GetVideo handles GET /api/video
func (c *Controller) GetVideo(ctx echo.Context) error {
	video, ok, err := c.Repos.Videos.Active()
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load video")
	}
	if !ok {
		return c.notFound(ctx, "Video")
	}
	return ctx.JSON(http.StatusOK, video)
}
