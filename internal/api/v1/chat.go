package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/chat"
)

func (c *Controller) initChatRoutes() {
	c.Group.POST("/chat", c.Chat)
}

// Chat handles POST /api/chat. Provider failures are answered with a
// canned reply and success=false, never with an error status.
func (c *Controller) Chat(ctx echo.Context) error {
	if c.chat == nil {
		return c.HandleError(ctx, nil, "The chat assistant is not enabled", http.StatusServiceUnavailable)
	}
	if s, ok, _ := c.Repos.Settings.Current(); ok && !s.ChatEnabled {
		return c.HandleError(ctx, nil, "The chat assistant is switched off", http.StatusServiceUnavailable)
	}

	var req chat.Request
	if err := bindBody(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid chat request", http.StatusBadRequest)
	}

	resp := c.chat.Handle(ctx.Request().Context(), req, ctx.RealIP())
	return ctx.JSON(http.StatusOK, resp)
}
