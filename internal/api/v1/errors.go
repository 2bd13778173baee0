package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	mw "github.com/learnforge/trainingportal/internal/api/middleware"
	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/repository"
)

// ErrorResponse is the body of every API error
type ErrorResponse struct {
	Error         string                `json:"error"`
	Message       string                `json:"message"`
	Code          int                   `json:"code"`
	CorrelationID string                `json:"correlationId"`
	Fields        []entities.FieldError `json:"fields,omitempty"`
}

// NewErrorResponse creates an error body. Server errors carry the status
// text instead of err so internal details stay in the log.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}

	switch {
	case code >= http.StatusInternalServerError:
		resp.Error = http.StatusText(code)
	case err != nil:
		resp.Error = err.Error()
	default:
		resp.Error = message
	}

	var verrs entities.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	return resp
}

// HandleError logs err and writes the error body
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	correlationID := mw.RequestID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	resp := NewErrorResponse(err, message, code, correlationID)

	fields := []logger.Field{
		logger.String("correlation_id", correlationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusFor maps repository and validation errors to HTTP status codes
func statusFor(err error) int {
	var verrs entities.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrRecordNotFound), errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleStoreError responds to a failed repository call
func (c *Controller) handleStoreError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}

func (c *Controller) notFound(ctx echo.Context, what string) error {
	return c.HandleError(ctx, nil, what+" not found", http.StatusNotFound)
}

func conflict(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("api").
		Category(errors.CategoryConflict).
		Build()
}

// parseID reads the :id path parameter
func parseID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.ValidationError("id must be a positive integer")
	}
	return id, nil
}

// bindBody decodes the JSON body into dst
func bindBody(ctx echo.Context, dst any) error {
	if err := ctx.Bind(dst); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// validate runs Validate when rec implements it
func validate(rec any) error {
	if v, ok := rec.(entities.Validator); ok {
		return v.Validate()
	}
	return nil
}
