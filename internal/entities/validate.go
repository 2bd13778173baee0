package entities

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/learnforge/trainingportal/internal/errors"
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validate implementations
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + " " + fe.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// ErrorCategory implements errors.CategorizedError
func (v ValidationErrors) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryValidation
}

type checker struct {
	problems ValidationErrors
}

func (c *checker) add(field, format string, args ...any) {
	c.problems = append(c.problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, "is required")
	}
}

func (c *checker) maxLen(field, value string, n int) {
	if len([]rune(value)) > n {
		c.add(field, "must be at most %d characters", n)
	}
}

func (c *checker) email(field, value string, required bool) {
	if strings.TrimSpace(value) == "" {
		if required {
			c.add(field, "is required")
		}
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		c.add(field, "must be a valid email address")
	}
}

func (c *checker) oneOf(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.add(field, "must be one of %s", strings.Join(allowed, ", "))
}

func (c *checker) nonNegative(field string, value float64) {
	if value < 0 {
		c.add(field, "must not be negative")
	}
}

func (c *checker) err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return c.problems
}
