package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Rule maps requests to a limiter class. A request matches when its path
// contains PathContains and its method is one of Methods.
type Rule struct {
	Class        Class
	PathContains string
	Methods      []string
}

func (r Rule) matches(req *http.Request) bool {
	return strings.Contains(req.URL.Path, r.PathContains) && slices.Contains(r.Methods, req.Method)
}

// DefaultRules returns the gated endpoints
func DefaultRules() []Rule {
	return []Rule{
		{Class: ClassContact, PathContains: "/contact", Methods: []string{http.MethodPost}},
		{Class: ClassVerify, PathContains: "/verify/check", Methods: []string{http.MethodGet, http.MethodPost}},
		{Class: ClassRegister, PathContains: "/api/events/register", Methods: []string{http.MethodPost}},
	}
}

// ErrorResponse is the body sent with 429 responses
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware rejects requests over their class budget with 429. Requests
// matching no rule pass through untouched.
func Middleware(l *Limiter, rules []Rule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			idx := slices.IndexFunc(rules, func(r Rule) bool { return r.matches(req) })
			if idx < 0 {
				return next(c)
			}

			d := l.CheckAndRecord(ClientID(req), rules[idx].Class)
			if d.Limit > 0 {
				c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
			}
			if d.Allowed {
				return next(c)
			}

			secs := d.RetryAfterSeconds()
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:      "Too many requests",
				Message:    fmt.Sprintf("Too many requests. Please try again in %d seconds.", secs),
				RetryAfter: secs,
			})
		}
	}
}

// ClientID identifies the caller of r: the first valid address in
// X-Forwarded-For, then X-Real-IP, then the socket address.
func ClientID(r *http.Request) string {
	if xff := r.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get(echo.HeaderXRealIP))); ip != nil {
		return ip.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}

// IPExtractor adapts ClientID for echo.Echo.IPExtractor
func IPExtractor() echo.IPExtractor {
	return ClientID
}
