package notification

import (
	"context"
	"io"
	"log"
	"regexp"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// service URLs carry tokens in the userinfo part, e.g. telegram://token@telegram
var serviceURLCredentials = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^@\s/]+@`)

// ShoutrrrSender sends through a single shoutrrr router covering all
// configured service URLs
type ShoutrrrSender struct {
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrSender validates urls and builds the router
func NewShoutrrrSender(urls []string, timeout time.Duration) (*ShoutrrrSender, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(sanitizeError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(urls)).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrSender{urls: slices.Clone(urls), sender: sender}, nil
}

// Send delivers n to every configured service and returns the first failure
func (s *ShoutrrrSender) Send(ctx context.Context, n *Notification) error {
	// router applies its own timeout
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return errors.New(sanitizeError(err)).
				Component("notification").
				Category(errors.CategoryNotification).
				Context("kind", string(n.Kind)).
				Build()
		}
	}
	return nil
}

// Services returns the number of configured service URLs
func (s *ShoutrrrSender) Services() int {
	return len(s.urls)
}

// sanitizeError strips service credentials from err's text
func sanitizeError(err error) error {
	msg := serviceURLCredentials.ReplaceAllString(err.Error(), "${1}[REDACTED]@")
	return errors.NewStd(logger.RedactSensitiveData(msg))
}
