package notifications

import (
	"fmt"
	"log"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// LocalLog is a logrus logger that does not send entries as notifications.
var LocalLog = logrus.WithField("notify", "no")

// router is the subset of the shoutrrr sender used here, extracted so
// tests can intercept sends.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// Notifier sends messages to the configured shoutrrr services.
type Notifier struct {
	urls   []string
	router router
	params *shoutrrrTypes.Params
}

// NewNotifier creates a Notifier for the given shoutrrr service URLs.
// With no URLs it returns nil, which is a valid no-op notifier.
//
// Parameters:
//   - urls: Shoutrrr service URLs.
//   - title: Optional notification title.
//
// Returns:
//   - *Notifier: Configured notifier, nil when no URLs are given.
//   - error: Non-nil if a service URL could not be parsed.
func NewNotifier(urls []string, title string) (*Notifier, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	logger := log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)

	sender, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}

	params := &shoutrrrTypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	return &Notifier{
		urls:   urls,
		router: sender,
		params: params,
	}, nil
}

// Send delivers a message to every configured service. Send on a nil
// Notifier is a no-op. Delivery failures are logged per service, never
// returned; notifications are best-effort by design of the callers.
//
// Parameters:
//   - message: Message body to deliver.
func (n *Notifier) Send(message string) {
	if n == nil || message == "" {
		return
	}

	for i, err := range n.router.Send(message, n.params) {
		if err != nil {
			LocalLog.WithFields(logrus.Fields{
				"service": serviceScheme(n.urls[i]),
				"index":   i,
			}).WithError(err).Error("Failed to send notification")
		}
	}
}

// serviceScheme extracts the service scheme from a shoutrrr URL for logging.
func serviceScheme(url string) string {
	scheme, _, found := strings.Cut(url, ":")
	if !found {
		return "invalid"
	}

	return scheme
}
