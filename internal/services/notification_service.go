package services

import (
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/quartermaster/backend/internal/logger"
)

// NotificationService pushes operational events (orphan scan results,
// compensation failures) to the configured shoutrrr destinations.
// Notifications are fire-and-forget; delivery failures are logged only.
type NotificationService struct {
	urls []string
}

// NewNotificationService creates a notifier for the given shoutrrr URLs.
// An empty list yields a no-op notifier.
func NewNotificationService(urls []string) *NotificationService {
	return &NotificationService{urls: urls}
}

// Send delivers the message to every configured destination in the
// background.
func (s *NotificationService) Send(title, message string) {
	for _, url := range s.urls {
		go func(url string) {
			if err := s.deliver(url, title, message); err != nil {
				logger.WithFields(map[string]interface{}{"title": title}).WithError(err).Error("Failed to send notification")
			}
		}(url)
	}
}

// deliver pushes one message to one destination.
func (s *NotificationService) deliver(url, title, message string) error {
	return shoutrrr.Send(url, fmt.Sprintf("%s\n\n%s", title, message))
}
