//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier delivers a notification to a user who has no live connection.
// Implementations may be called more than once for the same notification.
type Notifier interface {
	NotifyOffline(ctx context.Context, userID, chatID, summary string) error
}

// LogNotifier records offline notifications in the log. It stands in for a push provider.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a LogNotifier writing to logger.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyOffline implements Notifier.
func (n *LogNotifier) NotifyOffline(ctx context.Context, userID, chatID, summary string) error {
	n.logger.Info().
		Str("user_id", userID).
		Str("chat_id", chatID).
		Str("summary", summary).
		Msg("Offline notification")
	return nil
}
