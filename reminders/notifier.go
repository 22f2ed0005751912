package reminders

import (
	"context"
	"log/slog"
)

// Notification is one reminder ready to send.
type Notification struct {
	ID      string
	BillID  string
	UserID  string
	Channel string
	To      string
	Message string
}

// Notifier delivers a notification over its channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a logger instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs n.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "bill reminder",
		"notification_id", n.ID,
		"channel", n.Channel,
		"to", n.To,
		"message", n.Message,
	)
	return nil
}
