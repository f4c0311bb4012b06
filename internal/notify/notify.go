// Package notify implements the fire-and-forget notification
// collaborator. Delivery failures are logged and dropped; the store
// never depends on them.
package notify

import (
	"context"

	"ppmkconnect-core/internal/domain"
	"ppmkconnect-core/internal/logger"
)

// LogNotifier writes notifications to the structured log. Default
// backend.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	logger.Info("notification",
		"kind", note.Kind,
		"title", note.Title,
		"message", note.Message,
		"recipient", note.RecipientEmail,
	)
}
