package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
)

// Email is one outbound message as handed to a transport.
type Email struct {
	NotificationID uuid.UUID               `json:"notification_id"`
	UserID         int64                   `json:"user_id"`
	To             string                  `json:"to"`
	Subject        string                  `json:"subject"`
	Body           string                  `json:"body"`
	Type           domain.NotificationType `json:"type"`
}

type Transport interface {
	Deliver(ctx context.Context, e Email) error
}

// LogTransport only logs. Used in development and when no provider is set.
type LogTransport struct {
	log *slog.Logger
}

func NewLogTransport(log *slog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Deliver(ctx context.Context, e Email) error {
	t.log.InfoContext(ctx, "email delivered to log",
		"notification_id", e.NotificationID, "to", e.To, "subject", e.Subject, "type", e.Type)
	return nil
}
