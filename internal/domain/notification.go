package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTestReminder   NotificationType = "test_reminder"
	NotificationResultAlert    NotificationType = "result_alert"
	NotificationAppointment    NotificationType = "appointment"
	NotificationResultRejected NotificationType = "result_rejected"
)

type NotificationSettings struct {
	UserID        int64 `json:"-"`
	TestReminders bool  `json:"test_reminders"`
	ResultAlerts  bool  `json:"result_alerts"`
}

func DefaultNotificationSettings(userID int64) NotificationSettings {
	return NotificationSettings{UserID: userID, TestReminders: true, ResultAlerts: true}
}

// VisibleTypes lists the history categories shown to a user with these
// settings. Appointment confirmations and rejections are always visible.
func (s NotificationSettings) VisibleTypes() []NotificationType {
	types := []NotificationType{NotificationAppointment, NotificationResultRejected}
	if s.TestReminders {
		types = append(types, NotificationTestReminder)
	}
	if s.ResultAlerts {
		types = append(types, NotificationResultAlert)
	}
	return types
}

// Notification is the durable history entry of one outbound message.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int64            `json:"-"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	EmailSent bool             `json:"email_sent"`
	CreatedAt time.Time        `json:"created_at"`
}
