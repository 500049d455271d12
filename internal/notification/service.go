package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
)

type Store interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	SetNotificationEmailSent(ctx context.Context, id uuid.UUID, sent bool) error
	GetNotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error)
	GetOrCreateNotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error)
	UpdateNotificationSettings(ctx context.Context, s *domain.NotificationSettings) error
	ListNotificationsForUser(ctx context.Context, userID int64, types []domain.NotificationType, limit, offset int) ([]domain.Notification, int, error)
	MarkNotificationReadForUser(ctx context.Context, id uuid.UUID, userID int64) error
	DeleteNotificationForUser(ctx context.Context, id uuid.UUID, userID int64) error
}

type Config struct {
	DeliveryTimeout time.Duration
	Location        *time.Location
}

// Service persists one history entry per message and hands it to the
// transport. Delivery problems are recorded on the entry, never returned.
type Service struct {
	store     Store
	transport Transport
	timeout   time.Duration
	loc       *time.Location
	now       func() time.Time
	log       *slog.Logger
}

func NewService(store Store, transport Transport, cfg Config, log *slog.Logger) *Service {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		store:     store,
		transport: transport,
		timeout:   cfg.DeliveryTimeout,
		loc:       cfg.Location,
		now:       time.Now,
		log:       log,
	}
}

type Message struct {
	ToEmail string
	Subject string
	Body    string
	UserID  int64
	Type    domain.NotificationType
}

// Send returns nil without error when the message has no user or type.
// Otherwise the history entry is written first and always returned, even
// when delivery fails or there is no address to deliver to.
func (s *Service) Send(ctx context.Context, m Message) (*domain.Notification, error) {
	if m.UserID == 0 || m.Type == "" {
		return nil, nil
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    m.UserID,
		Subject:   m.Subject,
		Body:      m.Body,
		Type:      m.Type,
		EmailSent: m.ToEmail != "",
		CreatedAt: s.now(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	if m.ToEmail == "" {
		s.log.WarnContext(ctx, "no address, email not sent", "notification_id", n.ID, "user_id", m.UserID, "type", m.Type)
		return n, nil
	}

	deliverCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.transport.Deliver(deliverCtx, Email{
		NotificationID: n.ID,
		UserID:         m.UserID,
		To:             m.ToEmail,
		Subject:        m.Subject,
		Body:           m.Body,
		Type:           m.Type,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "email delivery failed",
			"notification_id", n.ID, "user_id", m.UserID, "type", m.Type, "error", err)
		n.EmailSent = false
		if err := s.store.SetNotificationEmailSent(ctx, n.ID, false); err != nil {
			s.log.ErrorContext(ctx, "failed to flag undelivered notification", "notification_id", n.ID, "error", err)
		}
	}
	return n, nil
}

func (s *Service) BookingConfirmed(ctx context.Context, u domain.User, rec domain.TestRecord) error {
	_, err := s.Send(ctx, Message{
		ToEmail: u.Email,
		Subject: subjectBooking,
		Body:    bookingBody(u, rec, s.loc),
		UserID:  u.ID,
		Type:    domain.NotificationAppointment,
	})
	return err
}

// ResultReady is skipped when the user turned result alerts off.
func (s *Service) ResultReady(ctx context.Context, u domain.User, rec domain.TestRecord) (bool, error) {
	allowed, err := s.allowed(ctx, u.ID, func(st *domain.NotificationSettings) bool { return st.ResultAlerts })
	if err != nil || !allowed {
		return false, err
	}
	_, err = s.Send(ctx, Message{
		ToEmail: u.Email,
		Subject: subjectReady,
		Body:    resultReadyBody(u, rec, s.loc),
		UserID:  u.ID,
		Type:    domain.NotificationResultAlert,
	})
	return err == nil, err
}

func (s *Service) ResultRejected(ctx context.Context, u domain.User, rec domain.TestRecord) error {
	_, err := s.Send(ctx, Message{
		ToEmail: u.Email,
		Subject: subjectRejected,
		Body:    rejectedBody(u, rec, s.loc),
		UserID:  u.ID,
		Type:    domain.NotificationResultRejected,
	})
	return err
}

// Reminder is skipped when the user turned test reminders off.
func (s *Service) Reminder(ctx context.Context, u domain.User, rec domain.TestRecord) (bool, error) {
	allowed, err := s.allowed(ctx, u.ID, func(st *domain.NotificationSettings) bool { return st.TestReminders })
	if err != nil || !allowed {
		return false, err
	}
	_, err = s.Send(ctx, Message{
		ToEmail: u.Email,
		Subject: subjectReminder,
		Body:    reminderBody(u, rec, s.loc),
		UserID:  u.ID,
		Type:    domain.NotificationTestReminder,
	})
	return err == nil, err
}

// allowed treats a user without settings as opted in.
func (s *Service) allowed(ctx context.Context, userID int64, flag func(*domain.NotificationSettings) bool) (bool, error) {
	st, err := s.store.GetNotificationSettings(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load notification settings: %w", err)
	}
	return flag(st), nil
}
