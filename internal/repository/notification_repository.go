package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medhelper/labcart/internal/domain"
)

const notificationColumns = `id, user_id, subject, body, type, read, email_sent, created_at`

func (r *Repository) GetNotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	query := `SELECT user_id, test_reminders, result_alerts FROM notification_settings WHERE user_id = $1`

	var s domain.NotificationSettings
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.TestReminders, &s.ResultAlerts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return &s, nil
}

// GetOrCreateNotificationSettings lazily creates the default settings row.
func (r *Repository) GetOrCreateNotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	query := `INSERT INTO notification_settings (user_id, test_reminders, result_alerts)
	          VALUES ($1, TRUE, TRUE)
	          ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	          RETURNING user_id, test_reminders, result_alerts`

	var s domain.NotificationSettings
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.TestReminders, &s.ResultAlerts); err != nil {
		return nil, fmt.Errorf("failed to get or create notification settings: %w", err)
	}
	return &s, nil
}

func (r *Repository) UpdateNotificationSettings(ctx context.Context, s *domain.NotificationSettings) error {
	query := `INSERT INTO notification_settings (user_id, test_reminders, result_alerts)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id) DO UPDATE
	          SET test_reminders = EXCLUDED.test_reminders, result_alerts = EXCLUDED.result_alerts`

	if _, err := r.q.ExecContext(ctx, query, s.UserID, s.TestReminders, s.ResultAlerts); err != nil {
		return fmt.Errorf("failed to update notification settings: %w", err)
	}
	return nil
}

func (r *Repository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notification_history (id, user_id, subject, body, type, read, email_sent, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.q.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Subject,
		n.Body,
		string(n.Type),
		n.Read,
		n.EmailSent,
		n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *Repository) SetNotificationEmailSent(ctx context.Context, id uuid.UUID, sent bool) error {
	res, err := r.q.ExecContext(ctx, `UPDATE notification_history SET email_sent = $2 WHERE id = $1`, id, sent)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return expectOne(res, ErrNotificationNotFound)
}

// ListNotificationsForUser returns one page of the user's history, newest
// first, and the total count. A nil types slice disables the type filter.
func (r *Repository) ListNotificationsForUser(ctx context.Context, userID int64, types []domain.NotificationType, limit, offset int) ([]domain.Notification, int, error) {
	var filter []string
	if types != nil {
		filter = make([]string, 0, len(types))
		for _, t := range types {
			filter = append(filter, string(t))
		}
	}

	where := `WHERE user_id = $1 AND ($2::text[] IS NULL OR type = ANY($2::text[]))`

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_history `+where,
		userID, pq.Array(filter)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notification_history ` + where + `
	          ORDER BY created_at DESC
	          LIMIT $3 OFFSET $4`

	rows, err := r.q.QueryContext(ctx, query, userID, pq.Array(filter), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var (
			n   domain.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Subject, &n.Body, &typ, &n.Read, &n.EmailSent, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = domain.NotificationType(typ)
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return list, total, nil
}

func (r *Repository) MarkNotificationReadForUser(ctx context.Context, id uuid.UUID, userID int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE notification_history SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectOne(res, ErrNotificationNotFound)
}

func (r *Repository) DeleteNotificationForUser(ctx context.Context, id uuid.UUID, userID int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM notification_history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return expectOne(res, ErrNotificationNotFound)
}
