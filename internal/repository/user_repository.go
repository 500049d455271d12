package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medhelper/labcart/internal/domain"
)

// GetUser reads the contact details used to address notifications.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx, `SELECT id, email, full_name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
