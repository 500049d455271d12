package repository

import (
	"context"
	"fmt"

	"github.com/medhelper/labcart/internal/domain"
)

// CreatePaymentAttempt appends one entry to the attempt log.
func (r *Repository) CreatePaymentAttempt(ctx context.Context, a *domain.PaymentAttempt) error {
	query := `INSERT INTO payment_attempts (id, user_id, last4, amount, currency, success, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Last4,
		a.Amount.StringFixed(2),
		a.Currency,
		a.Success,
		a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment attempt: %w", err)
	}
	return nil
}
