package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/medhelper/labcart/internal/domain"
)

const lineColumns = `cl.id, cl.cart_id, cl.analysis_id, cl.quantity, cl.scheduled_date, cl.scheduled_time`

// GetOrCreateCart returns the user's cart, creating it on first access.
func (r *Repository) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `INSERT INTO carts (user_id) VALUES ($1)
	          ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	          RETURNING id, user_id, created_at`

	var c domain.Cart
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return &c, nil
}

func (r *Repository) ListLines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	query := `SELECT ` + lineColumns + ` FROM cart_lines cl WHERE cl.cart_id = $1 ORDER BY cl.id`

	rows, err := r.q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}
	return lines, nil
}

// UpsertLine adds quantity to the (cart, analysis) line, creating it if
// absent. Supplied schedule parts overwrite, omitted ones are kept.
func (r *Repository) UpsertLine(ctx context.Context, cartID int64, add domain.LineAddition) (*domain.CartLine, error) {
	query := `INSERT INTO cart_lines AS cl (cart_id, analysis_id, quantity, scheduled_date, scheduled_time)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (cart_id, analysis_id) DO UPDATE SET
	              quantity       = cl.quantity + EXCLUDED.quantity,
	              scheduled_date = COALESCE(EXCLUDED.scheduled_date, cl.scheduled_date),
	              scheduled_time = COALESCE(EXCLUDED.scheduled_time, cl.scheduled_time),
	              updated_at     = NOW()
	          RETURNING ` + lineColumns

	row := r.q.QueryRowContext(ctx, query,
		cartID,
		add.AnalysisID,
		add.Quantity,
		dateParam(add.ScheduledDate),
		timeParam(add.ScheduledTime))

	l, err := scanLine(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return l, nil
}

// FindLineForUser returns a line only if its cart belongs to userID.
func (r *Repository) FindLineForUser(ctx context.Context, lineID, userID int64) (*domain.CartLine, error) {
	query := `SELECT ` + lineColumns + `
	          FROM cart_lines cl JOIN carts c ON c.id = cl.cart_id
	          WHERE cl.id = $1 AND c.user_id = $2`

	l, err := scanLine(r.q.QueryRowContext(ctx, query, lineID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cart line: %w", err)
	}
	return l, nil
}

// UpdateLineForUser overwrites quantity and schedule of a line owned by userID.
func (r *Repository) UpdateLineForUser(ctx context.Context, userID int64, line *domain.CartLine) error {
	query := `UPDATE cart_lines cl
	          SET quantity = $1, scheduled_date = $2, scheduled_time = $3, updated_at = NOW()
	          FROM carts c
	          WHERE cl.cart_id = c.id AND cl.id = $4 AND c.user_id = $5`

	res, err := r.q.ExecContext(ctx, query,
		line.Quantity,
		dateParam(line.ScheduledDate),
		timeParam(line.ScheduledTime),
		line.ID,
		userID)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	return expectOne(res, ErrLineNotFound)
}

func (r *Repository) DeleteLineForUser(ctx context.Context, lineID, userID int64) error {
	query := `DELETE FROM cart_lines cl USING carts c
	          WHERE cl.cart_id = c.id AND cl.id = $1 AND c.user_id = $2`

	res, err := r.q.ExecContext(ctx, query, lineID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return expectOne(res, ErrLineNotFound)
}

// ClearLines deletes exactly the booked lines, matched on id and quantity.
// Anything else (a missing line, a changed quantity) means another request
// touched the cart after it was read and yields domain.ErrCartChanged so the
// surrounding transaction rolls back. Lines added meanwhile are kept.
func (r *Repository) ClearLines(ctx context.Context, cartID int64, lines []domain.CartLine) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]int64, len(lines))
	qty := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
		qty[i] = int64(l.Quantity)
	}

	query := `DELETE FROM cart_lines cl
	          USING unnest($2::bigint[], $3::bigint[]) AS booked(id, quantity)
	          WHERE cl.cart_id = $1 AND cl.id = booked.id AND cl.quantity = booked.quantity`

	res, err := r.q.ExecContext(ctx, query, cartID, pq.Array(ids), pq.Array(qty))
	if err != nil {
		return fmt.Errorf("failed to clear cart lines: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to clear cart lines: %w", err)
	}
	if n != int64(len(lines)) {
		return fmt.Errorf("cleared %d of %d lines: %w", n, len(lines), domain.ErrCartChanged)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLine(s scanner) (*domain.CartLine, error) {
	var (
		l     domain.CartLine
		date  sql.NullTime
		clock sql.NullString
	)
	if err := s.Scan(&l.ID, &l.CartID, &l.AnalysisID, &l.Quantity, &date, &clock); err != nil {
		return nil, err
	}
	if date.Valid {
		d := domain.DateOf(date.Time)
		l.ScheduledDate = &d
	}
	if clock.Valid {
		t, err := domain.ParseTimeOfDay(clock.String)
		if err != nil {
			return nil, fmt.Errorf("scheduled_time column: %w", err)
		}
		l.ScheduledTime = &t
	}
	return &l, nil
}

func dateParam(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeParam(t *domain.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
