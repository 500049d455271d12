package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
)

const recordColumns = `id, user_id, analysis_id, analysis_title, lab_id, lab_name, test_date,
	notes, result, result_file, status, reviewed_at, created_at`

func (r *Repository) CreateTestRecord(ctx context.Context, rec *domain.TestRecord) error {
	query := `INSERT INTO test_records (id, user_id, analysis_id, analysis_title, lab_id, lab_name,
	              test_date, notes, result, result_file, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.AnalysisID,
		rec.AnalysisTitle,
		rec.LabID,
		rec.LabName,
		rec.TestDate,
		rec.Notes,
		rec.Result,
		rec.ResultFile,
		string(rec.Status),
		rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert test record: %w", err)
	}
	return nil
}

func (r *Repository) GetTestRecord(ctx context.Context, id uuid.UUID) (*domain.TestRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM test_records WHERE id = $1`

	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test record: %w", err)
	}
	return rec, nil
}

// FindTestRecordForUser returns ErrRecordNotFound for records of other users.
func (r *Repository) FindTestRecordForUser(ctx context.Context, id uuid.UUID, userID int64) (*domain.TestRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM test_records WHERE id = $1 AND user_id = $2`

	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find test record: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListTestRecordsByUser(ctx context.Context, userID int64) ([]domain.TestRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM test_records
	          WHERE user_id = $1
	          ORDER BY test_date DESC NULLS LAST, created_at DESC`

	return r.queryRecords(ctx, query, userID)
}

// ListPendingScheduledBetween returns pending records with test_date in [from, to).
func (r *Repository) ListPendingScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.TestRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM test_records
	          WHERE status = 'pending' AND test_date >= $1 AND test_date < $2
	          ORDER BY test_date`

	return r.queryRecords(ctx, query, from, to)
}

// TransitionTestRecord moves a pending record to change.To. It returns
// ErrRecordNotPending when the record exists but was already reviewed.
func (r *Repository) TransitionTestRecord(ctx context.Context, id uuid.UUID, change domain.StatusChange) (*domain.TestRecord, error) {
	query := `UPDATE test_records
	          SET status = $2,
	              result = COALESCE(NULLIF($3, ''), result),
	              result_file = COALESCE(NULLIF($4, ''), result_file),
	              reviewed_at = $5
	          WHERE id = $1 AND status = 'pending'
	          RETURNING ` + recordColumns

	rec, err := scanRecord(r.q.QueryRowContext(ctx, query,
		id,
		string(change.To),
		change.Result,
		change.ResultFile,
		change.ReviewedAt))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetTestRecord(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrRecordNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition test record: %w", err)
	}
	return rec, nil
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]domain.TestRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query test records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.TestRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate test records: %w", err)
	}
	return records, nil
}

func scanRecord(s scanner) (*domain.TestRecord, error) {
	var (
		rec        domain.TestRecord
		analysisID sql.NullInt64
		labID      sql.NullInt64
		testDate   sql.NullTime
		reviewedAt sql.NullTime
		status     string
	)
	err := s.Scan(
		&rec.ID,
		&rec.UserID,
		&analysisID,
		&rec.AnalysisTitle,
		&labID,
		&rec.LabName,
		&testDate,
		&rec.Notes,
		&rec.Result,
		&rec.ResultFile,
		&status,
		&reviewedAt,
		&rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.TestRecordStatus(status)
	if analysisID.Valid {
		rec.AnalysisID = &analysisID.Int64
	}
	if labID.Valid {
		rec.LabID = &labID.Int64
	}
	if testDate.Valid {
		rec.TestDate = &testDate.Time
	}
	if reviewedAt.Valid {
		rec.ReviewedAt = &reviewedAt.Time
	}
	return &rec, nil
}
