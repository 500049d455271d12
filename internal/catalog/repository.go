package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/medhelper/labcart/internal/domain"
	_ "modernc.org/sqlite"
)

var ErrAnalysisNotFound = fmt.Errorf("analysis %w", domain.ErrNotFound)

// Repository is a read-only replica of the analysis catalog.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const analysisColumns = `
		SELECT a.id, a.title, a.price, l.id, l.name
		FROM analyses a
		LEFT JOIN labs l ON l.id = a.lab_id`

func (r *Repository) GetAnalysis(ctx context.Context, id int64) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, analysisColumns+` WHERE a.id = ?`, id)

	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis %d: %w", id, err)
	}
	return a, nil
}

// GetAnalyses resolves many ids at once. Every id must exist.
func (r *Repository) GetAnalyses(ctx context.Context, ids []int64) (map[int64]*domain.Analysis, error) {
	result := make(map[int64]*domain.Analysis, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := analysisColumns + ` WHERE a.id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		result[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, fmt.Errorf("%w: id %d", ErrAnalysisNotFound, id)
		}
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var (
		a       domain.Analysis
		labID   sql.NullInt64
		labName sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Title, &a.Price, &labID, &labName); err != nil {
		return nil, err
	}
	if labID.Valid {
		a.Lab = &domain.Lab{ID: labID.Int64, Name: labName.String}
	}
	return &a, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
