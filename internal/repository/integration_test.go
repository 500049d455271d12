package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medhelper/labcart/internal/domain"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestPostgres_CartLifecycle(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	cart, err := repo.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)
	again, err := repo.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	date := domain.Date{Year: 2030, Month: time.June, Day: 1}
	_, err = repo.UpsertLine(ctx, cart.ID, domain.LineAddition{AnalysisID: 1, Quantity: 2, ScheduledDate: &date})
	require.NoError(t, err)

	clock := domain.TimeOfDay{Hour: 14, Minute: 30}
	line, err := repo.UpsertLine(ctx, cart.ID, domain.LineAddition{AnalysisID: 1, Quantity: 3, ScheduledTime: &clock})
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	require.NotNil(t, line.ScheduledDate)
	assert.Equal(t, date, *line.ScheduledDate)
	require.NotNil(t, line.ScheduledTime)
	assert.Equal(t, clock, *line.ScheduledTime)

	lines, err := repo.ListLines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	_, err = repo.FindLineForUser(ctx, line.ID, 43)
	assert.ErrorIs(t, err, ErrLineNotFound)

	stale := lines[0]
	stale.Quantity = 1
	err = repo.ClearLines(ctx, cart.ID, []domain.CartLine{stale})
	assert.ErrorIs(t, err, domain.ErrCartChanged)

	require.NoError(t, repo.ClearLines(ctx, cart.ID, lines))
	lines, err = repo.ListLines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPostgres_CheckoutTxAndTransition(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	cart, err := repo.GetOrCreateCart(ctx, 7)
	require.NoError(t, err)
	line, err := repo.UpsertLine(ctx, cart.ID, domain.LineAddition{AnalysisID: 1, Quantity: 1})
	require.NoError(t, err)

	analysis := domain.Analysis{ID: 1, Title: "Complete blood count", Price: decimal.RequireFromString("3500"),
		Lab: &domain.Lab{ID: 1, Name: "Invivo"}}
	rec := domain.NewBooking(7, *line, analysis, time.UTC, now)

	err = repo.InTx(ctx, func(tx *Repository) error {
		if err := tx.CreateTestRecord(ctx, rec); err != nil {
			return err
		}
		return tx.ClearLines(ctx, cart.ID, []domain.CartLine{*line})
	})
	require.NoError(t, err)

	got, err := repo.FindTestRecordForUser(ctx, rec.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, "Invivo", got.LabName)
	assert.Equal(t, domain.TestRecordStatusPending, got.Status)

	_, err = repo.FindTestRecordForUser(ctx, rec.ID, 8)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	done, err := repo.TransitionTestRecord(ctx, rec.ID, domain.StatusChange{
		To: domain.TestRecordStatusCompleted, Result: "normal", ReviewedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", done.Result)
	require.NotNil(t, done.ReviewedAt)

	_, err = repo.TransitionTestRecord(ctx, rec.ID, domain.StatusChange{
		To: domain.TestRecordStatusRejected, ReviewedAt: now,
	})
	assert.ErrorIs(t, err, ErrRecordNotPending)
}

func TestPostgres_LargeBookingFitsSchema(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	attempt := &domain.PaymentAttempt{
		ID:        uuid.New(),
		UserID:    7,
		Last4:     "4242",
		Amount:    decimal.RequireFromString("250000000.00"),
		Currency:  "KZT",
		Success:   true,
		CreatedAt: now,
	}
	require.NoError(t, repo.CreatePaymentAttempt(ctx, attempt))

	title := strings.Repeat("Extended hormonal panel ", 20)
	labName := strings.Repeat("Regional diagnostic centre ", 10)
	line := domain.CartLine{ID: 1, AnalysisID: 1, Quantity: 1}
	analysis := domain.Analysis{ID: 1, Title: title, Price: decimal.RequireFromString("3500"),
		Lab: &domain.Lab{ID: 1, Name: labName}}
	rec := domain.NewBooking(7, line, analysis, time.UTC, now)
	require.NoError(t, repo.CreateTestRecord(ctx, rec))

	got, err := repo.FindTestRecordForUser(ctx, rec.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, title, got.AnalysisTitle)
	assert.Equal(t, labName, got.LabName)
}
