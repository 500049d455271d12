package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medhelper/labcart/internal/domain"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrDeclined           = errors.New("payment declined")
)

// AttemptLog persists payment attempts. Entries are append-only.
type AttemptLog interface {
	CreatePaymentAttempt(ctx context.Context, a *domain.PaymentAttempt) error
}

type Config struct {
	Currency string
	Timeout  time.Duration
}

type Gate struct {
	authorizer Authorizer
	attempts   AttemptLog
	cfg        Config
	now        func() time.Time
	log        *slog.Logger
}

func NewGate(authorizer Authorizer, attempts AttemptLog, cfg Config, log *slog.Logger) *Gate {
	if cfg.Currency == "" {
		cfg.Currency = "KZT"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Gate{
		authorizer: authorizer,
		attempts:   attempts,
		cfg:        cfg,
		now:        time.Now,
		log:        log,
	}
}

type Verdict struct {
	Approved bool
	Last4    string
	Attempt  *domain.PaymentAttempt
}

// Authorize validates the card, asks the authorizer and records exactly one
// attempt whatever the outcome. A decline is a Verdict, not an error. The
// attempt is durable before Authorize returns; if it cannot be written the
// call fails and the caller must not book anything.
func (g *Gate) Authorize(ctx context.Context, userID int64, card Card, amount decimal.Decimal) (*Verdict, error) {
	now := g.now()
	attempt := &domain.PaymentAttempt{
		ID:        uuid.New(),
		UserID:    userID,
		Last4:     card.Last4(),
		Amount:    amount,
		Currency:  g.cfg.Currency,
		CreatedAt: now,
	}

	if verr := Validate(card, now); verr != nil {
		if err := g.record(ctx, attempt); err != nil {
			return nil, err
		}
		return nil, verr
	}

	authCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	approved, authErr := g.authorizer.Authorize(authCtx, Charge{Card: card, Amount: amount, Currency: g.cfg.Currency})
	cancel()

	attempt.Success = authErr == nil && approved
	if err := g.record(ctx, attempt); err != nil {
		return nil, err
	}

	if authErr != nil {
		g.log.WarnContext(ctx, "payment authorizer failed",
			"user_id", userID, "attempt_id", attempt.ID, "error", authErr)
		if errors.Is(authErr, ErrGatewayUnavailable) {
			return nil, authErr
		}
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, authErr)
	}

	g.log.InfoContext(ctx, "payment attempt recorded",
		"user_id", userID, "attempt_id", attempt.ID, "last4", attempt.Last4,
		"amount", amount.StringFixed(2), "approved", approved)

	return &Verdict{Approved: approved, Last4: attempt.Last4, Attempt: attempt}, nil
}

func (g *Gate) record(ctx context.Context, a *domain.PaymentAttempt) error {
	if err := g.attempts.CreatePaymentAttempt(ctx, a); err != nil {
		return fmt.Errorf("record payment attempt: %w", err)
	}
	return nil
}
