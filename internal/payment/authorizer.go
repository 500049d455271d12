package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// Charge is what an acquirer sees for one authorization.
type Charge struct {
	Card     Card
	Amount   decimal.Decimal
	Currency string
}

// Authorizer approves or declines a charge. An error means the acquirer
// could not give an answer.
type Authorizer interface {
	Authorize(ctx context.Context, charge Charge) (bool, error)
}

// ApproveAll stands in for a real acquiring network.
type ApproveAll struct{}

func (ApproveAll) Authorize(ctx context.Context, _ Charge) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

// BreakerAuthorizer stops calling a failing acquirer for a cool-down period.
type BreakerAuthorizer struct {
	next Authorizer
	cb   *gobreaker.CircuitBreaker[bool]
}

type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ConsecutiveFails uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "payment-authorizer",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		ConsecutiveFails: 5,
	}
}

func NewBreakerAuthorizer(next Authorizer, s BreakerSettings) *BreakerAuthorizer {
	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFails
		},
	})
	return &BreakerAuthorizer{next: next, cb: cb}
}

func (b *BreakerAuthorizer) Authorize(ctx context.Context, charge Charge) (bool, error) {
	approved, err := b.cb.Execute(func() (bool, error) {
		return b.next.Authorize(ctx, charge)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	return approved, err
}

func (b *BreakerAuthorizer) State() gobreaker.State {
	return b.cb.State()
}
