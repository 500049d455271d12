package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/payment"
	"github.com/medhelper/labcart/internal/repository"
)

type CartReader interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	ListLines(ctx context.Context, cartID int64) ([]domain.CartLine, error)
}

// Tx is the part of the store used while booking.
type Tx interface {
	CreateTestRecord(ctx context.Context, rec *domain.TestRecord) error
	ClearLines(ctx context.Context, cartID int64, lines []domain.CartLine) error
}

type Transactor interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// TransactorFunc adapts a function to Transactor.
type TransactorFunc func(ctx context.Context, fn func(tx Tx) error) error

func (f TransactorFunc) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return f(ctx, fn)
}

// PostgresTransactor runs booking inside a repository transaction.
func PostgresTransactor(repo *repository.Repository) Transactor {
	return TransactorFunc(func(ctx context.Context, fn func(tx Tx) error) error {
		return repo.InTx(ctx, func(tx *repository.Repository) error {
			return fn(tx)
		})
	})
}

type Catalog interface {
	GetAnalyses(ctx context.Context, ids []int64) (map[int64]*domain.Analysis, error)
}

type PaymentGate interface {
	Authorize(ctx context.Context, userID int64, card payment.Card, amount decimal.Decimal) (*payment.Verdict, error)
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, user domain.User, rec domain.TestRecord) error
}

type CartInvalidator interface {
	Invalidate(userID int64)
}
