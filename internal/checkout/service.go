package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/payment"
)

type Service struct {
	carts    CartReader
	tx       Transactor
	catalog  Catalog
	gate     PaymentGate
	notifier Notifier
	cache    CartInvalidator
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

type Deps struct {
	Carts    CartReader
	Tx       Transactor
	Catalog  Catalog
	Gate     PaymentGate
	Notifier Notifier
	Cache    CartInvalidator
	Location *time.Location
	Log      *slog.Logger
}

func NewService(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		carts:    d.Carts,
		tx:       d.Tx,
		catalog:  d.Catalog,
		gate:     d.Gate,
		notifier: d.Notifier,
		cache:    d.Cache,
		loc:      loc,
		now:      time.Now,
		log:      d.Log,
	}
}

// Checkout pays for the user's cart and turns every line into a pending
// test record. Records and the removal of the booked lines commit together;
// the payment attempt is logged by the gate beforehand and survives a failed
// booking.
func (s *Service) Checkout(ctx context.Context, user domain.User, card *payment.Card) ([]domain.TestRecord, error) {
	cart, err := s.carts.GetOrCreateCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	lines, err := s.carts.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if card == nil {
		return nil, ErrMissingPayment
	}

	analyses, err := s.resolve(ctx, lines)
	if err != nil {
		return nil, err
	}
	total := domain.TotalPrice(pricedLines(lines, analyses))

	verdict, err := s.gate.Authorize(ctx, user.ID, *card, total)
	if err != nil {
		return nil, err
	}
	if !verdict.Approved {
		s.log.InfoContext(ctx, "checkout declined", "user_id", user.ID, "attempt_id", verdict.Attempt.ID)
		return nil, payment.ErrDeclined
	}

	now := s.now()
	records := make([]domain.TestRecord, 0, len(lines))
	err = s.tx.InTx(ctx, func(tx Tx) error {
		records = records[:0]
		for _, line := range lines {
			rec := domain.NewBooking(user.ID, line, *analyses[line.AnalysisID], s.loc, now)
			if err := tx.CreateTestRecord(ctx, rec); err != nil {
				return fmt.Errorf("create record for line %d: %w", line.ID, err)
			}
			records = append(records, *rec)
		}
		return tx.ClearLines(ctx, cart.ID, lines)
	})
	if errors.Is(err, domain.ErrCartChanged) {
		s.log.WarnContext(ctx, "cart changed during checkout, booking rolled back",
			"user_id", user.ID, "attempt_id", verdict.Attempt.ID)
		return nil, err
	}
	if err != nil {
		s.log.ErrorContext(ctx, "checkout booking failed after payment",
			"user_id", user.ID, "attempt_id", verdict.Attempt.ID, "error", err)
		return nil, fmt.Errorf("book checkout: %w", err)
	}

	s.cache.Invalidate(user.ID)

	// the booking is committed; each record gets its history entry even if
	// the caller has gone away or its deadline has passed
	notifyCtx := context.WithoutCancel(ctx)
	for _, rec := range records {
		if err := s.notifier.BookingConfirmed(notifyCtx, user, rec); err != nil {
			s.log.ErrorContext(notifyCtx, "booking confirmation failed", "record_id", rec.ID, "error", err)
		}
	}

	s.log.InfoContext(ctx, "checkout completed",
		"user_id", user.ID, "records", len(records), "total", total.StringFixed(2))
	return records, nil
}

func (s *Service) resolve(ctx context.Context, lines []domain.CartLine) (map[int64]*domain.Analysis, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.AnalysisID)
	}
	return s.catalog.GetAnalyses(ctx, ids)
}

func pricedLines(lines []domain.CartLine, analyses map[int64]*domain.Analysis) []domain.PricedLine {
	priced := make([]domain.PricedLine, 0, len(lines))
	for _, l := range lines {
		priced = append(priced, domain.PricedLine{Line: l, Analysis: *analyses[l.AnalysisID]})
	}
	return priced
}
