package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medhelper/labcart/internal/domain"
)

// memStore keeps carts and records in memory. InTx works on a copy and
// only publishes it when fn succeeds.
type memStore struct {
	m         sync.Mutex
	cart      *domain.Cart
	lines     []domain.CartLine
	records   []domain.TestRecord
	failAfter int // CreateTestRecord fails once this many records exist in the tx; 0 disables
}

func (s *memStore) GetOrCreateCart(_ context.Context, userID int64) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.cart == nil {
		s.cart = &domain.Cart{ID: 1, UserID: userID, CreatedAt: time.Now()}
	}
	cp := *s.cart
	return &cp, nil
}

func (s *memStore) ListLines(_ context.Context, cartID int64) ([]domain.CartLine, error) {
	s.m.Lock()
	defer s.m.Unlock()
	out := make([]domain.CartLine, 0, len(s.lines))
	for _, l := range s.lines {
		if l.CartID == cartID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memTx struct {
	parent  *memStore
	lines   []domain.CartLine
	records []domain.TestRecord
}

func (t *memTx) CreateTestRecord(_ context.Context, rec *domain.TestRecord) error {
	if t.parent.failAfter > 0 && len(t.records) >= t.parent.failAfter {
		return errors.New("serialization failure")
	}
	t.records = append(t.records, *rec)
	return nil
}

func (t *memTx) ClearLines(_ context.Context, cartID int64, booked []domain.CartLine) error {
	want := make(map[int64]int, len(booked))
	for _, l := range booked {
		want[l.ID] = l.Quantity
	}
	kept := t.lines[:0]
	cleared := 0
	for _, l := range t.lines {
		if q, ok := want[l.ID]; ok && l.CartID == cartID && l.Quantity == q {
			cleared++
			continue
		}
		kept = append(kept, l)
	}
	t.lines = kept
	if cleared != len(booked) {
		return domain.ErrCartChanged
	}
	return nil
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.m.Lock()
	tx := &memTx{
		parent:  s,
		lines:   append([]domain.CartLine(nil), s.lines...),
		records: append([]domain.TestRecord(nil), s.records...),
	}
	s.m.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.m.Lock()
	defer s.m.Unlock()
	s.lines = tx.lines
	s.records = tx.records
	return nil
}

type fakeCatalog map[int64]*domain.Analysis

func (c fakeCatalog) GetAnalyses(_ context.Context, ids []int64) (map[int64]*domain.Analysis, error) {
	out := make(map[int64]*domain.Analysis, len(ids))
	for _, id := range ids {
		a, ok := c[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		out[id] = a
	}
	return out, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		1: {ID: 1, Title: "Complete blood count", Price: decimal.RequireFromString("3500.00"), Lab: &domain.Lab{ID: 1, Name: "Invivo"}},
		2: {ID: 2, Title: "Vitamin D (25-OH)", Price: decimal.RequireFromString("9800.00"), Lab: &domain.Lab{ID: 1, Name: "Invivo"}},
		3: {ID: 3, Title: "Thyroid panel (TSH, FT4)", Price: decimal.RequireFromString("7200.00")},
	}
}

type memAttemptLog struct {
	m        sync.Mutex
	attempts []domain.PaymentAttempt
}

func (l *memAttemptLog) CreatePaymentAttempt(_ context.Context, a *domain.PaymentAttempt) error {
	l.m.Lock()
	defer l.m.Unlock()
	l.attempts = append(l.attempts, *a)
	return nil
}

// recordingNotifier stores one history entry per call and, like the real
// store, cannot write on a finished context.
type recordingNotifier struct {
	m    sync.Mutex
	sent []domain.TestRecord
	err  error
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, _ domain.User, rec domain.TestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.m.Lock()
	defer n.m.Unlock()
	n.sent = append(n.sent, rec)
	return n.err
}

type countingInvalidator struct {
	calls        int
	onInvalidate func()
}

func (c *countingInvalidator) Invalidate(int64) {
	c.calls++
	if c.onInvalidate != nil {
		c.onInvalidate()
	}
}
