package http

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medhelper/labcart/internal/cart"
	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/ledger"
	"github.com/medhelper/labcart/internal/notification"
	"github.com/medhelper/labcart/internal/payment"
)

type fakeCart struct {
	view      *cart.View
	addErr    error
	updateErr error
	removeErr error

	added   []cart.AddItemInput
	updated []cart.UpdateItemInput
	removed []int64
}

func (f *fakeCart) View(_ context.Context, userID int64) (*cart.View, error) {
	if f.view != nil {
		return f.view, nil
	}
	return &cart.View{Cart: &domain.Cart{ID: 1, UserID: userID}, Total: decimal.Zero}, nil
}

func (f *fakeCart) AddItem(_ context.Context, _ int64, in cart.AddItemInput) (*domain.CartLine, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, in)
	return &domain.CartLine{ID: 1, AnalysisID: in.AnalysisID, Quantity: in.Quantity}, nil
}

func (f *fakeCart) UpdateItem(_ context.Context, _, lineID int64, in cart.UpdateItemInput) (*domain.CartLine, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, in)
	return &domain.CartLine{ID: lineID}, nil
}

func (f *fakeCart) RemoveItem(_ context.Context, _, lineID int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, lineID)
	return nil
}

type fakeCheckout struct {
	records []domain.TestRecord
	err     error
	cards   []*payment.Card
	users   []domain.User
}

func (f *fakeCheckout) Checkout(_ context.Context, u domain.User, card *payment.Card) ([]domain.TestRecord, error) {
	f.users = append(f.users, u)
	f.cards = append(f.cards, card)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeRecords struct {
	rec *domain.TestRecord
	err error

	completedResult string
	attachment      []byte
	attachmentName  string
	rejectReason    string
}

func (f *fakeRecords) GetForUser(_ context.Context, id uuid.UUID, userID int64) (*domain.TestRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TestRecord{ID: id, UserID: userID, Status: domain.TestRecordStatusPending}, nil
}

func (f *fakeRecords) ListForUser(context.Context, int64) ([]domain.TestRecord, error) {
	return nil, f.err
}

func (f *fakeRecords) MarkCompleted(_ context.Context, id uuid.UUID, result string, att *ledger.Attachment) (*domain.TestRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.completedResult = result
	if att != nil {
		f.attachmentName = att.Filename
		f.attachment, _ = io.ReadAll(att.Body)
	}
	return &domain.TestRecord{ID: id, Status: domain.TestRecordStatusCompleted, Result: result}, nil
}

func (f *fakeRecords) MarkRejected(_ context.Context, id uuid.UUID, reason string) (*domain.TestRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rejectReason = reason
	return &domain.TestRecord{ID: id, Status: domain.TestRecordStatusRejected, Result: reason}, nil
}

type fakeInbox struct {
	settings domain.NotificationSettings
	err      error

	page, pageSize int
	read           []uuid.UUID
	deleted        []uuid.UUID
}

func (f *fakeInbox) Settings(_ context.Context, userID int64) (*domain.NotificationSettings, error) {
	st := f.settings
	st.UserID = userID
	return &st, nil
}

func (f *fakeInbox) UpdateSettings(_ context.Context, st domain.NotificationSettings) (*domain.NotificationSettings, error) {
	f.settings = st
	return &st, nil
}

func (f *fakeInbox) History(_ context.Context, _ int64, page, pageSize int) (*notification.Page, error) {
	f.page, f.pageSize = page, pageSize
	return &notification.Page{Page: page, PageSize: pageSize}, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, _ int64, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.read = append(f.read, id)
	return nil
}

func (f *fakeInbox) Delete(_ context.Context, _ int64, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}
