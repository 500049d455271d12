package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/repository"
)

type Store interface {
	GetTestRecord(ctx context.Context, id uuid.UUID) (*domain.TestRecord, error)
	FindTestRecordForUser(ctx context.Context, id uuid.UUID, userID int64) (*domain.TestRecord, error)
	ListTestRecordsByUser(ctx context.Context, userID int64) ([]domain.TestRecord, error)
	TransitionTestRecord(ctx context.Context, id uuid.UUID, change domain.StatusChange) (*domain.TestRecord, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	ResultReady(ctx context.Context, u domain.User, rec domain.TestRecord) (bool, error)
	ResultRejected(ctx context.Context, u domain.User, rec domain.TestRecord) error
}

type FileStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Attachment is an uploaded result file.
type Attachment struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

var ErrAttachmentsDisabled = errors.New("result attachments are not configured")

// Service is the only writer of test record status.
type Service struct {
	store    Store
	notifier Notifier
	files    FileStore
	now      func() time.Time
	log      *slog.Logger
}

// NewService accepts a nil files store; completing with an attachment then fails.
func NewService(store Store, notifier Notifier, files FileStore, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		files:    files,
		now:      time.Now,
		log:      log,
	}
}

func (s *Service) GetForUser(ctx context.Context, id uuid.UUID, userID int64) (*domain.TestRecord, error) {
	return s.store.FindTestRecordForUser(ctx, id, userID)
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.TestRecord, error) {
	return s.store.ListTestRecordsByUser(ctx, userID)
}

// MarkCompleted stores the result and notifies the patient once.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, result string, att *Attachment) (*domain.TestRecord, error) {
	return s.transition(ctx, id, domain.TestRecordStatusCompleted, result, att)
}

// MarkRejected records the reason in the result field and notifies once.
func (s *Service) MarkRejected(ctx context.Context, id uuid.UUID, reason string) (*domain.TestRecord, error) {
	return s.transition(ctx, id, domain.TestRecordStatusRejected, reason, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.TestRecordStatus, result string, att *Attachment) (*domain.TestRecord, error) {
	rec, err := s.store.GetTestRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == to {
		return rec, nil
	}
	if !domain.CanTransitionTo(rec.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrIllegalTransition, rec.Status, to)
	}

	change := domain.StatusChange{To: to, Result: result, ReviewedAt: s.now()}
	if att != nil {
		loc, err := s.upload(ctx, id, att)
		if err != nil {
			return nil, err
		}
		change.ResultFile = loc
	}

	updated, err := s.store.TransitionTestRecord(ctx, id, change)
	if errors.Is(err, repository.ErrRecordNotPending) {
		// lost a race with another reviewer
		current, getErr := s.store.GetTestRecord(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == to {
			return current, nil
		}
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrIllegalTransition, current.Status, to)
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "test record reviewed", "record_id", id, "status", to)
	s.notify(ctx, *updated)
	return updated, nil
}

func (s *Service) upload(ctx context.Context, id uuid.UUID, att *Attachment) (string, error) {
	if s.files == nil {
		return "", ErrAttachmentsDisabled
	}
	name := path.Base(att.Filename)
	if name == "." || name == "/" {
		name = "result"
	}
	return s.files.Put(ctx, fmt.Sprintf("records/%s/%s", id, name), att.ContentType, att.Body)
}

// notify runs after the status change is stored, so it does not inherit the
// caller's cancellation. An unknown user still gets a history entry; without
// an address it is kept as undelivered.
func (s *Service) notify(ctx context.Context, rec domain.TestRecord) {
	ctx = context.WithoutCancel(ctx)

	user, err := s.store.GetUser(ctx, rec.UserID)
	if err != nil {
		s.log.ErrorContext(ctx, "review notification without user profile", "record_id", rec.ID, "user_id", rec.UserID, "error", err)
		user = &domain.User{ID: rec.UserID}
	}

	switch rec.Status {
	case domain.TestRecordStatusCompleted:
		_, err = s.notifier.ResultReady(ctx, *user, rec)
	case domain.TestRecordStatusRejected:
		err = s.notifier.ResultRejected(ctx, *user, rec)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "review notification failed", "record_id", rec.ID, "error", err)
	}
}
