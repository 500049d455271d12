package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Page struct {
	Items    []domain.Notification `json:"results"`
	Total    int                   `json:"count"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

func (s *Service) Settings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	return s.store.GetOrCreateNotificationSettings(ctx, userID)
}

func (s *Service) UpdateSettings(ctx context.Context, st domain.NotificationSettings) (*domain.NotificationSettings, error) {
	if err := s.store.UpdateNotificationSettings(ctx, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// History lists the user's notifications newest first. Categories the user
// opted out of are hidden; users without settings see everything.
func (s *Service) History(ctx context.Context, userID int64, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var types []domain.NotificationType
	st, err := s.store.GetNotificationSettings(ctx, userID)
	switch {
	case err == nil:
		types = st.VisibleTypes()
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load notification settings: %w", err)
	}

	items, total, err := s.store.ListNotificationsForUser(ctx, userID, types, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID int64, id uuid.UUID) error {
	return s.store.MarkNotificationReadForUser(ctx, id, userID)
}

func (s *Service) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	return s.store.DeleteNotificationForUser(ctx, id, userID)
}
