package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/repository"
)

type memStore struct {
	m         sync.Mutex
	settings  map[int64]*domain.NotificationSettings
	history   []domain.Notification
	createErr error
}

func newMemStore() *memStore {
	return &memStore{settings: make(map[int64]*domain.NotificationSettings)}
}

func (s *memStore) CreateNotification(_ context.Context, n *domain.Notification) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.history = append(s.history, *n)
	return nil
}

func (s *memStore) SetNotificationEmailSent(_ context.Context, id uuid.UUID, sent bool) error {
	s.m.Lock()
	defer s.m.Unlock()
	for i := range s.history {
		if s.history[i].ID == id {
			s.history[i].EmailSent = sent
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (s *memStore) GetNotificationSettings(_ context.Context, userID int64) (*domain.NotificationSettings, error) {
	s.m.Lock()
	defer s.m.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		return nil, repository.ErrSettingsNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *memStore) GetOrCreateNotificationSettings(ctx context.Context, userID int64) (*domain.NotificationSettings, error) {
	s.m.Lock()
	if _, ok := s.settings[userID]; !ok {
		def := domain.DefaultNotificationSettings(userID)
		s.settings[userID] = &def
	}
	s.m.Unlock()
	return s.GetNotificationSettings(ctx, userID)
}

func (s *memStore) UpdateNotificationSettings(_ context.Context, st *domain.NotificationSettings) error {
	s.m.Lock()
	defer s.m.Unlock()
	cp := *st
	s.settings[st.UserID] = &cp
	return nil
}

func (s *memStore) ListNotificationsForUser(_ context.Context, userID int64, types []domain.NotificationType, limit, offset int) ([]domain.Notification, int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	var matched []domain.Notification
	for _, n := range s.history {
		if n.UserID != userID {
			continue
		}
		if types != nil && !containsType(types, n.Type) {
			continue
		}
		matched = append(matched, n)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []domain.Notification{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func containsType(types []domain.NotificationType, t domain.NotificationType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (s *memStore) MarkNotificationReadForUser(_ context.Context, id uuid.UUID, userID int64) error {
	s.m.Lock()
	defer s.m.Unlock()
	for i := range s.history {
		if s.history[i].ID == id && s.history[i].UserID == userID {
			s.history[i].Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (s *memStore) DeleteNotificationForUser(_ context.Context, id uuid.UUID, userID int64) error {
	s.m.Lock()
	defer s.m.Unlock()
	for i := range s.history {
		if s.history[i].ID == id && s.history[i].UserID == userID {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

type captureTransport struct {
	m    sync.Mutex
	sent []Email
	err  error
}

func (t *captureTransport) Deliver(_ context.Context, e Email) error {
	t.m.Lock()
	defer t.m.Unlock()
	t.sent = append(t.sent, e)
	return t.err
}
