package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/notification"
)

type NotificationInbox interface {
	Settings(ctx context.Context, userID int64) (*domain.NotificationSettings, error)
	UpdateSettings(ctx context.Context, st domain.NotificationSettings) (*domain.NotificationSettings, error)
	History(ctx context.Context, userID int64, page, pageSize int) (*notification.Page, error)
	MarkRead(ctx context.Context, userID int64, id uuid.UUID) error
	Delete(ctx context.Context, userID int64, id uuid.UUID) error
}

type NotificationHandler struct {
	inbox   NotificationInbox
	timeout time.Duration
	log     *slog.Logger
}

func NewNotificationHandler(inbox NotificationInbox, timeout time.Duration, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, timeout: timeout, log: log}
}

// History handles GET /api/v1/notifications?page=&page_size=
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := queryInt(r, "page", 1)
	if err != nil {
		handleServiceError(w, r, h.log, domain.NewValidationError("page", "must be an integer"))
		return
	}
	size, err := queryInt(r, "page_size", notification.DefaultPageSize)
	if err != nil {
		handleServiceError(w, r, h.log, domain.NewValidationError("page_size", "must be an integer"))
		return
	}

	u := userFromContext(ctx)
	p, err := h.inbox.History(ctx, u.ID, page, size)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if p.Items == nil {
		p.Items = []domain.Notification{}
	}
	respondJSON(w, http.StatusOK, p)
}

// GetSettings handles GET /api/v1/notifications/settings
func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u := userFromContext(ctx)
	st, err := h.inbox.Settings(ctx, u.ID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

type settingsRequest struct {
	TestReminders *bool `json:"test_reminders"`
	ResultAlerts  *bool `json:"result_alerts"`
}

// UpdateSettings handles PUT /api/v1/notifications/settings. Omitted flags
// keep their current value.
func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request", Details: err.Error()})
		return
	}

	u := userFromContext(ctx)
	st, err := h.inbox.Settings(ctx, u.ID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if req.TestReminders != nil {
		st.TestReminders = *req.TestReminders
	}
	if req.ResultAlerts != nil {
		st.ResultAlerts = *req.ResultAlerts
	}
	st.UserID = u.ID

	updated, err := h.inbox.UpdateSettings(ctx, *st)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// MarkRead handles PATCH /api/v1/notifications/{id}/mark-read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	u := userFromContext(ctx)
	if err := h.inbox.MarkRead(ctx, u.ID, id); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	u := userFromContext(ctx)
	if err := h.inbox.Delete(ctx, u.ID, id); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
