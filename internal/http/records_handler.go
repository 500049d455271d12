package http

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/ledger"
)

const maxResultUpload = 20 << 20

type RecordService interface {
	GetForUser(ctx context.Context, id uuid.UUID, userID int64) (*domain.TestRecord, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.TestRecord, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, result string, att *ledger.Attachment) (*domain.TestRecord, error)
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) (*domain.TestRecord, error)
}

type RecordHandler struct {
	records RecordService
	timeout time.Duration
	log     *slog.Logger
}

func NewRecordHandler(records RecordService, timeout time.Duration, log *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, timeout: timeout, log: log}
}

// List handles GET /api/v1/records
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u := userFromContext(ctx)
	recs, err := h.records.ListForUser(ctx, u.ID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if recs == nil {
		recs = []domain.TestRecord{}
	}
	respondJSON(w, http.StatusOK, recs)
}

// Get handles GET /api/v1/records/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	u := userFromContext(ctx)
	rec, err := h.records.GetForUser(ctx, id, u.ID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Complete handles POST /api/v1/lab/records/{id}/complete. The body is
// either JSON {"result": "..."} or multipart with a result field and an
// optional result_file part.
func (h *RecordHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	var (
		result string
		att    *ledger.Attachment
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxResultUpload)
		if err := r.ParseMultipartForm(maxResultUpload); err != nil {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid multipart body", Code: "invalid_request", Details: err.Error()})
			return
		}
		defer r.MultipartForm.RemoveAll()

		result = r.FormValue("result")
		f, hdr, err := r.FormFile("result_file")
		switch {
		case err == nil:
			defer f.Close()
			att = &ledger.Attachment{
				Filename:    hdr.Filename,
				ContentType: hdr.Header.Get("Content-Type"),
				Body:        f,
			}
		case !errors.Is(err, http.ErrMissingFile):
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid result_file", Code: "invalid_request", Details: err.Error()})
			return
		}
	} else {
		var req struct {
			Result string `json:"result"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request", Details: err.Error()})
			return
		}
		result = req.Result
	}

	rec, err := h.records.MarkCompleted(ctx, id, result, att)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/v1/lab/records/{id}/reject
func (h *RecordHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request", Details: err.Error()})
		return
	}

	rec, err := h.records.MarkRejected(ctx, id, req.Reason)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
