package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medhelper/labcart/internal/cart"
	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/payment"
)

type CartService interface {
	View(ctx context.Context, userID int64) (*cart.View, error)
	AddItem(ctx context.Context, userID int64, in cart.AddItemInput) (*domain.CartLine, error)
	UpdateItem(ctx context.Context, userID, lineID int64, in cart.UpdateItemInput) (*domain.CartLine, error)
	RemoveItem(ctx context.Context, userID, lineID int64) error
}

type CheckoutService interface {
	Checkout(ctx context.Context, user domain.User, card *payment.Card) ([]domain.TestRecord, error)
}

type CartHandler struct {
	cart     CartService
	checkout CheckoutService
	timeout  time.Duration
	log      *slog.Logger
}

func NewCartHandler(c CartService, co CheckoutService, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{cart: c, checkout: co, timeout: timeout, log: log}
}

type analysisDTO struct {
	ID    int64       `json:"id"`
	Title string      `json:"title"`
	Price string      `json:"price"`
	Lab   *domain.Lab `json:"lab"`
}

type cartItemDTO struct {
	ID            int64             `json:"id"`
	Analysis      analysisDTO       `json:"analysis"`
	Quantity      int               `json:"quantity"`
	ScheduledDate *domain.Date      `json:"scheduled_date"`
	ScheduledTime *domain.TimeOfDay `json:"scheduled_time"`
}

type cartDTO struct {
	ID         int64         `json:"id"`
	Items      []cartItemDTO `json:"items"`
	TotalPrice string        `json:"total_price"`
}

func toCartDTO(v *cart.View) cartDTO {
	out := cartDTO{
		ID:         v.Cart.ID,
		Items:      make([]cartItemDTO, 0, len(v.Items)),
		TotalPrice: v.Total.StringFixed(2),
	}
	for _, it := range v.Items {
		out.Items = append(out.Items, cartItemDTO{
			ID: it.Line.ID,
			Analysis: analysisDTO{
				ID:    it.Analysis.ID,
				Title: it.Analysis.Title,
				Price: it.Analysis.Price.StringFixed(2),
				Lab:   it.Analysis.Lab,
			},
			Quantity:      it.Line.Quantity,
			ScheduledDate: it.Line.ScheduledDate,
			ScheduledTime: it.Line.ScheduledTime,
		})
	}
	return out
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u := userFromContext(ctx)
	v, err := h.cart.View(ctx, u.ID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(v))
}

type addItemRequest struct {
	AnalysisID    int64             `json:"analysis_id"`
	Quantity      *int              `json:"quantity"`
	ScheduledDate *domain.Date      `json:"scheduled_date"`
	ScheduledTime *domain.TimeOfDay `json:"scheduled_time"`
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request", Details: err.Error()})
		return
	}
	if req.AnalysisID <= 0 {
		handleServiceError(w, r, h.log, domain.NewValidationError("analysis_id", "is required"))
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	u := userFromContext(ctx)
	_, err := h.cart.AddItem(ctx, u.ID, cart.AddItemInput{
		AnalysisID:    req.AnalysisID,
		Quantity:      qty,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, u.ID, http.StatusCreated)
}

type updateItemRequest struct {
	Quantity      domain.Optional[int]              `json:"quantity"`
	ScheduledDate domain.Optional[domain.Date]      `json:"scheduled_date"`
	ScheduledTime domain.Optional[domain.TimeOfDay] `json:"scheduled_time"`
}

// UpdateItem handles PATCH /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request", Details: err.Error()})
		return
	}

	u := userFromContext(ctx)
	_, err := h.cart.UpdateItem(ctx, u.ID, lineID, cart.UpdateItemInput{
		Quantity:      req.Quantity,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.respondCart(ctx, w, r, u.ID, http.StatusOK)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	u := userFromContext(ctx)
	if err := h.cart.RemoveItem(ctx, u.ID, lineID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	Payment *payment.Card `json:"payment"`
}

type checkoutResponse struct {
	Message string              `json:"message"`
	Records []domain.TestRecord `json:"records"`
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req checkoutRequest
	// an empty body is a checkout without payment details
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request", Details: err.Error()})
		return
	}

	u := userFromContext(ctx)
	records, err := h.checkout.Checkout(ctx, *u, req.Payment)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, checkoutResponse{
		Message: "Order placed",
		Records: records,
	})
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, status int) {
	v, err := h.cart.View(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, status, toCartDTO(v))
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid "+name)
		return 0, false
	}
	return id, true
}
