package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterDeps struct {
	Cart            CartService
	Checkout        CheckoutService
	Records         RecordService
	Inbox           NotificationInbox
	Auth            *Authenticator
	CheckoutLimiter *UserRateLimiter
	Timeout         time.Duration
	Log             *slog.Logger
}

// NewRouter wires every route behind tracing, request ids and panic recovery.
func NewRouter(d RouterDeps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	if d.CheckoutLimiter == nil {
		d.CheckoutLimiter = NewUserRateLimiter(10)
	}

	carts := NewCartHandler(d.Cart, d.Checkout, d.Timeout, d.Log)
	records := NewRecordHandler(d.Records, d.Timeout, d.Log)
	inbox := NewNotificationHandler(d.Inbox, d.Timeout, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Post("/items", carts.AddItem)
			r.Patch("/items/{id}", carts.UpdateItem)
			r.Delete("/items/{id}", carts.RemoveItem)
			r.With(d.CheckoutLimiter.Middleware).Post("/checkout", carts.Checkout)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", inbox.History)
			r.Get("/settings", inbox.GetSettings)
			r.Put("/settings", inbox.UpdateSettings)
			r.Patch("/{id}/mark-read", inbox.MarkRead)
			r.Delete("/{id}", inbox.Delete)
		})

		r.Route("/records", func(r chi.Router) {
			r.Get("/", records.List)
			r.Get("/{id}", records.Get)
		})

		r.Route("/lab/records/{id}", func(r chi.Router) {
			r.Use(RequireRole(RoleLab))
			r.Post("/complete", records.Complete)
			r.Post("/reject", records.Reject)
		})
	})

	return otelhttp.NewHandler(r, "labcart")
}
