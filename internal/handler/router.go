package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig collects what NewRouter mounts. Limiter and Metrics are
// optional.
type RouterConfig struct {
	Slots        *SlotHandler
	Reservations *ReservationHandler
	Limiter      *RateLimiter
	Metrics      http.Handler
}

// NewRouter builds the chi router for the reservation API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger)
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Writes that contend for slot locks are rate limited per caller.
	limited := func(r chi.Router) chi.Router {
		if cfg.Limiter == nil {
			return r
		}
		return r.With(cfg.Limiter.Middleware)
	}

	r.Route("/slots", func(r chi.Router) {
		r.Post("/", cfg.Slots.CreateSlot)
		r.Get("/{id}", cfg.Slots.GetSlot)
		r.Patch("/{id}/status", cfg.Slots.UpdateStatus)
		r.Get("/{id}/audit", cfg.Slots.Audit)
		limited(r).Post("/{id}/bookings", cfg.Reservations.Book)
	})

	limited(r).Delete("/bookings/{id}", cfg.Reservations.Cancel)
	r.Get("/availability", cfg.Reservations.Availability)
	r.Get("/users/{id}/bookings", cfg.Reservations.UserBookings)

	return r
}
