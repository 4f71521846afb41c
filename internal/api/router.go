package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// DefaultRateLimit is the per-IP request budget per minute.
const DefaultRateLimit = 60

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint is unauthenticated; everything else requires bearer auth,
// and booking, profile and preference routes also require the user header.
func NewRouter(handlers *Handlers, token string, rateLimit int, db dbPinger, redisClient redisPinger, log *slog.Logger) *chi.Mux {
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(rateLimit, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))

		r.Get("/api/v1/destinations", handlers.ListDestinations)
		r.Get("/api/v1/destinations/{id}", handlers.GetDestination)
		r.Post("/api/v1/destinations/{id}/refresh", handlers.RefreshDestination)
		r.Get("/api/v1/destinations/{id}/advisory", handlers.GetAdvisory)
		r.Post("/api/v1/destinations/{id}/quote", handlers.Quote)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/api/v1/bookings", handlers.CreateBooking)
			r.Get("/api/v1/bookings/active", handlers.GetActiveBooking)
			r.Post("/api/v1/bookings/{id}/cancel", handlers.CancelBooking)
			r.Post("/api/v1/bookings/{id}/advance", handlers.AdvanceBooking)
			r.Get("/api/v1/profile", handlers.GetProfile)
			r.Get("/api/v1/preferences", handlers.GetPreferences)
			r.Put("/api/v1/preferences", handlers.PutPreferences)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
