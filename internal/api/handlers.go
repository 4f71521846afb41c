package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/ecobalance/internal/booking"
	"github.com/neexbeast/ecobalance/internal/destination"
	"github.com/neexbeast/ecobalance/internal/session"
)

const maxBodyBytes = 1 << 20

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo     DestinationRepo
	advisor  Advisor
	bookings BookingService
	prefs    PreferenceStore
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo DestinationRepo, advisor Advisor, bookings BookingService, prefs PreferenceStore, log *slog.Logger) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{
		repo:     repo,
		advisor:  advisor,
		bookings: bookings,
		prefs:    prefs,
		validate: v,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the handlers' time source.
func (h *Handlers) WithClock(now func() time.Time) *Handlers {
	h.now = now
	return h
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, booking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, booking.ErrTerminal), errors.Is(err, booking.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{
				Error: fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag()),
				Field: fe.Field(),
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request"})
		return false
	}
	return true
}

// ---- destinations ----

// ListDestinations handles GET /api/v1/destinations.
func (h *Handlers) ListDestinations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.List(r.Context()))
}

// GetDestination handles GET /api/v1/destinations/{id}.
// The live destination is reconciled with the feed first; feed failures serve last-known data.
func (h *Handlers) GetDestination(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, ok := h.repo.GetByID(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "destination not found"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type refreshResponse struct {
	Updated     bool                    `json:"updated"`
	Destination destination.Destination `json:"destination"`
}

// RefreshDestination handles POST /api/v1/destinations/{id}/refresh.
// Only the live destination can be refreshed.
func (h *Handlers) RefreshDestination(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := h.repo.Peek(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "destination not found"})
		return
	}
	if id != h.repo.LiveID() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "destination has no live feed"})
		return
	}

	updated := h.repo.Refresh(r.Context())
	d, _ := h.repo.Peek(id)
	writeJSON(w, http.StatusOK, refreshResponse{Updated: updated, Destination: d})
}

// GetAdvisory handles GET /api/v1/destinations/{id}/advisory.
// Less risky destinations are offered as alternatives.
func (h *Handlers) GetAdvisory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	all := h.repo.List(r.Context())
	var (
		target destination.Destination
		found  bool
	)
	for _, d := range all {
		if d.ID == id {
			target, found = d, true
			break
		}
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "destination not found"})
		return
	}

	var alternatives []destination.Destination
	for _, d := range all {
		if d.ID != id && d.Status.Severity() < target.Status.Severity() {
			alternatives = append(alternatives, d)
		}
	}

	writeJSON(w, http.StatusOK, h.advisor.Advise(r.Context(), target, alternatives))
}

type quoteRequest struct {
	Travelers    int    `json:"travelers" validate:"required,min=1,max=50"`
	DurationDays int    `json:"duration_days" validate:"required,min=1,max=365"`
	ComfortTier  string `json:"comfort_tier" validate:"required"`
}

// Quote handles POST /api/v1/destinations/{id}/quote.
func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, err := h.bookings.Quote(r.Context(), chi.URLParam(r, "id"), req.Travelers, req.DurationDays, req.ComfortTier)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- bookings ----

type createBookingRequest struct {
	DestinationID  string `json:"destination_id" validate:"required"`
	GuideID        string `json:"guide_id"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string `json:"time" validate:"omitempty,datetime=15:04"`
	Travelers      int    `json:"travelers" validate:"required,min=1,max=50"`
	PickupLocation string `json:"pickup_location" validate:"required,max=500"`
	DurationDays   int    `json:"duration_days" validate:"required,min=1,max=365"`
	ComfortTier    string `json:"comfort_tier" validate:"required"`
	Contribution   int64  `json:"contribution" validate:"min=0"`
}

// sessionFor loads the request session. Preference store failures yield a
// non-premium session.
func (h *Handlers) sessionFor(ctx context.Context, userID string) session.Session {
	sess, err := h.prefs.Session(ctx, userID)
	if err != nil {
		h.log.Warn("loading session preferences failed", "user", userID, "err", err)
		return session.Session{UserID: userID}
	}
	return sess
}

// CreateBooking handles POST /api/v1/bookings.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID := userFrom(r.Context())
	receipt, err := h.bookings.Create(r.Context(), h.sessionFor(r.Context(), userID), booking.CreateParams{
		DestinationID:  req.DestinationID,
		GuideID:        req.GuideID,
		Date:           req.Date,
		Time:           req.Time,
		Travelers:      req.Travelers,
		PickupLocation: req.PickupLocation,
		DurationDays:   req.DurationDays,
		ComfortTier:    req.ComfortTier,
		Contribution:   req.Contribution,
	}, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

type activeResponse struct {
	Booking *booking.Booking `json:"booking"`
}

// GetActiveBooking handles GET /api/v1/bookings/active.
func (h *Handlers) GetActiveBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.GetActive(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activeResponse{Booking: b})
}

// CancelBooking handles POST /api/v1/bookings/{id}/cancel.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	refund, err := h.bookings.Cancel(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refund)
}

type advanceRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdvanceBooking handles POST /api/v1/bookings/{id}/advance.
func (h *Handlers) AdvanceBooking(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	to := booking.TripStatus(strings.TrimSpace(req.Status))
	if !to.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "unknown status", Field: "status"})
		return
	}

	b, err := h.bookings.Advance(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- profile and preferences ----

// GetProfile handles GET /api/v1/profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.bookings.Profile(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPreferences handles GET /api/v1/preferences.
func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Get(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type preferencesRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

// PutPreferences handles PUT /api/v1/preferences. Only the theme is writable.
func (h *Handlers) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID := userFrom(r.Context())
	if err := h.prefs.SetTheme(r.Context(), userID, req.Theme); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.prefs.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ---- health ----

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Redis  string `json:"redis"`
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// Returns 200 if both are reachable, 503 otherwise.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", DB: "ok", Redis: "ok"}
		status := http.StatusOK

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			resp.DB = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			resp.Redis = "error"
			status = http.StatusServiceUnavailable
		}

		if status != http.StatusOK {
			resp.Status = "degraded"
		}
		writeJSON(w, status, resp)
	}
}
