package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neexbeast/ecobalance/internal/destination"
	"github.com/neexbeast/ecobalance/internal/pricing"
	"github.com/neexbeast/ecobalance/internal/session"
)

// Store persists bookings and loyalty points.
//
// CreateBooking must insert the booking and add its EcoPointsEarned to the
// owner's total in one atomic step, returning the new total. Inserting an id
// that already exists must leave points untouched and return the current total.
//
// CancelBooking must only change a booking that is not yet Cancelled and
// returns the stored record either way.
type Store interface {
	CreateBooking(ctx context.Context, b Booking) (int64, error)
	GetBooking(ctx context.Context, userID, id string) (Booking, error)
	CancelBooking(ctx context.Context, userID, id string, amount int64, percent int) (Booking, error)
	UpdateStatus(ctx context.Context, userID, id string, from, to TripStatus) (bool, error)
	LatestActive(ctx context.Context, userID string) (*Booking, error)
	UserPoints(ctx context.Context, userID string) (int64, error)
}

// destinationSource is the interface satisfied by destination.Repository.
type destinationSource interface {
	GetByID(ctx context.Context, id string) (destination.Destination, bool)
}

// CreateParams is a booking request.
type CreateParams struct {
	DestinationID  string
	GuideID        string
	Date           string
	Time           string
	Travelers      int
	PickupLocation string
	DurationDays   int
	ComfortTier    string
	Contribution   int64
}

// Receipt is a created booking and the owner's standing after it.
type Receipt struct {
	Booking Booking `json:"booking"`
	Profile Profile `json:"profile"`
}

// Service runs the booking lifecycle.
type Service struct {
	store        Store
	destinations destinationSource
	pricing      *pricing.Engine
	loc          *time.Location
	log          *slog.Logger
	newID        func() string
}

// NewService wires a Service. A nil loc means UTC.
func NewService(store Store, destinations destinationSource, engine *pricing.Engine, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:        store,
		destinations: destinations,
		pricing:      engine,
		loc:          loc,
		log:          log,
		newID:        uuid.NewString,
	}
}

// Quote prices a trip without booking it.
func (s *Service) Quote(ctx context.Context, destinationID string, travelers, durationDays int, tier string) (pricing.Breakdown, error) {
	d, ok := s.destinations.GetByID(ctx, destinationID)
	if !ok {
		return pricing.Breakdown{}, fmt.Errorf("destination %s: %w", destinationID, ErrNotFound)
	}
	ct, ok := s.pricing.ParseTier(tier)
	if !ok {
		return pricing.Breakdown{}, invalid("comfort_tier", "unknown comfort tier %q", tier)
	}
	b, err := s.pricing.Price(d, travelers, durationDays, ct)
	if err != nil {
		return pricing.Breakdown{}, &ValidationError{Field: "quote", Message: err.Error()}
	}
	return b, nil
}

// Create validates p against the current price of the destination and stores
// a new Upcoming booking owned by sess.
func (s *Service) Create(ctx context.Context, sess session.Session, p CreateParams, now time.Time) (Receipt, error) {
	if sess.UserID == "" {
		return Receipt{}, invalid("user", "a user is required")
	}
	tier, ok := s.pricing.ParseTier(p.ComfortTier)
	if !ok {
		return Receipt{}, invalid("comfort_tier", "select a comfort tier")
	}
	pickup := strings.TrimSpace(p.PickupLocation)
	if pickup == "" {
		return Receipt{}, invalid("pickup_location", "pickup location is required")
	}
	if p.Travelers < 1 {
		return Receipt{}, invalid("travelers", "at least one traveller is required")
	}
	if p.DurationDays < 1 {
		return Receipt{}, invalid("duration_days", "duration must be at least one day")
	}
	clock := p.Time
	if clock == "" {
		clock = DefaultDepartureTime
	}
	dep, err := departure(p.Date, clock, s.loc)
	if err != nil {
		return Receipt{}, invalid("date", "date must be YYYY-MM-DD and time HH:MM")
	}
	if !dep.After(now) {
		return Receipt{}, invalid("date", "departure must be in the future")
	}

	dest, ok := s.destinations.GetByID(ctx, p.DestinationID)
	if !ok {
		return Receipt{}, fmt.Errorf("destination %s: %w", p.DestinationID, ErrNotFound)
	}
	guide, err := pickGuide(dest, p.GuideID, sess)
	if err != nil {
		return Receipt{}, err
	}

	quote, err := s.pricing.Price(dest, p.Travelers, p.DurationDays, tier)
	if err != nil {
		return Receipt{}, &ValidationError{Field: "quote", Message: err.Error()}
	}
	v := pricing.Validate(p.Contribution, quote.Total)
	if !v.OK {
		return Receipt{}, invalid("contribution", "contribution %d is below the minimum of %d", p.Contribution, quote.Total)
	}

	b := Booking{
		ID:              s.newID(),
		UserID:          sess.UserID,
		DestinationID:   dest.ID,
		GuideID:         guide,
		Date:            p.Date,
		Time:            clock,
		Travelers:       p.Travelers,
		PickupLocation:  pickup,
		DurationDays:    p.DurationDays,
		ComfortTier:     tier,
		IsVIP:           v.IsVIP,
		MinPrice:        quote.Total,
		Contribution:    p.Contribution,
		Status:          StatusUpcoming,
		CarbonFootprint: CarbonFootprint(p.Travelers, p.DurationDays, tier),
		EcoPointsEarned: EcoPoints(p.Contribution),
		CreatedAt:       now.UTC(),
	}

	points, err := retryOnce(ctx, s.log, "create booking", func() (int64, error) {
		return s.store.CreateBooking(ctx, b)
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("saving booking %s: %w", b.ID, err)
	}

	s.log.Info("booking created",
		"booking", b.ID, "user", b.UserID, "destination", b.DestinationID,
		"contribution", b.Contribution, "vip", b.IsVIP, "points", points)
	return Receipt{Booking: b, Profile: newProfile(sess.UserID, points)}, nil
}

// pickGuide resolves the requested guide, or the first one sess may book.
func pickGuide(dest destination.Destination, id string, sess session.Session) (string, error) {
	if id == "" {
		for _, g := range dest.Guides {
			if !g.PremiumOnly || sess.Premium {
				return g.ID, nil
			}
		}
		return "", nil
	}
	g, ok := dest.FindGuide(id)
	if !ok {
		return "", invalid("guide_id", "guide %s does not work at %s", id, dest.ID)
	}
	if g.PremiumOnly && !sess.Premium {
		return "", invalid("guide_id", "guide %s is available to premium members only", id)
	}
	return g.ID, nil
}

// Cancel cancels a booking and returns the refund. Cancelling an already
// cancelled booking returns the refund computed the first time.
func (s *Service) Cancel(ctx context.Context, userID, bookingID string, now time.Time) (Refund, error) {
	b, err := retryOnce(ctx, s.log, "get booking", func() (Booking, error) {
		return s.store.GetBooking(ctx, userID, bookingID)
	})
	if err != nil {
		return Refund{}, fmt.Errorf("loading booking %s: %w", bookingID, err)
	}

	switch b.Status {
	case StatusCancelled:
		return storedRefund(b, true), nil
	case StatusCompleted:
		return Refund{}, fmt.Errorf("cancelling booking %s: %w", bookingID, ErrTerminal)
	}

	dep, err := b.Departure(s.loc)
	if err != nil {
		return Refund{}, fmt.Errorf("cancelling booking %s: %w", bookingID, err)
	}
	pct := RefundPercent(dep.Sub(now))
	amount := RefundAmount(b.Contribution, pct)

	stored, err := retryOnce(ctx, s.log, "cancel booking", func() (Booking, error) {
		return s.store.CancelBooking(ctx, userID, bookingID, amount, pct)
	})
	if err != nil {
		return Refund{}, fmt.Errorf("cancelling booking %s: %w", bookingID, err)
	}

	s.log.Info("booking cancelled", "booking", bookingID, "user", userID, "refund", amount, "percent", pct)
	return storedRefund(stored, false), nil
}

func storedRefund(b Booking, already bool) Refund {
	r := Refund{BookingID: b.ID, Percent: b.RefundPercent, AlreadyCancelled: already}
	if b.RefundAmount != nil {
		r.Amount = *b.RefundAmount
	}
	return r
}

var transitions = map[TripStatus]TripStatus{
	StatusUpcoming:  StatusInTransit,
	StatusInTransit: StatusCompleted,
}

// Advance moves a booking one step forward in its lifecycle.
func (s *Service) Advance(ctx context.Context, userID, bookingID string, to TripStatus) (Booking, error) {
	if to == StatusCancelled {
		return Booking{}, invalid("status", "use cancel to cancel a booking")
	}
	b, err := retryOnce(ctx, s.log, "get booking", func() (Booking, error) {
		return s.store.GetBooking(ctx, userID, bookingID)
	})
	if err != nil {
		return Booking{}, fmt.Errorf("loading booking %s: %w", bookingID, err)
	}
	if b.Status == to {
		return b, nil
	}
	if b.Status.Terminal() {
		return Booking{}, fmt.Errorf("advancing booking %s: %w", bookingID, ErrTerminal)
	}
	if transitions[b.Status] != to {
		return Booking{}, fmt.Errorf("advancing booking %s from %s to %s: %w", bookingID, b.Status, to, ErrInvalidTransition)
	}

	applied, err := retryOnce(ctx, s.log, "update status", func() (bool, error) {
		return s.store.UpdateStatus(ctx, userID, bookingID, b.Status, to)
	})
	if err != nil {
		return Booking{}, fmt.Errorf("advancing booking %s: %w", bookingID, err)
	}
	if !applied {
		return Booking{}, fmt.Errorf("advancing booking %s: status changed concurrently: %w", bookingID, ErrInvalidTransition)
	}
	b.Status = to
	return b, nil
}

// GetActive returns the newest booking of userID that is neither cancelled
// nor completed, or nil.
func (s *Service) GetActive(ctx context.Context, userID string) (*Booking, error) {
	b, err := retryOnce(ctx, s.log, "latest active", func() (*Booking, error) {
		return s.store.LatestActive(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("loading active booking: %w", err)
	}
	return b, nil
}

// Profile returns the loyalty standing of userID.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	points, err := retryOnce(ctx, s.log, "user points", func() (int64, error) {
		return s.store.UserPoints(ctx, userID)
	})
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return newProfile(userID, points), nil
}

// retryOnce runs fn and, on a store failure, runs it one more time.
func retryOnce[T any](ctx context.Context, log *slog.Logger, op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
		return v, err
	}
	log.Warn("booking store failed, retrying", "op", op, "err", err)
	return fn()
}
