package api

import (
	"context"
	"time"

	"github.com/neexbeast/ecobalance/internal/advisory"
	"github.com/neexbeast/ecobalance/internal/booking"
	"github.com/neexbeast/ecobalance/internal/destination"
	"github.com/neexbeast/ecobalance/internal/pricing"
	"github.com/neexbeast/ecobalance/internal/session"
)

// DestinationRepo defines the destination operations needed by handlers.
type DestinationRepo interface {
	List(ctx context.Context) []destination.Destination
	GetByID(ctx context.Context, id string) (destination.Destination, bool)
	Peek(id string) (destination.Destination, bool)
	Refresh(ctx context.Context) bool
	LiveID() string
}

// Advisor produces advisories. It never fails.
type Advisor interface {
	Advise(ctx context.Context, d destination.Destination, alternatives []destination.Destination) advisory.Advisory
}

// BookingService defines the booking lifecycle operations needed by handlers.
type BookingService interface {
	Quote(ctx context.Context, destinationID string, travelers, durationDays int, tier string) (pricing.Breakdown, error)
	Create(ctx context.Context, sess session.Session, p booking.CreateParams, now time.Time) (booking.Receipt, error)
	Cancel(ctx context.Context, userID, bookingID string, now time.Time) (booking.Refund, error)
	Advance(ctx context.Context, userID, bookingID string, to booking.TripStatus) (booking.Booking, error)
	GetActive(ctx context.Context, userID string) (*booking.Booking, error)
	Profile(ctx context.Context, userID string) (booking.Profile, error)
}

// PreferenceStore defines the per-user settings operations needed by handlers.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (session.Preferences, error)
	Session(ctx context.Context, userID string) (session.Session, error)
	SetTheme(ctx context.Context, userID, theme string) error
}
