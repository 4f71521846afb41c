// Package booking implements the trip booking lifecycle: creation against the
// computed minimum price, time-based refunds and loyalty points.
package booking

import (
	"fmt"
	"time"

	"github.com/neexbeast/ecobalance/internal/pricing"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// DefaultDepartureTime is used when a booking has no explicit time.
	DefaultDepartureTime = "09:00"
)

// TripStatus is the lifecycle state of a booking.
type TripStatus string

const (
	StatusUpcoming  TripStatus = "Upcoming"
	StatusInTransit TripStatus = "In Transit"
	StatusCompleted TripStatus = "Completed"
	StatusCancelled TripStatus = "Cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s TripStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s TripStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusInTransit, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Booking is a confirmed trip. MinPrice and Contribution never change after creation.
type Booking struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	DestinationID   string              `json:"destination_id"`
	GuideID         string              `json:"guide_id,omitempty"`
	Date            string              `json:"date"`
	Time            string              `json:"time"`
	Travelers       int                 `json:"travelers"`
	PickupLocation  string              `json:"pickup_location"`
	DurationDays    int                 `json:"duration_days"`
	ComfortTier     pricing.ComfortTier `json:"comfort_tier"`
	IsVIP           bool                `json:"is_vip"`
	MinPrice        int64               `json:"min_price"`
	Contribution    int64               `json:"contribution"`
	Status          TripStatus          `json:"status"`
	CarbonFootprint int64               `json:"carbon_footprint_kg"`
	EcoPointsEarned int64               `json:"eco_points_earned"`
	RefundAmount    *int64              `json:"refund_amount,omitempty"`
	RefundPercent   int                 `json:"refund_percent,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Departure returns the departure instant of b interpreted in loc.
func (b Booking) Departure(loc *time.Location) (time.Time, error) {
	return departure(b.Date, b.Time, loc)
}

func departure(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if clock == "" {
		clock = DefaultDepartureTime
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing departure %q %q: %w", date, clock, err)
	}
	return t, nil
}

// Carbon factors in kg per traveller per day.
const (
	carbonFactorEcoLuxury = 8
	carbonFactorDefault   = 22
)

// CarbonFootprint estimates the trip footprint in kilograms.
func CarbonFootprint(travelers, durationDays int, tier pricing.ComfortTier) int64 {
	factor := int64(carbonFactorDefault)
	if tier == pricing.TierEcoLuxury {
		factor = carbonFactorEcoLuxury
	}
	return int64(travelers) * int64(durationDays) * factor
}

// PointsDivisor is the contribution amount that earns one eco point.
const PointsDivisor = 50

// EcoPoints returns the points earned for a contribution.
func EcoPoints(contribution int64) int64 {
	if contribution <= 0 {
		return 0
	}
	return contribution / PointsDivisor
}
