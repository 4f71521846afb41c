package booking

import (
	"math"
	"time"
)

// FullRefundWindow is the minimum notice for a full refund.
const FullRefundWindow = 24 * time.Hour

const (
	fullRefundPercent    = 100
	partialRefundPercent = 95
)

// Refund is the result of cancelling a booking.
type Refund struct {
	BookingID        string `json:"booking_id"`
	Percent          int    `json:"percent"`
	Amount           int64  `json:"amount"`
	AlreadyCancelled bool   `json:"already_cancelled"`
}

// RefundPercent returns the refund percentage for cancelling with the given
// notice. Exactly FullRefundWindow qualifies for a full refund.
func RefundPercent(untilDeparture time.Duration) int {
	if untilDeparture >= FullRefundWindow {
		return fullRefundPercent
	}
	return partialRefundPercent
}

// RefundAmount applies percent to contribution, rounding to the nearest unit.
func RefundAmount(contribution int64, percent int) int64 {
	return int64(math.Round(float64(contribution) * float64(percent) / 100))
}
