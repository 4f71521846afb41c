package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/ecobalance/internal/booking"
	"github.com/neexbeast/ecobalance/internal/pricing"
)

const bookingColumns = `
	id, user_id, destination_id, guide_id, trip_date, trip_time, travelers,
	pickup_location, duration_days, comfort_tier, is_vip, min_price, contribution,
	status, carbon_footprint, eco_points_earned, refund_amount, refund_percent, created_at
`

// BookingRepository stores bookings and user eco points.
type BookingRepository struct {
	db DB
}

// NewBookingRepository constructs a BookingRepository backed by the given pool.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: pool}
}

// NewBookingRepositoryWithDB constructs a BookingRepository with a custom DB (for tests).
func NewBookingRepositoryWithDB(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateBooking inserts b and adds its points to the owner in one transaction.
// Re-inserting an existing booking id changes nothing and returns the current total.
func (r *BookingRepository) CreateBooking(ctx context.Context, b booking.Booking) (int64, error) {
	const insertBooking = `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO NOTHING
	`
	const addPoints = `
		INSERT INTO users (id, eco_points)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET eco_points = users.eco_points + EXCLUDED.eco_points,
		    updated_at = NOW()
		RETURNING eco_points
	`
	const currentPoints = `SELECT COALESCE((SELECT eco_points FROM users WHERE id = $1), 0)`

	var points int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertBooking,
			b.ID, b.UserID, b.DestinationID, b.GuideID, b.Date, b.Time, b.Travelers,
			b.PickupLocation, b.DurationDays, string(b.ComfortTier), b.IsVIP, b.MinPrice, b.Contribution,
			string(b.Status), b.CarbonFootprint, b.EcoPointsEarned, b.RefundAmount, b.RefundPercent, b.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting booking: %w", err)
		}

		if tag.RowsAffected() == 0 {
			if err := tx.QueryRow(ctx, currentPoints, b.UserID).Scan(&points); err != nil {
				return fmt.Errorf("reading eco points: %w", err)
			}
			return nil
		}

		if err := tx.QueryRow(ctx, addPoints, b.UserID, b.EcoPointsEarned).Scan(&points); err != nil {
			return fmt.Errorf("incrementing eco points: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("creating booking %s: %w", b.ID, err)
	}

	return points, nil
}

// GetBooking returns the booking with id owned by userID.
func (r *BookingRepository) GetBooking(ctx context.Context, userID, id string) (booking.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND user_id = $2`

	b, err := scanBooking(r.db.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Booking{}, booking.ErrNotFound
		}
		return booking.Booking{}, fmt.Errorf("querying booking %s: %w", id, err)
	}
	return b, nil
}

// CancelBooking marks the booking cancelled with the given refund unless it is
// already cancelled or completed, and returns the stored record.
func (r *BookingRepository) CancelBooking(ctx context.Context, userID, id string, amount int64, percent int) (booking.Booking, error) {
	q := `
		UPDATE bookings
		SET status = 'Cancelled', refund_amount = $3, refund_percent = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status NOT IN ('Cancelled', 'Completed')
		RETURNING ` + bookingColumns

	b, err := scanBooking(r.db.QueryRow(ctx, q, id, userID, amount, percent))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return booking.Booking{}, fmt.Errorf("cancelling booking %s: %w", id, err)
	}

	stored, err := r.GetBooking(ctx, userID, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if stored.Status == booking.StatusCompleted {
		return booking.Booking{}, fmt.Errorf("cancelling booking %s: %w", id, booking.ErrTerminal)
	}
	return stored, nil
}

// UpdateStatus moves a booking from one status to another and reports
// whether it was still in the from status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, userID, id string, from, to booking.TripStatus) (bool, error) {
	const q = `
		UPDATE bookings
		SET status = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $3
	`

	tag, err := r.db.Exec(ctx, q, id, userID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("updating booking %s status: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// LatestActive returns the newest booking of userID that is neither
// cancelled nor completed. Returns nil, nil when there is none.
func (r *BookingRepository) LatestActive(ctx context.Context, userID string) (*booking.Booking, error) {
	q := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND status NOT IN ('Cancelled', 'Completed')
		ORDER BY created_at DESC
		LIMIT 1
	`

	b, err := scanBooking(r.db.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active booking for %s: %w", userID, err)
	}
	return &b, nil
}

// UserPoints returns the eco points of userID, 0 for unknown users.
func (r *BookingRepository) UserPoints(ctx context.Context, userID string) (int64, error) {
	const q = `SELECT eco_points FROM users WHERE id = $1`

	var points int64
	if err := r.db.QueryRow(ctx, q, userID).Scan(&points); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("querying eco points for %s: %w", userID, err)
	}
	return points, nil
}

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var (
		b         booking.Booking
		tier      string
		status    string
		createdAt time.Time
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.DestinationID,
		&b.GuideID,
		&b.Date,
		&b.Time,
		&b.Travelers,
		&b.PickupLocation,
		&b.DurationDays,
		&tier,
		&b.IsVIP,
		&b.MinPrice,
		&b.Contribution,
		&status,
		&b.CarbonFootprint,
		&b.EcoPointsEarned,
		&b.RefundAmount,
		&b.RefundPercent,
		&createdAt,
	)
	if err != nil {
		return booking.Booking{}, err
	}

	b.ComfortTier = pricing.ComfortTier(tier)
	b.Status = booking.TripStatus(status)
	if !b.Status.Valid() {
		return booking.Booking{}, fmt.Errorf("booking %s has unknown status %q", b.ID, status)
	}
	b.CreatedAt = createdAt.UTC()
	return b, nil
}
