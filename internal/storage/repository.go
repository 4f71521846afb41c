package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/ecobalance/internal/destination"
)

// LiveSnapshotRepository persists the last applied live feed update per destination.
type LiveSnapshotRepository struct {
	q Querier
}

// NewLiveSnapshotRepository constructs a LiveSnapshotRepository backed by the given pool.
func NewLiveSnapshotRepository(pool *pgxpool.Pool) *LiveSnapshotRepository {
	return &LiveSnapshotRepository{q: pool}
}

// NewLiveSnapshotRepositoryWithQuerier constructs a LiveSnapshotRepository with a custom Querier (for tests).
func NewLiveSnapshotRepositoryWithQuerier(q Querier) *LiveSnapshotRepository {
	return &LiveSnapshotRepository{q: q}
}

// LoadLive returns the stored snapshot for destinationID.
// Returns nil, nil when nothing has been stored yet.
func (r *LiveSnapshotRepository) LoadLive(ctx context.Context, destinationID string) (*destination.LiveSnapshot, error) {
	const q = `
		SELECT seq, data, fetched_at
		FROM live_destinations
		WHERE destination_id = $1
	`

	var (
		seq       int64
		dataJSON  []byte
		fetchedAt time.Time
	)
	err := r.q.QueryRow(ctx, q, destinationID).Scan(&seq, &dataJSON, &fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying live snapshot for %s: %w", destinationID, err)
	}

	snap := &destination.LiveSnapshot{
		DestinationID: destinationID,
		Seq:           uint64(seq),
		FetchedAt:     fetchedAt,
	}
	if err := json.Unmarshal(dataJSON, &snap.Update); err != nil {
		return nil, fmt.Errorf("unmarshaling live snapshot for %s: %w", destinationID, err)
	}
	if !snap.Update.Status.Valid() {
		snap.Update.Status = destination.StatusRecommended
	}
	return snap, nil
}

// SaveLive upserts snap unless a snapshot with an equal or higher sequence
// number is already stored. It reports whether the row was written.
func (r *LiveSnapshotRepository) SaveLive(ctx context.Context, snap destination.LiveSnapshot) (bool, error) {
	dataJSON, err := json.Marshal(snap.Update)
	if err != nil {
		return false, fmt.Errorf("marshaling live snapshot for %s: %w", snap.DestinationID, err)
	}

	const q = `
		INSERT INTO live_destinations (destination_id, seq, data, fetched_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (destination_id) DO UPDATE
		SET seq        = EXCLUDED.seq,
		    data       = EXCLUDED.data,
		    fetched_at = EXCLUDED.fetched_at,
		    updated_at = EXCLUDED.updated_at
		WHERE live_destinations.seq < EXCLUDED.seq
	`

	tag, err := r.q.Exec(ctx, q, snap.DestinationID, int64(snap.Seq), dataJSON, snap.FetchedAt)
	if err != nil {
		return false, fmt.Errorf("upserting live snapshot for %s: %w", snap.DestinationID, err)
	}

	return tag.RowsAffected() == 1, nil
}
