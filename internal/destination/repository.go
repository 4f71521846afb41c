package destination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const liveFlightKey = "live"

// liveFetcher is the interface satisfied by FeedClient.
type liveFetcher interface {
	FetchLatest(ctx context.Context) *MetricsUpdate
}

// LiveSnapshot is the persisted form of the last applied live update.
type LiveSnapshot struct {
	DestinationID string
	Seq           uint64
	Update        MetricsUpdate
	FetchedAt     time.Time
}

// SnapshotStore persists the live destination between restarts.
// SaveLive must ignore snapshots whose Seq is not greater than the stored one
// and report whether the write was applied.
type SnapshotStore interface {
	LoadLive(ctx context.Context, destinationID string) (*LiveSnapshot, error)
	SaveLive(ctx context.Context, snap LiveSnapshot) (bool, error)
}

// Repository owns the destination records and keeps the live one reconciled
// with the sensor feed.
type Repository struct {
	static []Destination
	liveID string
	feed   liveFetcher
	store  SnapshotStore
	log    *slog.Logger
	now    func() time.Time

	group   singleflight.Group
	started atomic.Uint64

	mu   sync.RWMutex
	live Destination
}

// NewRepository builds a repository over the given seed records. store may be nil.
func NewRepository(seed []Destination, feed liveFetcher, store SnapshotStore, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	r := &Repository{feed: feed, store: store, log: log, now: time.Now}
	for _, d := range seed {
		if d.Live && r.liveID == "" {
			r.liveID = d.ID
			r.live = d.clone()
			continue
		}
		if d.Live {
			log.Warn("ignoring extra live flag", "destination", d.ID)
			d.Live = false
		}
		r.static = append(r.static, d.clone())
	}
	return r
}

// Restore loads the persisted live snapshot so last-known values survive restarts.
func (r *Repository) Restore(ctx context.Context) error {
	if r.store == nil || r.liveID == "" {
		return nil
	}
	snap, err := r.store.LoadLive(ctx, r.liveID)
	if err != nil {
		return fmt.Errorf("restoring live destination %s: %w", r.liveID, err)
	}
	if snap == nil {
		return nil
	}

	r.mu.Lock()
	r.live = snap.Update.Apply(r.live)
	r.mu.Unlock()
	r.started.Store(snap.Seq)
	return nil
}

// Refresh runs one reconciliation against the feed and reports whether
// the live destination was updated.
func (r *Repository) Refresh(ctx context.Context) bool {
	if r.liveID == "" || r.feed == nil {
		return false
	}

	seq := r.started.Add(1)
	update := r.feed.FetchLatest(ctx)
	if update == nil {
		return false
	}

	r.mu.Lock()
	if seq != r.started.Load() {
		r.mu.Unlock()
		r.log.Debug("dropping stale live update", "seq", seq)
		return false
	}
	r.live = update.Apply(r.live)
	r.mu.Unlock()

	r.persist(ctx, seq, *update)
	return true
}

func (r *Repository) persist(ctx context.Context, seq uint64, update MetricsUpdate) {
	if r.store == nil {
		return
	}
	applied, err := r.store.SaveLive(ctx, LiveSnapshot{
		DestinationID: r.liveID,
		Seq:           seq,
		Update:        update,
		FetchedAt:     r.now(),
	})
	if err != nil {
		r.log.Warn("persisting live snapshot failed", "destination", r.liveID, "err", err)
		return
	}
	if !applied {
		r.log.Debug("live snapshot superseded", "destination", r.liveID, "seq", seq)
	}
}

// refreshShared collapses concurrent read-triggered refreshes into one fetch.
func (r *Repository) refreshShared(ctx context.Context) {
	_, _, _ = r.group.Do(liveFlightKey, func() (any, error) {
		return r.Refresh(ctx), nil
	})
}

// List returns every destination, reconciling the live one first.
func (r *Repository) List(ctx context.Context) []Destination {
	if r.liveID != "" {
		r.refreshShared(ctx)
	}

	out := make([]Destination, 0, len(r.static)+1)
	if r.liveID != "" {
		out = append(out, r.lastKnownLive())
	}
	for _, d := range r.static {
		out = append(out, d.clone())
	}
	return out
}

// GetByID returns the destination with the given id.
func (r *Repository) GetByID(ctx context.Context, id string) (Destination, bool) {
	if id != "" && id == r.liveID {
		r.refreshShared(ctx)
	}
	return r.Peek(id)
}

// Peek returns the destination with the given id as last known, without
// contacting the feed.
func (r *Repository) Peek(id string) (Destination, bool) {
	if id != "" && id == r.liveID {
		return r.lastKnownLive(), true
	}
	for _, d := range r.static {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return Destination{}, false
}

// LiveID returns the id of the live destination, or "" when there is none.
func (r *Repository) LiveID() string { return r.liveID }

func (r *Repository) lastKnownLive() Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live.clone()
}
