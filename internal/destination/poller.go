package destination

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval matches the refresh cadence of the live dashboard.
const DefaultPollInterval = 5 * time.Second

// refresher is the interface satisfied by Repository.
type refresher interface {
	Refresh(ctx context.Context) bool
}

// Poller periodically refreshes the live destination until stopped.
// Refreshes never overlap: ticks that arrive while one is running are dropped.
type Poller struct {
	refresher refresher
	interval  time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller constructs a Poller. A non-positive interval disables polling.
func NewPoller(r refresher, interval time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{refresher: r, interval: interval, log: log}
}

// Start launches the polling loop. It is a no-op when already running or disabled.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval <= 0 || p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)
	}(p.done)
}

// Stop cancels any in-flight refresh and waits for the loop to exit.
// It is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Run polls in the calling goroutine until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("live feed poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("live feed refresh panicked", "recover", r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	if p.refresher.Refresh(ctx) {
		p.log.Debug("live destination refreshed")
	}
}
