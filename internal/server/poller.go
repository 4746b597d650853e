package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/status"
)

// Fetcher produces one FetchResult per call.
type Fetcher interface {
	Fetch(ctx context.Context) status.FetchResult
}

// Recorder stores every polled result. history.DB satisfies it.
type Recorder interface {
	Record(ctx context.Context, source string, result status.FetchResult, fetchedAt time.Time) (int64, error)
}

// ErrNotReady is reported by CheckReadiness before the first successful poll.
var ErrNotReady = errors.New("no successful fetch yet")

// State is what the poller knows at one moment.
type State struct {
	// Result is the latest result that did not fail.
	Result status.FetchResult
	// UpdatedAt is when Result was fetched. Zero when there is none.
	UpdatedAt time.Time
	// LastOutcome and LastPollAt describe the most recent poll, failed or not.
	LastOutcome status.Outcome
	LastPollAt  time.Time
}

// HasResult reports whether a result is available.
func (s State) HasResult() bool {
	return !s.UpdatedAt.IsZero()
}

// Poller refreshes the latest FetchResult on an interval.
// A failed fetch leaves the previous result in place.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	recorder Recorder
	source   string

	mu    sync.RWMutex
	state State
	ready bool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) PollerOption {
	return func(p *Poller) { p.clock = c }
}

// WithRecorder stores each polled result under source.
func WithRecorder(r Recorder, source string) PollerOption {
	return func(p *Poller) {
		p.recorder = r
		p.source = source
	}
}

// WithSeed serves result until the first poll succeeds. The poller does not
// become ready from a seed.
func WithSeed(result status.FetchResult, fetchedAt time.Time) PollerOption {
	return func(p *Poller) {
		p.state.Result = result
		p.state.UpdatedAt = fetchedAt
	}
}

// NewPoller creates a poller. log may be nil.
func NewPoller(f Fetcher, interval time.Duration, log *slog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:  f,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		logger:   logger.OrDefault(log),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.Poll(ctx)
		}
	}
}

// Poll fetches once and updates the state.
func (p *Poller) Poll(ctx context.Context) status.FetchResult {
	result := p.fetcher.Fetch(ctx)
	now := p.clock.Now().UTC()

	p.mu.Lock()
	p.state.LastOutcome = result.Outcome()
	p.state.LastPollAt = now
	if !result.Failed() {
		p.state.Result = result
		p.state.UpdatedAt = now
		p.ready = true
	}
	p.mu.Unlock()

	if p.recorder != nil && ctx.Err() == nil {
		if _, err := p.recorder.Record(ctx, p.source, result, now); err != nil {
			p.logger.Warn("recording fetch failed", "error", err)
		}
	}

	return result
}

// State returns a copy of the current state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// CheckReadiness returns nil once a poll has succeeded.
func (p *Poller) CheckReadiness(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return ErrNotReady
	}
	return nil
}
