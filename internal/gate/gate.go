package gate

import (
	"context"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
	"sync"
	"time"
)

// MinInterval is the shortest time allowed between two remote fetches.
const MinInterval = 3 * time.Hour

// CounterStore persists the time of the last successful fetch. It lives apart
// from the extrema cache so that losing one never loses the other.
type CounterStore interface {
	// GetLastFetch returns 0 when nothing has been recorded.
	GetLastFetch(ctx context.Context) (int64, error)
	PutLastFetch(ctx context.Context, nowUTC int64) error
}

// Gate rate limits calls to the remote tide API.
type Gate struct {
	store       CounterStore
	minInterval time.Duration
}

type Option func(*Gate)

func WithMinInterval(d time.Duration) Option {
	return func(g *Gate) {
		g.minInterval = d
	}
}

func New(store CounterStore, opts ...Option) *Gate {
	g := &Gate{
		store:       store,
		minInterval: MinInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanFetch reports whether a fetch is allowed at now and the last recorded
// fetch time. Before the clock is valid nothing is allowed and lastFetch is 0.
// An unreadable counter counts as never fetched. A last fetch time ahead of now
// means the clock was stepped back, so the fetch is allowed.
func (g *Gate) CanFetch(ctx context.Context, now int64) (bool, int64) {
	if !models.ClockValid(now) {
		log.Debug().
			Int64("now", now).
			Int64("cutoff", models.ClockValidCutoff).
			Msg("Clock not valid, fetch not allowed")
		return false, 0
	}

	lastFetch, err := g.store.GetLastFetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Reading last fetch time failed, treating as never fetched")
		return true, 0
	}

	if lastFetch == 0 {
		log.Debug().Msg("No previous fetch, allowed immediately")
		return true, 0
	}

	if lastFetch > now {
		log.Warn().
			Int64("last_fetch", lastFetch).
			Int64("now", now).
			Msg("Last fetch time is in the future, allowing fetch")
		return true, lastFetch
	}

	elapsed := time.Duration(now-lastFetch) * time.Second
	allowed := elapsed >= g.minInterval

	log.Debug().
		Int64("last_fetch", lastFetch).
		Dur("elapsed", elapsed).
		Dur("min_interval", g.minInterval).
		Bool("allowed", allowed).
		Msg("Checked fetch gate")

	return allowed, lastFetch
}

// RecordSuccess stores now as the last fetch time unless the clock is invalid.
// Store failures are logged; the next CanFetch will simply allow a fetch.
func (g *Gate) RecordSuccess(ctx context.Context, now int64) {
	if !models.ClockValid(now) {
		log.Warn().Int64("now", now).Msg("Clock not valid, not recording fetch time")
		return
	}

	if err := g.store.PutLastFetch(ctx, now); err != nil {
		log.Error().Err(err).Msg("Recording last fetch time failed")
		return
	}

	log.Debug().Int64("last_fetch", now).Msg("Recorded successful fetch")
}

// MemoryStore keeps the counter in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	lastFetch int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) GetLastFetch(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFetch, nil
}

func (m *MemoryStore) PutLastFetch(_ context.Context, nowUTC int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFetch = nowUTC
	return nil
}
