package tide

import (
	"context"
	"errors"
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/fetch"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultUISamples is the curve resolution the display asks for.
const DefaultUISamples = 96

// Dependencies are the collaborators a Pipeline is built from.
type Dependencies struct {
	Store   ExtremaStore
	Gate    FetchGate
	Fetcher Fetcher
	Network Network
	Clock   Clock // defaults to the system clock
	Curves  CurveMemo
}

// Pipeline decides when to call the tide API, keeps the cache and gate up to
// date and publishes the latest good extrema set for readers.
//
// Update is not safe for concurrent use; one driver goroutine must call it.
// The read side (Latest, GetTideCurve, TakeDirtyFlag, PhaseNow) may be used
// from any goroutine.
type Pipeline struct {
	store        ExtremaStore
	gate         FetchGate
	fetcher      Fetcher
	network      Network
	clock        Clock
	curves       CurveMemo
	historyHours int
	snapshot     Snapshot
}

type Option func(*Pipeline)

// WithHistoryHours sets how far before now the fetch window starts
func WithHistoryHours(hours int) Option {
	return func(p *Pipeline) {
		p.historyHours = hours
	}
}

func NewPipeline(deps Dependencies, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        deps.Store,
		gate:         deps.Gate,
		fetcher:      deps.Fetcher,
		network:      deps.Network,
		clock:        deps.Clock,
		curves:       deps.Curves,
		historyHours: fetch.DefaultHistoryHours,
	}
	if p.clock == nil {
		p.clock = systemClock{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update runs one scheduling decision. ResultOK and ResultSkippedRateLimit
// return a nil error; every other result comes with an *UpdateError.
// Persistent state (gate and cache) is written only after a fetch that
// produced a sufficient set.
func (p *Pipeline) Update(ctx context.Context, horizonHours int) (UpdateResult, error) {
	now := p.clock.Now().Unix()
	log.Debug().Int64("now", now).Int("horizon_hours", horizonHours).Msg("Tide update")

	if !models.ClockValid(now) {
		log.Info().Int64("now", now).Msg("Clock not ready, skipping tide update")
		return ResultTimeNotReady, newUpdateError(ResultTimeNotReady, fmt.Errorf("clock reads %d", now))
	}

	allowed, lastFetch := p.gate.CanFetch(ctx, now)
	if !allowed {
		set, ok := p.loadCache(ctx)
		if ok {
			log.Debug().
				Int64("last_fetch", lastFetch).
				Int64("elapsed_seconds", now-lastFetch).
				Int("extremes", set.Count()).
				Msg("Rate limited, using cached extremes")
			p.publishIfChanged(set)
			return ResultSkippedRateLimit, nil
		}
		// one-off override of the limiter: nothing usable to show
		log.Info().Int64("last_fetch", lastFetch).Msg("Rate limited but no usable cache, fetching anyway")
	}

	if p.network != nil && !p.network.Online() {
		log.Warn().Msg("Network unavailable, cannot fetch tides")
		return ResultNetworkError, newUpdateError(ResultNetworkError, errors.New("network unavailable"))
	}

	window := fetch.FetchWindow(now, p.historyHours, horizonHours)
	set, _, err := p.fetcher.Fetch(ctx, window, now)
	if err != nil {
		result := classify(err)
		log.Error().Err(err).Str("result", result.String()).Msg("Tide fetch failed")
		return result, newUpdateError(result, err)
	}

	p.gate.RecordSuccess(ctx, now)
	if err := p.store.Save(ctx, set); err != nil {
		log.Warn().Err(err).Msg("Failed to persist tide cache")
	}

	p.snapshot.publish(set)
	log.Info().
		Int("extremes", set.Count()).
		Int64("first", set.First().TimeUTC).
		Int64("last", set.Last().TimeUTC).
		Msg("Tide extremes updated")

	return ResultOK, nil
}

func (p *Pipeline) loadCache(ctx context.Context) (*models.ExtremaSet, bool) {
	set, err := p.store.Load(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("No usable tide cache")
		return nil, false
	}
	if !set.Sufficient() {
		log.Debug().Int("extremes", set.Count()).Msg("Tide cache has too few extremes")
		return nil, false
	}
	return set, true
}

// RestoreCache publishes the stored set if it is usable and reports whether
// readers now have a set to draw.
func (p *Pipeline) RestoreCache(ctx context.Context) bool {
	set, ok := p.loadCache(ctx)
	if !ok {
		return false
	}
	p.publishIfChanged(set)
	return true
}

// publishIfChanged avoids waking readers for the same cached set every cycle.
func (p *Pipeline) publishIfChanged(set *models.ExtremaSet) {
	current, _ := p.snapshot.Latest()
	if current.Equal(set) {
		return
	}
	p.snapshot.publish(set)
}

func classify(err error) UpdateResult {
	switch {
	case fetch.IsHTTP(err):
		return ResultHTTPError
	case fetch.IsParse(err):
		return ResultParseError
	default:
		return ResultNetworkError
	}
}

// Latest returns the most recent published set, or nil.
func (p *Pipeline) Latest() *models.ExtremaSet {
	set, _ := p.snapshot.Latest()
	return set
}

// TakeDirtyFlag reports, once per publication, that a new curve is available.
func (p *Pipeline) TakeDirtyFlag() bool {
	return p.snapshot.TakeDirtyFlag()
}

// GetTideCurve resamples the latest set into at most maxSamples heights. See
// Resample for how the sample count can be reduced. The caller owns the
// returned curve.
func (p *Pipeline) GetTideCurve(maxSamples int) (*models.SampleCurve, error) {
	set, version := p.snapshot.Latest()
	if version == 0 {
		return nil, ErrNoData
	}

	if p.curves != nil {
		if curve, ok := p.curves.Get(version, maxSamples); ok {
			return copyCurve(curve), nil
		}
	}

	curve, err := Resample(set, maxSamples)
	if err != nil {
		return nil, err
	}
	if p.curves != nil {
		p.curves.Add(version, maxSamples, curve)
	}
	return copyCurve(curve), nil
}

// PhaseNow evaluates Phase on the latest set at the current time.
func (p *Pipeline) PhaseNow() float64 {
	return Phase(p.Latest(), p.clock.Now().Unix())
}

func (p *Pipeline) TrendNow() models.TideType {
	return Trend(p.Latest(), p.clock.Now().Unix())
}

func copyCurve(c *models.SampleCurve) *models.SampleCurve {
	out := *c
	out.Heights = append([]float64(nil), c.Heights...)
	return &out
}
