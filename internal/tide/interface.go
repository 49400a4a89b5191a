// internal/tide/interface.go
package tide

import (
	"context"
	"github.com/bbernstein/flowebb/tideclock/internal/fetch"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"time"
)

// ExtremaStore persists the last good extrema set.
type ExtremaStore interface {
	Save(ctx context.Context, set *models.ExtremaSet) error
	Load(ctx context.Context) (*models.ExtremaSet, error)
}

// FetchGate decides whether the remote API may be called.
type FetchGate interface {
	CanFetch(ctx context.Context, now int64) (allowed bool, lastFetch int64)
	RecordSuccess(ctx context.Context, now int64)
}

type Fetcher interface {
	Fetch(ctx context.Context, window fetch.Window, now int64) (*models.ExtremaSet, *fetch.ParseStats, error)
}

// Network reports connectivity; owned by the host, not the pipeline.
type Network interface {
	Online() bool
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// CurveMemo caches resampled curves per snapshot version.
type CurveMemo interface {
	Get(version uint64, maxSamples int) (*models.SampleCurve, bool)
	Add(version uint64, maxSamples int, curve *models.SampleCurve)
}
