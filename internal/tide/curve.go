package tide

import (
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
	"math"
)

// MinStepSeconds is the finest spacing Resample will produce.
const MinStepSeconds = 60

// Resample builds a regular time grid of heights from the set's extremes by
// linear interpolation. The curve starts exactly at the first extreme.
//
// maxSamples is an upper bound, not a promise: when the span is too short to
// fit maxSamples at one minute spacing the count is reduced so that samples
// are never closer than MinStepSeconds, and it is capped so the final sample
// lies at most one step past the last extreme.
func Resample(set *models.ExtremaSet, maxSamples int) (*models.SampleCurve, error) {
	if set.Count() < 2 {
		return nil, fmt.Errorf("%w: %d extremes", ErrInvalidInput, set.Count())
	}
	if maxSamples < 2 {
		return nil, fmt.Errorf("%w: maxSamples=%d", ErrInvalidInput, maxSamples)
	}

	extremes := set.Extremes
	first := extremes[0].TimeUTC
	last := extremes[len(extremes)-1].TimeUTC
	if last <= first {
		return nil, fmt.Errorf("%w: first=%d last=%d", ErrNonPositiveSpan, first, last)
	}

	span := float64(last - first)
	count := maxSamples
	rawStep := span / float64(count-1)
	if rawStep < MinStepSeconds {
		count = int(span/MinStepSeconds) + 1
		if count < 2 {
			count = 2
		}
		rawStep = span / float64(count-1)
	}

	step := int64(math.Round(rawStep))
	if step < MinStepSeconds {
		// only reachable for spans shorter than a minute
		step = MinStepSeconds
	}

	// rounding the step up can push the tail past the last extreme
	if limit := int((last-first)/step) + 2; count > limit {
		count = limit
	}

	curve := &models.SampleCurve{
		Heights:        make([]float64, count),
		FirstSampleUTC: first,
		StepSeconds:    step,
	}

	seg := 0
	for i := 0; i < count; i++ {
		t := first + int64(i)*step

		for seg+1 < len(extremes) && extremes[seg+1].TimeUTC < t {
			seg++
		}

		e0 := extremes[seg]
		e1 := e0
		if seg+1 < len(extremes) {
			e1 = extremes[seg+1]
		}

		curve.Heights[i] = interpolate(e0, e1, t)
	}

	log.Trace().
		Float64("span_seconds", span).
		Int64("step_seconds", step).
		Int("samples", count).
		Msg("Resampled tide curve")

	return curve, nil
}

func interpolate(e0, e1 models.TideExtreme, t int64) float64 {
	if e1.TimeUTC == e0.TimeUTC {
		return e0.Height
	}

	f := float64(t-e0.TimeUTC) / float64(e1.TimeUTC-e0.TimeUTC)
	f = math.Max(0, math.Min(1, f))
	return e0.Height + f*(e1.Height-e0.Height)
}
