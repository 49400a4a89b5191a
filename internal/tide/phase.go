package tide

import (
	"github.com/bbernstein/flowebb/tideclock/internal/models"
)

// bracket finds the latest extreme at or before now and the earliest one after it.
func bracket(set *models.ExtremaSet, now int64) (prev, next *models.TideExtreme) {
	for i := range set.Extremes {
		e := &set.Extremes[i]
		if e.TimeUTC <= now {
			prev = e
			continue
		}
		next = e
		break
	}
	return prev, next
}

// Phase returns the position in the tidal cycle at now: 0 at low water, 1 at
// high water. It is 0 when the set is insufficient or now lies outside the
// span covered by the set.
func Phase(set *models.ExtremaSet, now int64) float64 {
	if !set.Sufficient() {
		return 0
	}

	prev, next := bracket(set, now)
	if prev == nil || next == nil {
		return 0
	}

	total := float64(next.TimeUTC - prev.TimeUTC)
	if total <= 0 {
		return 0
	}

	t := float64(now-prev.TimeUTC) / total

	// falling tide: flip so 0 is always low water
	if prev.IsHigh && !next.IsHigh {
		t = 1 - t
	}

	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t
}

// Trend reports whether the tide is rising or falling at now. At the exact
// time of an extreme it reports that extreme's type. Outside the covered span
// it returns an empty TideType.
func Trend(set *models.ExtremaSet, now int64) models.TideType {
	if !set.Sufficient() {
		return ""
	}

	prev, next := bracket(set, now)
	if prev != nil && prev.TimeUTC == now {
		return prev.Type()
	}
	if prev == nil || next == nil {
		return ""
	}

	if next.Height >= prev.Height {
		return models.TideTypeRising
	}
	return models.TideTypeFalling
}
