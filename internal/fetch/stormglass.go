package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/bbernstein/flowebb/tideclock/pkg/http/client"
	"github.com/rs/zerolog/log"
	"net/http"
	"time"
)

const (
	DefaultBaseURL      = "https://api.stormglass.io"
	DefaultHistoryHours = 12
	extremesPath        = "/v2/tide/extremes/point"
	defaultDatum        = "MSL"
	isoLocalLayout      = "2006-01-02T15:04:05"
)

// Window is the closed interval of unix seconds requested from the API.
type Window struct {
	Start int64
	End   int64
}

// FetchWindow covers historyHours before now and horizonHours after it. The
// start never precedes the clock validity cutoff.
func FetchWindow(now int64, historyHours, horizonHours int) Window {
	start := now - int64(historyHours)*3600
	if start < models.ClockValidCutoff {
		start = models.ClockValidCutoff
	}
	return Window{
		Start: start,
		End:   now + int64(horizonHours)*3600,
	}
}

// ParseStats counts records dropped while parsing a response, by reason.
type ParseStats struct {
	Records              int
	Accepted             int
	SkippedMissingFields int
	SkippedBadTime       int
	SkippedBadType       int
	SkippedMalformed     int
	SkippedOutOfOrder    int
	DroppedOverCapacity  int
}

func (s *ParseStats) Skipped() int {
	return s.SkippedMissingFields + s.SkippedBadTime + s.SkippedBadType +
		s.SkippedMalformed + s.SkippedOutOfOrder
}

type StormglassFetcher struct {
	httpClient client.Interface
	lat        float64
	lng        float64
	datum      string
}

// NewStormglassFetcher expects httpClient to carry the Authorization header.
func NewStormglassFetcher(httpClient client.Interface, lat, lng float64) *StormglassFetcher {
	return &StormglassFetcher{
		httpClient: httpClient,
		lat:        lat,
		lng:        lng,
		datum:      defaultDatum,
	}
}

func (f *StormglassFetcher) requestPath(w Window) string {
	return fmt.Sprintf("%s?lat=%.6f&lng=%.6f&start=%d&end=%d&datum=%s",
		extremesPath, f.lat, f.lng, w.Start, w.End, f.datum)
}

// Fetch requests the extremes inside w. The returned set is stamped with now.
func (f *StormglassFetcher) Fetch(ctx context.Context, w Window, now int64) (*models.ExtremaSet, *ParseStats, error) {
	path := f.requestPath(w)
	log.Debug().Str("path", path).Msg("Requesting tide extremes")

	resp, err := f.httpClient.Get(ctx, path)
	if err != nil {
		return nil, nil, NewNetworkError("requesting extremes", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("payload_bytes", len(resp.Body)).
		Msg("Tide API responded")

	if resp.StatusCode != http.StatusOK {
		return nil, nil, NewHTTPError(resp.StatusCode)
	}

	set, stats, err := ParseExtremes(resp.Body, now)
	if stats != nil {
		log.Info().
			Int("accepted", stats.Accepted).
			Int("missing_fields", stats.SkippedMissingFields).
			Int("bad_time", stats.SkippedBadTime).
			Int("bad_type", stats.SkippedBadType).
			Int("malformed", stats.SkippedMalformed).
			Int("out_of_order", stats.SkippedOutOfOrder).
			Int("over_capacity", stats.DroppedOverCapacity).
			Msg("Parsed tide extremes")
	}
	if err != nil {
		return nil, stats, err
	}
	return set, stats, nil
}

type extremesResponse struct {
	Data []json.RawMessage `json:"data"`
}

type extremeRecord struct {
	Type   *string  `json:"type"`
	Time   *string  `json:"time"`
	Height *float64 `json:"height"`
}

// ParseExtremes decodes an extremes payload. Bad records are skipped one by
// one and counted; only an unreadable body or fewer than two good records
// fail the whole parse. Records past MaxExtremes are dropped, so for a
// chronological payload only the earliest MaxExtremes are kept.
func ParseExtremes(body []byte, now int64) (*models.ExtremaSet, *ParseStats, error) {
	var resp extremesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, NewParseError("decoding response", err)
	}
	if resp.Data == nil {
		return nil, nil, NewParseError("response has no data array", nil)
	}

	stats := &ParseStats{Records: len(resp.Data)}
	set := models.NewExtremaSet(now)

	for _, raw := range resp.Data {
		if set.Count() >= models.MaxExtremes {
			stats.DroppedOverCapacity++
			continue
		}

		var rec extremeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			stats.SkippedMalformed++
			continue
		}
		if rec.Type == nil || rec.Time == nil || rec.Height == nil {
			stats.SkippedMissingFields++
			continue
		}

		ts, err := parseUTC(*rec.Time)
		if err != nil {
			stats.SkippedBadTime++
			continue
		}

		var isHigh bool
		switch *rec.Type {
		case "high":
			isHigh = true
		case "low":
			isHigh = false
		default:
			stats.SkippedBadType++
			continue
		}

		if set.Count() > 0 && ts <= set.Last().TimeUTC {
			stats.SkippedOutOfOrder++
			continue
		}

		set.Append(models.TideExtreme{
			TimeUTC: ts,
			Height:  *rec.Height,
			IsHigh:  isHigh,
		})
	}
	stats.Accepted = set.Count()

	if !set.Sufficient() {
		return nil, stats, NewParseError(fmt.Sprintf("only %d usable extremes", set.Count()), nil)
	}
	return set, stats, nil
}

// parseUTC reads the leading YYYY-MM-DDTHH:MM:SS of an ISO-8601 string as UTC.
// Any fraction or zone suffix is ignored; the API reports UTC.
func parseUTC(s string) (int64, error) {
	if len(s) < len(isoLocalLayout) {
		return 0, fmt.Errorf("time %q too short", s)
	}
	t, err := time.ParseInLocation(isoLocalLayout, s[:len(isoLocalLayout)], time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parsing time %s: %w", s, err)
	}
	if t.Unix() <= 0 {
		return 0, fmt.Errorf("time %q is not after the epoch", s)
	}
	return t.Unix(), nil
}
