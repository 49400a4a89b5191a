package fetch

import (
	"context"
	"errors"
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/bbernstein/flowebb/tideclock/pkg/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testNow int64 = 1_700_000_000

func newTestFetcher(c client.Interface) *StormglassFetcher {
	return NewStormglassFetcher(c, 41.5, -70.671234)
}

func recordJSON(typ string, ts time.Time, height float64) string {
	return fmt.Sprintf(`{"type":%q,"time":%q,"height":%v}`, typ, ts.UTC().Format(time.RFC3339), height)
}

func payload(records ...string) string {
	return `{"data":[` + strings.Join(records, ",") + `],"meta":{"datum":"MSL"}}`
}

func TestFetchWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		now       int64
		history   int
		horizon   int
		wantStart int64
		wantEnd   int64
	}{
		{
			name:      "history before now",
			now:       testNow,
			history:   12,
			horizon:   24,
			wantStart: testNow - 12*3600,
			wantEnd:   testNow + 24*3600,
		},
		{
			name:      "start clamped to clock cutoff",
			now:       models.ClockValidCutoff + 3600,
			history:   12,
			horizon:   6,
			wantStart: models.ClockValidCutoff,
			wantEnd:   models.ClockValidCutoff + 7*3600,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := FetchWindow(tt.now, tt.history, tt.horizon)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
		})
	}
}

func TestFetchBuildsRequest(t *testing.T) {
	t.Parallel()

	base := time.Unix(testNow, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/tide/extremes/point", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "41.500000", q.Get("lat"))
		assert.Equal(t, "-70.671234", q.Get("lng"))
		assert.Equal(t, "1699956800", q.Get("start"))
		assert.Equal(t, "1700086400", q.Get("end"))
		assert.Equal(t, "MSL", q.Get("datum"))
		assert.Equal(t, "api-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(payload(
			recordJSON("low", base, -0.4),
			recordJSON("high", base.Add(6*time.Hour), 1.2),
		)))
	}))
	defer server.Close()

	c := client.New(client.Options{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Headers: map[string]string{"Authorization": "api-key"},
	})

	set, stats, err := newTestFetcher(c).Fetch(context.Background(), FetchWindow(testNow, 12, 24), testNow)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, set.Count())
	assert.Equal(t, testNow, set.FetchedAtUTC)
	assert.Equal(t, testNow, set.Extremes[0].TimeUTC)
	assert.False(t, set.Extremes[0].IsHigh)
	assert.True(t, set.Extremes[1].IsHigh)
	assert.InDelta(t, 1.2, set.Extremes[1].Height, 1e-9)
}

func TestFetchErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		getFunc func(ctx context.Context, path string) (*client.Response, error)
		check   func(error) bool
	}{
		{
			name: "transport failure is a network error",
			getFunc: func(context.Context, string) (*client.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
			check: IsNetwork,
		},
		{
			name: "timeout is a network error",
			getFunc: func(context.Context, string) (*client.Response, error) {
				return nil, context.DeadlineExceeded
			},
			check: IsNetwork,
		},
		{
			name: "non-200 is an http error",
			getFunc: func(context.Context, string) (*client.Response, error) {
				return &client.Response{StatusCode: http.StatusPaymentRequired}, nil
			},
			check: IsHTTP,
		},
		{
			name: "invalid JSON is a parse error",
			getFunc: func(context.Context, string) (*client.Response, error) {
				return &client.Response{StatusCode: http.StatusOK, Body: []byte(`{"data":`)}, nil
			},
			check: IsParse,
		},
		{
			name: "missing data array is a parse error",
			getFunc: func(context.Context, string) (*client.Response, error) {
				return &client.Response{StatusCode: http.StatusOK, Body: []byte(`{"errors":{}}`)}, nil
			},
			check: IsParse,
		},
		{
			name: "single extreme is a parse error",
			getFunc: func(context.Context, string) (*client.Response, error) {
				body := payload(recordJSON("high", time.Unix(testNow, 0), 1))
				return &client.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
			},
			check: IsParse,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &client.Client{GetFunc: tt.getFunc}

			set, _, err := newTestFetcher(c).Fetch(context.Background(), FetchWindow(testNow, 12, 24), testNow)
			require.Error(t, err)
			assert.Nil(t, set)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
}

func TestFetchHTTPErrorKeepsStatus(t *testing.T) {
	c := &client.Client{GetFunc: func(context.Context, string) (*client.Response, error) {
		return &client.Response{StatusCode: http.StatusTooManyRequests}, nil
	}}

	_, _, err := newTestFetcher(c).Fetch(context.Background(), Window{}, testNow)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusTooManyRequests, fe.StatusCode)
	assert.Contains(t, err.Error(), "429")
}

func TestParseExtremesSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	base := time.Unix(testNow, 0)
	body := payload(
		recordJSON("low", base, -0.5),
		recordJSON("high", base.Add(6*time.Hour), 1.5),
		`{"type":"low","time":"2023-11-15T04:00:00+00:00"}`,
		recordJSON("low", base.Add(12*time.Hour), -0.3),
		`{"type":"high","time":"not-a-time","height":1.1}`,
		recordJSON("high", base.Add(18*time.Hour), 1.4),
		recordJSON("low", base.Add(24*time.Hour), -0.6),
	)

	set, stats, err := ParseExtremes([]byte(body), testNow)
	require.NoError(t, err)

	assert.Equal(t, 5, set.Count())
	assert.Equal(t, 1, stats.SkippedMissingFields)
	assert.Equal(t, 1, stats.SkippedBadTime)
	assert.Equal(t, 2, stats.Skipped())
	assert.Equal(t, 7, stats.Records)
	assert.Equal(t, 5, stats.Accepted)
	assert.NoError(t, set.Validate())
}

func TestParseExtremesOtherSkipReasons(t *testing.T) {
	t.Parallel()

	base := time.Unix(testNow, 0)
	body := payload(
		recordJSON("low", base, 0),
		`"just a string"`,
		`{"type":"high","time":"2023-11-14T22:13:20Z","height":"1.2"}`,
		recordJSON("slack", base.Add(3*time.Hour), 0.5),
		recordJSON("high", base.Add(6*time.Hour), 1),
		recordJSON("low", base.Add(2*time.Hour), 0),
		`{"type":"low","time":"2023-11","height":0}`,
	)

	set, stats, err := ParseExtremes([]byte(body), testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, set.Count())
	assert.Equal(t, 2, stats.SkippedMalformed)
	assert.Equal(t, 1, stats.SkippedBadType)
	assert.Equal(t, 1, stats.SkippedOutOfOrder)
	assert.Equal(t, 1, stats.SkippedBadTime)
}

func TestParseExtremesRejectsRepeatedTime(t *testing.T) {
	t.Parallel()

	base := time.Unix(testNow, 0)
	body := payload(
		recordJSON("low", base, -0.5),
		recordJSON("high", base.Add(6*time.Hour), 1.5),
		recordJSON("low", base.Add(6*time.Hour), -0.2),
		recordJSON("low", base.Add(12*time.Hour), -0.3),
	)

	set, stats, err := ParseExtremes([]byte(body), testNow)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Count())
	assert.Equal(t, 1, stats.SkippedOutOfOrder)
	assert.True(t, set.Extremes[1].IsHigh, "first record at a repeated time is kept")
	assert.NoError(t, set.Validate())
}

func TestParseExtremesCapacity(t *testing.T) {
	t.Parallel()

	base := time.Unix(testNow, 0)
	var records []string
	for i := 0; i < models.MaxExtremes+4; i++ {
		typ := "low"
		if i%2 == 1 {
			typ = "high"
		}
		records = append(records, recordJSON(typ, base.Add(time.Duration(i)*6*time.Hour), float64(i%2)))
	}

	set, stats, err := ParseExtremes([]byte(payload(records...)), testNow)
	require.NoError(t, err)

	assert.Equal(t, models.MaxExtremes, set.Count())
	assert.Equal(t, 4, stats.DroppedOverCapacity)
	// earliest extremes are the ones kept
	assert.Equal(t, testNow, set.First().TimeUTC)
	assert.Equal(t, base.Add(15*6*time.Hour).Unix(), set.Last().TimeUTC)
}

func TestParseUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "2023-11-14T22:13:20+00:00", want: 1_700_000_000},
		{in: "2023-11-14T22:13:20", want: 1_700_000_000},
		{in: "2023-11-14T22:13:20.000Z", want: 1_700_000_000},
		// offsets are not applied
		{in: "2023-11-14T22:13:20-05:00", want: 1_700_000_000},
		{in: "2023-11-14 22:13:20", wantErr: true},
		{in: "2023-13-14T22:13:20", wantErr: true},
		{in: "1970-01-01T00:00:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseUTC(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
