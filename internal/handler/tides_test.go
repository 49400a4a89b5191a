package handler

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/flowebb/tideclock/internal/api"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/bbernstein/flowebb/tideclock/internal/tide"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"testing"
)

type mockPipeline struct {
	updateFunc   func(ctx context.Context, horizonHours int) (tide.UpdateResult, error)
	curveFunc    func(maxSamples int) (*models.SampleCurve, error)
	latest       *models.ExtremaSet
	phase        float64
	trend        models.TideType
	gotHorizon   int
	gotMaxSample int
}

func (m *mockPipeline) Update(ctx context.Context, horizonHours int) (tide.UpdateResult, error) {
	m.gotHorizon = horizonHours
	if m.updateFunc != nil {
		return m.updateFunc(ctx, horizonHours)
	}
	return tide.ResultOK, nil
}

func (m *mockPipeline) GetTideCurve(maxSamples int) (*models.SampleCurve, error) {
	m.gotMaxSample = maxSamples
	if m.curveFunc != nil {
		return m.curveFunc(maxSamples)
	}
	return &models.SampleCurve{Heights: []float64{0, 1}, FirstSampleUTC: 1_700_000_000, StepSeconds: 60}, nil
}

func (m *mockPipeline) Latest() *models.ExtremaSet {
	return m.latest
}

func (m *mockPipeline) PhaseNow() float64 {
	return m.phase
}

func (m *mockPipeline) TrendNow() models.TideType {
	return m.trend
}

func testSet() *models.ExtremaSet {
	return &models.ExtremaSet{
		FetchedAtUTC: 1_700_000_000,
		Extremes: []models.TideExtreme{
			{TimeUTC: 1_700_000_000, Height: -0.2},
			{TimeUTC: 1_700_022_000, Height: 1.9, IsHigh: true},
		},
	}
}

func TestTidesHandler(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]string
		pipeline   *mockPipeline
		wantStatus int
		wantResult string
		wantSample int
	}{
		{
			name:       "fresh data",
			params:     map[string]string{},
			pipeline:   &mockPipeline{latest: testSet(), phase: 0.4, trend: models.TideTypeRising},
			wantStatus: http.StatusOK,
			wantResult: "ok",
			wantSample: 96,
		},
		{
			name:   "rate limited uses cache",
			params: map[string]string{"samples": "48"},
			pipeline: &mockPipeline{
				latest: testSet(),
				updateFunc: func(ctx context.Context, horizonHours int) (tide.UpdateResult, error) {
					return tide.ResultSkippedRateLimit, nil
				},
			},
			wantStatus: http.StatusOK,
			wantResult: "skipped_rate_limit",
			wantSample: 48,
		},
		{
			name:   "failed update with older data",
			params: map[string]string{},
			pipeline: &mockPipeline{
				latest: testSet(),
				updateFunc: func(ctx context.Context, horizonHours int) (tide.UpdateResult, error) {
					return tide.ResultHTTPError, errors.New("status 500")
				},
			},
			wantStatus: http.StatusOK,
			wantResult: "http_error",
			wantSample: 96,
		},
		{
			name:   "no data",
			params: map[string]string{},
			pipeline: &mockPipeline{
				updateFunc: func(ctx context.Context, horizonHours int) (tide.UpdateResult, error) {
					return tide.ResultNetworkError, errors.New("offline")
				},
				curveFunc: func(maxSamples int) (*models.SampleCurve, error) {
					return nil, tide.ErrNoData
				},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantResult: "network_error",
			wantSample: 96,
		},
		{
			name:   "resample failure",
			params: map[string]string{},
			pipeline: &mockPipeline{
				curveFunc: func(maxSamples int) (*models.SampleCurve, error) {
					return nil, tide.ErrNonPositiveSpan
				},
			},
			wantStatus: http.StatusInternalServerError,
			wantResult: "ok",
			wantSample: 96,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTidesHandler(tt.pipeline, 48, 96)

			resp, err := h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
				QueryStringParameters: tt.params,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, 48, tt.pipeline.gotHorizon)
			assert.Equal(t, tt.wantSample, tt.pipeline.gotMaxSample)

			var body struct {
				ResponseType string `json:"responseType"`
				Result       string `json:"result"`
			}
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
			assert.Equal(t, tt.wantResult, body.Result)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "tides", body.ResponseType)
			} else {
				assert.Equal(t, "error", body.ResponseType)
			}
		})
	}
}

func TestTidesHandlerBody(t *testing.T) {
	p := &mockPipeline{latest: testSet(), phase: 0.75, trend: models.TideTypeFalling}
	h := NewTidesHandler(p, 24, 96)

	resp, err := h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.TidesResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, 0.75, body.Phase)
	assert.Equal(t, models.TideTypeFalling, body.Trend)
	assert.Equal(t, int64(1_700_000_000), body.FetchedAtUTC)
	assert.Len(t, body.Extremes, 2)
	require.NotNil(t, body.Curve)
	assert.Equal(t, []float64{0, 1}, body.Curve.Heights)
}

func TestTidesHandlerInvalidSamples(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{name: "not a number", params: map[string]string{"samples": "abc"}},
		{name: "out of range", params: map[string]string{"samples": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPipeline{}
			h := NewTidesHandler(p, 48, 96)

			resp, err := h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
				QueryStringParameters: tt.params,
			})
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			// nothing fetched for a bad request
			assert.Zero(t, p.gotHorizon)
		})
	}
}
