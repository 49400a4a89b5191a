package handler

import (
	"context"
	"errors"
	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/flowebb/tideclock/internal/api"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/bbernstein/flowebb/tideclock/internal/tide"
	"github.com/rs/zerolog/log"
	"net/http"
)

// TidePipeline is the part of tide.Pipeline the handler uses
type TidePipeline interface {
	Update(ctx context.Context, horizonHours int) (tide.UpdateResult, error)
	GetTideCurve(maxSamples int) (*models.SampleCurve, error)
	Latest() *models.ExtremaSet
	PhaseNow() float64
	TrendNow() models.TideType
}

type TidesHandler struct {
	pipeline       TidePipeline
	horizonHours   int
	defaultSamples int
}

func NewTidesHandler(pipeline TidePipeline, horizonHours, defaultSamples int) *TidesHandler {
	return &TidesHandler{
		pipeline:       pipeline,
		horizonHours:   horizonHours,
		defaultSamples: defaultSamples,
	}
}

// HandleRequest runs one pipeline update and answers with the latest curve.
// A failed update still answers 200 when an older set is available.
func (h *TidesHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	samples, err := api.ParseSamples(request.QueryStringParameters, h.defaultSamples)
	if err != nil {
		var samplesErr api.InvalidSamplesError
		if errors.As(err, &samplesErr) {
			return api.Error(err.Error(), http.StatusBadRequest)
		}
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}

	result, err := h.pipeline.Update(ctx, h.horizonHours)
	if err != nil {
		log.Warn().Err(err).Str("result", result.String()).Msg("Tide update did not produce new data")
	}

	curve, err := h.pipeline.GetTideCurve(samples)
	if err != nil {
		if errors.Is(err, tide.ErrNoData) {
			return api.ErrorWithResult("No tide data available", result.String(), http.StatusServiceUnavailable)
		}
		log.Error().Err(err).Int("samples", samples).Msg("Error building tide curve")
		return api.ErrorWithResult("Error building tide curve", result.String(), http.StatusInternalServerError)
	}

	return api.Success(api.NewTidesResponse(
		result.String(),
		h.pipeline.Latest(),
		curve,
		h.pipeline.PhaseNow(),
		h.pipeline.TrendNow(),
	))
}
