package api

import (
	"encoding/json"
	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"net/http"
	"strconv"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

// TidesResponse carries the display curve and the current tide state.
// Result is the outcome of the update that ran for this request.
type TidesResponse struct {
	APIResponse
	Result       string               `json:"result"`
	Curve        *models.SampleCurve  `json:"curve"`
	Extremes     []models.TideExtreme `json:"extremes"`
	Phase        float64              `json:"phase"`
	Trend        models.TideType      `json:"trend,omitempty"`
	FetchedAtUTC int64                `json:"fetchedAtUtc"`
}

type ErrorResponse struct {
	APIResponse
	Error  string `json:"error"`
	Result string `json:"result,omitempty"`
}

func NewTidesResponse(result string, set *models.ExtremaSet, curve *models.SampleCurve, phase float64, trend models.TideType) *TidesResponse {
	resp := &TidesResponse{
		APIResponse: APIResponse{ResponseType: "tides"},
		Result:      result,
		Curve:       curve,
		Extremes:    []models.TideExtreme{},
		Phase:       phase,
		Trend:       trend,
	}
	if set != nil {
		resp.Extremes = append(resp.Extremes, set.Extremes...)
		resp.FetchedAtUTC = set.FetchedAtUTC
	}
	return resp
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	return ErrorWithResult(message, "", statusCode)
}

// ErrorWithResult is Error with the update outcome attached
func ErrorWithResult(message, result string, statusCode int) (events.APIGatewayProxyResponse, error) {
	resp := NewErrorResponse(message)
	resp.Result = result
	body, _ := json.Marshal(resp)

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// MaxSamples bounds the curve resolution a client may ask for
const MaxSamples = 2000

// ParseSamples reads the optional "samples" parameter, returning def when absent.
func ParseSamples(params map[string]string, def int) (int, error) {
	str, ok := params["samples"]
	if !ok || str == "" {
		return def, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}
	if n < 2 || n > MaxSamples {
		return 0, InvalidSamplesError{Samples: n}
	}
	return n, nil
}

type InvalidSamplesError struct {
	Samples int
}

func (e InvalidSamplesError) Error() string {
	return "Invalid samples: must be between 2 and " + strconv.Itoa(MaxSamples)
}
