package tide

import (
	"errors"
)

var (
	// ErrInvalidInput is returned by Resample for sets with fewer than two
	// extremes or a sample budget below two.
	ErrInvalidInput = errors.New("invalid resample input")

	// ErrNonPositiveSpan is returned by Resample when the last extreme is not
	// after the first one.
	ErrNonPositiveSpan = errors.New("extrema span is not positive")

	// ErrNoData is returned by GetTideCurve before any set has been published.
	ErrNoData = errors.New("no tide data available")
)

// UpdateResult is the outcome of one Pipeline.Update call
type UpdateResult int

const (
	ResultOK UpdateResult = iota
	ResultSkippedRateLimit
	ResultTimeNotReady
	ResultNetworkError
	ResultHTTPError
	ResultParseError
)

func (r UpdateResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultSkippedRateLimit:
		return "skipped_rate_limit"
	case ResultTimeNotReady:
		return "time_not_ready"
	case ResultNetworkError:
		return "network_error"
	case ResultHTTPError:
		return "http_error"
	case ResultParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// HasData reports whether the result leaves a usable set in the snapshot.
func (r UpdateResult) HasData() bool {
	return r == ResultOK || r == ResultSkippedRateLimit
}

// UpdateError carries the failed result together with its cause
type UpdateError struct {
	Result UpdateResult
	Err    error
}

func (e *UpdateError) Error() string {
	if e.Err != nil {
		return "tide update " + e.Result.String() + ": " + e.Err.Error()
	}
	return "tide update " + e.Result.String()
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

func newUpdateError(result UpdateResult, err error) *UpdateError {
	return &UpdateError{
		Result: result,
		Err:    err,
	}
}
