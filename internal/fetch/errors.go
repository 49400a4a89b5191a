package fetch

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNetwork Kind = iota
	KindHTTP
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// FetchError represents a failed call to the tide API
type FetchError struct {
	Kind       Kind
	StatusCode int // set for KindHTTP
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tide API %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("tide API %s error: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewNetworkError(message string, err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Message: message, Err: err}
}

func NewHTTPError(statusCode int) *FetchError {
	return &FetchError{
		Kind:       KindHTTP,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("unexpected status %d", statusCode),
	}
}

func NewParseError(message string, err error) *FetchError {
	return &FetchError{Kind: KindParse, Message: message, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func IsNetwork(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNetwork
}

func IsHTTP(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindHTTP
}

func IsParse(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindParse
}
