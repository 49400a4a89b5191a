package cache

import (
	"errors"
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound means no cache has been written yet
	ErrNotFound = errors.New("tide cache not found")

	// ErrCorrupt means a cache exists but cannot be used
	ErrCorrupt = errors.New("tide cache corrupt")
)

// CorruptError describes why a stored record was rejected
type CorruptError struct {
	Message string
	Err     error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tide cache corrupt: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("tide cache corrupt: %s", e.Message)
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

func NewCorruptError(message string, err error) *CorruptError {
	return &CorruptError{
		Message: message,
		Err:     err,
	}
}

// ExtremaRecord is the persisted form of an ExtremaSet. Times are stored as
// uint32 unix seconds, matching the on-device file.
type ExtremaRecord struct {
	FetchedAtUTC uint32           `json:"fetchedAtUtc" dynamodbav:"fetchedAtUtc"`
	Extremes     []ExtremumRecord `json:"extremes" dynamodbav:"extremes"`
}

type ExtremumRecord struct {
	TimeUTC uint32  `json:"timeUtc" dynamodbav:"timeUtc"`
	Height  float64 `json:"height" dynamodbav:"height"`
	IsHigh  bool    `json:"isHigh" dynamodbav:"isHigh"`
}

// NewExtremaRecord converts set, keeping at most MaxExtremes entries.
func NewExtremaRecord(set *models.ExtremaSet) ExtremaRecord {
	n := set.Count()
	if n > models.MaxExtremes {
		n = models.MaxExtremes
	}

	record := ExtremaRecord{
		FetchedAtUTC: uint32(set.FetchedAtUTC),
		Extremes:     make([]ExtremumRecord, 0, n),
	}
	for _, e := range set.Extremes[:n] {
		record.Extremes = append(record.Extremes, ExtremumRecord{
			TimeUTC: uint32(e.TimeUTC),
			Height:  e.Height,
			IsHigh:  e.IsHigh,
		})
	}
	return record
}

// ToSet converts the record back. It returns a CorruptError instead of a
// partially filled set.
func (r *ExtremaRecord) ToSet() (*models.ExtremaSet, error) {
	if r.Extremes == nil {
		return nil, NewCorruptError("no extremes array", nil)
	}

	entries := r.Extremes
	if len(entries) > models.MaxExtremes {
		log.Warn().
			Int("stored", len(entries)).
			Int("capacity", models.MaxExtremes).
			Msg("Cached extremes exceed capacity, truncating")
		entries = entries[:models.MaxExtremes]
	}

	set := models.NewExtremaSet(int64(r.FetchedAtUTC))
	for _, e := range entries {
		set.Append(models.TideExtreme{
			TimeUTC: int64(e.TimeUTC),
			Height:  e.Height,
			IsHigh:  e.IsHigh,
		})
	}

	if err := set.Validate(); err != nil {
		return nil, NewCorruptError("invalid extremes", err)
	}
	return set, nil
}
