package models

import (
	"fmt"
)

type TideType string

const (
	TideTypeRising  TideType = "RISING"
	TideTypeFalling TideType = "FALLING"
	TideTypeHigh    TideType = "HIGH"
	TideTypeLow     TideType = "LOW"
)

// MaxExtremes is the number of extremes an ExtremaSet can hold.
const MaxExtremes = 16

// TideExtreme represents a high or low tide
type TideExtreme struct {
	TimeUTC int64   `json:"timeUtc" dynamodbav:"timeUtc"` // unix seconds
	Height  float64 `json:"height" dynamodbav:"height"`   // metres, datum relative
	IsHigh  bool    `json:"isHigh" dynamodbav:"isHigh"`
}

// Type reports the extreme as HIGH or LOW
func (e TideExtreme) Type() TideType {
	if e.IsHigh {
		return TideTypeHigh
	}
	return TideTypeLow
}

// ExtremaSet is a bounded, time ordered collection of extremes from one fetch.
// Once published a set is never mutated; updates replace it wholesale.
type ExtremaSet struct {
	Extremes     []TideExtreme `json:"extremes"`
	FetchedAtUTC int64         `json:"fetchedAtUtc"` // 0 = never
}

func NewExtremaSet(fetchedAtUTC int64) *ExtremaSet {
	return &ExtremaSet{
		Extremes:     make([]TideExtreme, 0, MaxExtremes),
		FetchedAtUTC: fetchedAtUTC,
	}
}

func (s *ExtremaSet) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Extremes)
}

// Sufficient reports whether the set holds enough points to describe a curve.
func (s *ExtremaSet) Sufficient() bool {
	return s.Count() >= 2
}

// Append adds e and returns false once the set is at capacity.
func (s *ExtremaSet) Append(e TideExtreme) bool {
	if len(s.Extremes) >= MaxExtremes {
		return false
	}
	s.Extremes = append(s.Extremes, e)
	return true
}

func (s *ExtremaSet) First() TideExtreme {
	return s.Extremes[0]
}

func (s *ExtremaSet) Last() TideExtreme {
	return s.Extremes[len(s.Extremes)-1]
}

// Clone returns a deep copy
func (s *ExtremaSet) Clone() *ExtremaSet {
	if s == nil {
		return nil
	}
	out := NewExtremaSet(s.FetchedAtUTC)
	out.Extremes = append(out.Extremes, s.Extremes...)
	return out
}

// Equal compares fetch time and every entry in order.
func (s *ExtremaSet) Equal(other *ExtremaSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.FetchedAtUTC != other.FetchedAtUTC || len(s.Extremes) != len(other.Extremes) {
		return false
	}
	for i := range s.Extremes {
		if s.Extremes[i] != other.Extremes[i] {
			return false
		}
	}
	return true
}

// Validate checks if an ExtremaSet's fields are valid
func (s *ExtremaSet) Validate() error {
	if len(s.Extremes) > MaxExtremes {
		return fmt.Errorf("too many extremes: %d > %d", len(s.Extremes), MaxExtremes)
	}
	if s.FetchedAtUTC < 0 {
		return fmt.Errorf("invalid fetch time: %d", s.FetchedAtUTC)
	}

	for i, e := range s.Extremes {
		if e.TimeUTC <= 0 {
			return fmt.Errorf("invalid timestamp at index %d: %d", i, e.TimeUTC)
		}
		if i > 0 && e.TimeUTC <= s.Extremes[i-1].TimeUTC {
			return fmt.Errorf("extreme at index %d is out of order", i)
		}
	}

	return nil
}

// SampleCurve is a regular time grid of heights starting at the first extreme.
type SampleCurve struct {
	Heights        []float64 `json:"heights"`
	FirstSampleUTC int64     `json:"firstSampleUtc"`
	StepSeconds    int64     `json:"stepSeconds"`
}

func (c *SampleCurve) Count() int {
	return len(c.Heights)
}

// TimeAt returns the instant of sample i
func (c *SampleCurve) TimeAt(i int) int64 {
	return c.FirstSampleUTC + int64(i)*c.StepSeconds
}

// LastSampleUTC returns the instant of the final sample
func (c *SampleCurve) LastSampleUTC() int64 {
	return c.TimeAt(len(c.Heights) - 1)
}
