package domain

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// NormalizeDate truncates t to midnight UTC of the calendar date it carries
// in its own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from one date to another.
func DaysBetween(from, to time.Time) int {
	return int(NormalizeDate(to).Sub(NormalizeDate(from)) / day)
}

// Derive converts an entity's observations into feature vectors whose offset
// is the number of days since the first observation. At least two
// observations are required. Equal timestamps are passed through so the
// trend model can reject them as degenerate; decreasing timestamps and mixed
// entities are invalid.
func Derive(observations []Observation) ([]FeatureVector, error) {
	if len(observations) < 2 {
		return nil, fmt.Errorf("derive features from %d observation(s): %w", len(observations), ErrInsufficientData)
	}

	first := observations[0]
	features := make([]FeatureVector, 0, len(observations))
	prev := 0
	for i, obs := range observations {
		if obs.EntityID != first.EntityID {
			return nil, fmt.Errorf("derive features: observation %d belongs to %q, want %q: %w",
				i, obs.EntityID, first.EntityID, ErrInvalidArgument)
		}
		offset := DaysBetween(first.Timestamp, obs.Timestamp)
		if offset < prev {
			return nil, fmt.Errorf("derive features: observation %d precedes its predecessor: %w", i, ErrInvalidArgument)
		}
		prev = offset
		features = append(features, FeatureVector{
			EntityID:   obs.EntityID,
			OffsetDays: offset,
			Confirmed:  float64(obs.Confirmed),
		})
	}
	return features, nil
}
