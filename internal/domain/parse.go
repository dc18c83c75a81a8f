package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// observationRecord is the wire shape of an observation on the source topic.
// Pointer fields distinguish a missing count from an explicit zero.
type observationRecord struct {
	EntityID  string `json:"entity_id"`
	Date      string `json:"date"`
	Confirmed *int64 `json:"confirmed"`
	Deaths    *int64 `json:"deaths"`
	Recovered *int64 `json:"recovered"`
}

// ParseObservation decodes and validates a raw message into an Observation.
// Rejections are *RecordError values that match ErrMalformedRecord.
func ParseObservation(raw RawEvent) (Observation, error) {
	var rec observationRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", &RecordError{Field: "body", Reason: err.Error()})
	}

	entityID := strings.TrimSpace(rec.EntityID)
	if entityID == "" {
		entityID = strings.TrimSpace(string(raw.Key))
	}
	if entityID == "" {
		return Observation{}, &RecordError{Field: "entity_id", Reason: "missing"}
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return Observation{}, &RecordError{Field: "date", Reason: err.Error()}
	}

	confirmed, err := count("confirmed", rec.Confirmed)
	if err != nil {
		return Observation{}, err
	}
	deaths, err := count("deaths", rec.Deaths)
	if err != nil {
		return Observation{}, err
	}
	recovered, err := count("recovered", rec.Recovered)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		EntityID:  entityID,
		Timestamp: date,
		Confirmed: confirmed,
		Deaths:    deaths,
		Recovered: recovered,
	}, nil
}

// ParseDate accepts a calendar date ("2006-01-02") or an RFC 3339 timestamp
// and returns the normalised date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	return NormalizeDate(t), nil
}

func count(field string, v *int64) (uint64, error) {
	if v == nil {
		return 0, &RecordError{Field: field, Reason: "missing"}
	}
	if *v < 0 {
		return 0, &RecordError{Field: field, Reason: fmt.Sprintf("negative value %d", *v)}
	}
	return uint64(*v), nil
}
