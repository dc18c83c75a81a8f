// Package jhu reads the JHU CSSE global time-series CSVs, where each row is a
// province or country and each date is a column of cumulative counts.
package jhu

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// headerDateLayout is the m/d/yy format used for the date columns.
const headerDateLayout = "1/2/06"

const (
	colProvince = "Province/State"
	colCountry  = "Country/Region"
)

// Series holds one metric's cumulative counts per country and day.
type Series struct {
	Dates  []time.Time
	Counts map[string][]uint64
}

// ReadWide parses a wide time-series CSV, summing provinces into their
// country.
func ReadWide(r io.Reader) (Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Series{}, fmt.Errorf("read header: %w", err)
	}

	countryIdx := -1
	firstDate := -1
	var dates []time.Time
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == colCountry {
			countryIdx = i
			continue
		}
		if d, err := time.Parse(headerDateLayout, h); err == nil {
			if firstDate < 0 {
				firstDate = i
			}
			dates = append(dates, d)
		}
	}
	if countryIdx < 0 {
		return Series{}, fmt.Errorf("missing %q column", colCountry)
	}
	if firstDate < 0 {
		return Series{}, errors.New("no date columns")
	}

	series := Series{Dates: dates, Counts: make(map[string][]uint64)}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < firstDate+len(dates) {
			return Series{}, fmt.Errorf("line %d: expected %d columns, got %d", line, firstDate+len(dates), len(row))
		}

		country := strings.TrimSpace(row[countryIdx])
		counts, ok := series.Counts[country]
		if !ok {
			counts = make([]uint64, len(dates))
			series.Counts[country] = counts
		}
		for i := range dates {
			raw := strings.TrimSpace(row[firstDate+i])
			if raw == "" {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 0 {
				return Series{}, fmt.Errorf("line %d, %s: %w", line, dates[i].Format(time.DateOnly),
					&domain.RecordError{Field: "count", Reason: fmt.Sprintf("invalid value %q", raw)})
			}
			counts[i] += uint64(n)
		}
	}
	return series, nil
}

// Countries lists the countries present in the series in lexical order.
func (s Series) Countries() []string {
	out := make([]string, 0, len(s.Counts))
	for c := range s.Counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Observations joins the confirmed series with optional deaths and recovered
// series into per-country observations, starting at each country's first
// day with a confirmed case. Days outside [from, to] are dropped; a zero
// bound is open.
func Observations(confirmed Series, deaths, recovered *Series, countries []string, from, to time.Time) ([]domain.Observation, error) {
	var out []domain.Observation
	for _, country := range countries {
		counts, ok := confirmed.Counts[country]
		if !ok {
			return nil, fmt.Errorf("country %q: %w", country, domain.ErrNotFound)
		}
		started := false
		for i, date := range confirmed.Dates {
			if counts[i] > 0 {
				started = true
			}
			if !started || (!from.IsZero() && date.Before(from)) || (!to.IsZero() && date.After(to)) {
				continue
			}
			out = append(out, domain.Observation{
				EntityID:  country,
				Timestamp: date,
				Confirmed: counts[i],
				Deaths:    lookup(deaths, country, date),
				Recovered: lookup(recovered, country, date),
			})
		}
	}
	return out, nil
}

func lookup(s *Series, country string, date time.Time) uint64 {
	if s == nil {
		return 0
	}
	counts, ok := s.Counts[country]
	if !ok {
		return 0
	}
	i := sort.Search(len(s.Dates), func(i int) bool { return !s.Dates[i].Before(date) })
	if i < len(s.Dates) && s.Dates[i].Equal(date) {
		return counts[i]
	}
	return 0
}
