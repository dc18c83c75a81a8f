// Command genmock reads the JHU CSSE global time-series CSVs and generates an
// observation fixture for the ingestion and training test suites. Each row is
// round-tripped through the ingestion parser so the fixture matches what the
// pipeline accepts.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -confirmed time_series_covid19_confirmed_global.csv \
//	  -deaths time_series_covid19_deaths_global.csv \
//	  -recovered time_series_covid19_recovered_global.csv \
//	  -countries "Italy;Korea, South" \
//	  -from 2020-02-21 -to 2020-03-10 \
//	  -out data/mock/observations_200221.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/jhu"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	confirmedPath := flag.String("confirmed", "", "JHU confirmed time-series CSV (required)")
	deathsPath := flag.String("deaths", "", "JHU deaths time-series CSV")
	recoveredPath := flag.String("recovered", "", "JHU recovered time-series CSV")
	countries := flag.String("countries", "", "semicolon-separated Country/Region names (default: all)")
	fromFlag := flag.String("from", "", "first date to keep (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "last date to keep (YYYY-MM-DD)")
	out := flag.String("out", "", "output path for the JSON fixture (required)")
	flag.Parse()

	if *confirmedPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -confirmed, -out")
	}

	from, err := optionalDate(*fromFlag)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	to, err := optionalDate(*toFlag)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	confirmed, err := readSeries(*confirmedPath)
	if err != nil {
		return err
	}
	deaths, err := readOptionalSeries(*deathsPath)
	if err != nil {
		return err
	}
	recovered, err := readOptionalSeries(*recoveredPath)
	if err != nil {
		return err
	}

	names := confirmed.Countries()
	if *countries != "" {
		names = splitCountries(*countries)
	}

	observations, err := jhu.Observations(confirmed, deaths, recovered, names, from, to)
	if err != nil {
		return err
	}
	if err := roundTrip(observations); err != nil {
		return err
	}

	if err := writeJSON(*out, observations); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d observations for %d countries: %s", len(observations), len(names), *out)
	return nil
}

func readSeries(path string) (jhu.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return jhu.Series{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	s, err := jhu.ReadWide(f)
	if err != nil {
		return jhu.Series{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	log.Printf("%s: %d countries, %d days", filepath.Base(path), len(s.Counts), len(s.Dates))
	return s, nil
}

func readOptionalSeries(path string) (*jhu.Series, error) {
	if path == "" {
		return nil, nil
	}
	s, err := readSeries(path)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// roundTrip re-parses every observation the way the ingestor would.
func roundTrip(observations []domain.Observation) error {
	for i, obs := range observations {
		payload, err := json.Marshal(obs)
		if err != nil {
			return fmt.Errorf("marshal observation %d: %w", i, err)
		}
		parsed, err := domain.ParseObservation(domain.RawEvent{Key: []byte(obs.EntityID), Value: payload})
		if err != nil {
			return fmt.Errorf("observation %d (%s): %w", i, obs.EntityID, err)
		}
		if !parsed.Timestamp.Equal(obs.Timestamp) || parsed.Confirmed != obs.Confirmed ||
			parsed.Deaths != obs.Deaths || parsed.Recovered != obs.Recovered {
			return fmt.Errorf("observation %d (%s) changed on re-parse", i, obs.EntityID)
		}
	}
	return nil
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func splitCountries(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
