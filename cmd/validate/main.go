// Command validate performs data integrity checks on an observation fixture:
// every row must pass the ingestion parser, each entity's series must load
// into the record store in order, and every series must be trainable. When
// the source JHU CSV is given, counts are cross-checked against it.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture data/mock/observations_200221.json \
//	  -confirmed time_series_covid19_confirmed_global.csv
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/jhu"
	"github.com/couchcryptid/case-trend-service/internal/store"
	"github.com/couchcryptid/case-trend-service/internal/trend"
	"github.com/fatih/color"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixturePath := flag.String("fixture", "", "path to the observation JSON fixture")
	confirmedPath := flag.String("confirmed", "", "JHU confirmed time-series CSV to cross-check (optional)")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*fixturePath, *confirmedPath))
}

func run(fixturePath, confirmedPath string) int {
	fmt.Println("=== Observation Fixture Validation ===")
	fmt.Println()

	rows, err := loadRows(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	observations, parsePhase := validateSchema(rows)
	st, orderPhase := validateOrdering(observations)
	phases := []*phase{parsePhase, orderPhase, validateTrainability(st)}

	if confirmedPath != "" {
		f, err := os.Open(confirmedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: open source CSV: %v\n", err)
			return 1
		}
		series, err := jhu.ReadWide(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read source CSV: %v\n", err)
			return 1
		}
		phases = append(phases, validateSourceParity(observations, series))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := color.GreenString("PASS")
		if !p.passed() {
			status = color.RedString("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d fixture rows, %d entities\n", len(rows), len(st.Entities()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadRows keeps each row as raw JSON so the ingestion parser sees exactly
// what a producer would publish.
func loadRows(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ── Phase 1: Schema ──

func validateSchema(rows []json.RawMessage) ([]domain.Observation, *phase) {
	p := &phase{name: "Phase 1: Schema (ingestion parser)"}
	observations := make([]domain.Observation, 0, len(rows))
	for i, row := range rows {
		obs, err := domain.ParseObservation(domain.RawEvent{Value: row})
		if err != nil {
			p.errorf("row %d: %v", i, err)
			continue
		}
		observations = append(observations, obs)
	}
	return observations, p
}

// ── Phase 2: Ordering ──
// Rows are appended in fixture order, exactly as ingestion would.

func validateOrdering(observations []domain.Observation) (*store.Store, *phase) {
	p := &phase{name: "Phase 2: Ordering (record store)"}
	st := store.New()
	for i, obs := range observations {
		if err := st.Append(obs); err != nil {
			p.errorf("row %d: %v", i, err)
		}
	}
	return st, p
}

// ── Phase 3: Trainability ──

func validateTrainability(st *store.Store) *phase {
	p := &phase{name: "Phase 3: Trainability (derive + fit)"}
	for _, id := range st.Entities() {
		series, err := st.Load(id)
		if err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}
		features, err := domain.Derive(series)
		if err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}
		model, err := trend.Fit(features)
		if err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}
		if model.Slope() < 0 {
			fmt.Printf("  Note: %s has a negative trend (slope %.2f)\n", id, model.Slope())
		}
	}
	return p
}

// ── Phase 4: Source Parity ──

func validateSourceParity(observations []domain.Observation, confirmed jhu.Series) *phase {
	p := &phase{name: "Phase 4: Source Parity (JHU CSV)"}

	if len(observations) == 0 {
		p.errorf("fixture has no valid observations")
		return p
	}
	from, to := observations[0].Timestamp, observations[0].Timestamp
	for _, obs := range observations[1:] {
		if obs.Timestamp.Before(from) {
			from = obs.Timestamp
		}
		if obs.Timestamp.After(to) {
			to = obs.Timestamp
		}
	}

	expected, err := jhu.Observations(confirmed, nil, nil, entities(observations), from, to)
	if err != nil {
		p.errorf("build expected series: %v", err)
		return p
	}

	byKey := make(map[string]uint64, len(expected))
	for _, e := range expected {
		byKey[key(e)] = e.Confirmed
	}
	for _, obs := range observations {
		want, ok := byKey[key(obs)]
		if !ok {
			p.errorf("%s %s: not present in source CSV", obs.EntityID, obs.Timestamp.Format("2006-01-02"))
			continue
		}
		if want != obs.Confirmed {
			p.errorf("%s %s: confirmed %d, source has %d", obs.EntityID, obs.Timestamp.Format("2006-01-02"), obs.Confirmed, want)
		}
	}
	return p
}

func entities(observations []domain.Observation) []string {
	seen := map[string]bool{}
	var out []string
	for _, obs := range observations {
		if !seen[obs.EntityID] {
			seen[obs.EntityID] = true
			out = append(out, obs.EntityID)
		}
	}
	return out
}

func key(obs domain.Observation) string {
	return obs.EntityID + "|" + obs.Timestamp.Format("2006-01-02")
}
