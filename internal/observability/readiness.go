package observability

import (
	"context"
	"fmt"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NamedChecker labels a readiness check so a failure names its component.
type NamedChecker struct {
	Name    string
	Checker sharedobs.ReadinessChecker
}

// Readiness is ready only when every component is. Checks run in order and
// the first failure is reported.
type Readiness []NamedChecker

// CheckReadiness implements sharedobs.ReadinessChecker.
func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.Checker.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}
