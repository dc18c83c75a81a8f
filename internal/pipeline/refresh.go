package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// SeriesFetcher pulls a full observation series from an external provider.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, entityID string) ([]domain.Observation, error)
}

// SeriesReplacer swaps an entity's stored series.
type SeriesReplacer interface {
	Replace(entityID string, observations []domain.Observation) error
}

// Refresher reloads entity series from the provider into the store.
type Refresher struct {
	fetcher SeriesFetcher
	store   SeriesReplacer
	logger  *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(fetcher SeriesFetcher, store SeriesReplacer, logger *slog.Logger) *Refresher {
	return &Refresher{fetcher: fetcher, store: store, logger: logger}
}

// Refresh replaces entityID's stored series with the provider's copy and
// returns the number of observations stored. The store is left unchanged
// when the fetch or validation fails.
func (r *Refresher) Refresh(ctx context.Context, entityID string) (int, error) {
	observations, err := r.fetcher.FetchSeries(ctx, entityID)
	if err != nil {
		return 0, fmt.Errorf("refresh %s: %w", entityID, err)
	}
	if err := r.store.Replace(entityID, observations); err != nil {
		return 0, fmt.Errorf("refresh %s: %w", entityID, err)
	}
	r.logger.Info("series refreshed", "entity_id", entityID, "observations", len(observations))
	return len(observations), nil
}
