// Package query serves point predictions from persisted trend models.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/couchcryptid/case-trend-service/internal/trend"
)

// MaxForecastPoints bounds the number of offsets a single forecast may span.
const MaxForecastPoints = 366

// ModelLoader retrieves a trained model for an entity.
type ModelLoader interface {
	Load(ctx context.Context, entityID string) (domain.TrainedModel, error)
}

// Service answers prediction queries. It never trains; an entity without a
// persisted model is reported as domain.ErrNotFound.
type Service struct {
	models  ModelLoader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Service reading models from the given loader.
func New(models ModelLoader, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{models: models, logger: logger, metrics: metrics}
}

// Predict returns the fitted confirmed-case count for entityID at
// targetOffsetDays days after the entity's first observation.
func (s *Service) Predict(ctx context.Context, entityID string, targetOffsetDays int) (float64, error) {
	model, err := s.load(ctx, entityID, targetOffsetDays)
	if err != nil {
		return 0, err
	}
	value := trend.Predict(model, targetOffsetDays)
	s.metrics.Predictions.WithLabelValues("success").Inc()
	s.logger.Debug("prediction served", "entity_id", entityID, "offset_days", targetOffsetDays, "confirmed", value)
	return value, nil
}

// Forecast returns the fitted line at every offset in [from, to].
func (s *Service) Forecast(ctx context.Context, entityID string, from, to int) ([]domain.Point, error) {
	if from < 0 {
		s.metrics.Predictions.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("forecast: offset_days %d is negative: %w", from, domain.ErrInvalidArgument)
	}
	if to < from {
		s.metrics.Predictions.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("forecast range [%d, %d] is empty: %w", from, to, domain.ErrInvalidArgument)
	}
	// 0 <= from <= to, so to-from cannot overflow.
	if to-from >= MaxForecastPoints {
		s.metrics.Predictions.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("forecast range [%d, %d] exceeds %d points: %w", from, to, MaxForecastPoints, domain.ErrInvalidArgument)
	}

	model, err := s.load(ctx, entityID, from)
	if err != nil {
		return nil, err
	}
	n := to - from + 1
	points := make([]domain.Point, 0, n)
	for i := range n {
		offset := from + i
		points = append(points, domain.Point{OffsetDays: offset, Confirmed: trend.Predict(model, offset)})
	}
	s.metrics.Predictions.WithLabelValues("success").Inc()
	return points, nil
}

func (s *Service) load(ctx context.Context, entityID string, offset int) (domain.TrainedModel, error) {
	if strings.TrimSpace(entityID) == "" {
		s.metrics.Predictions.WithLabelValues("invalid").Inc()
		return domain.TrainedModel{}, fmt.Errorf("predict: empty entity id: %w", domain.ErrInvalidArgument)
	}
	if offset < 0 {
		s.metrics.Predictions.WithLabelValues("invalid").Inc()
		return domain.TrainedModel{}, fmt.Errorf("predict: offset_days %d is negative: %w", offset, domain.ErrInvalidArgument)
	}

	model, err := s.models.Load(ctx, entityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Predictions.WithLabelValues("not_found").Inc()
		} else {
			s.metrics.Predictions.WithLabelValues("error").Inc()
			s.logger.Error("model load failed", "entity_id", entityID, "error", err)
		}
		return domain.TrainedModel{}, err
	}
	return model, nil
}
