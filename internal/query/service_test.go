package query_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/couchcryptid/case-trend-service/internal/query"
	"github.com/couchcryptid/case-trend-service/internal/registry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLoader struct{ err error }

func (f failingLoader) Load(context.Context, string) (domain.TrainedModel, error) {
	return domain.TrainedModel{}, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) (*query.Service, *observability.Metrics) {
	t.Helper()
	reg := registry.NewMemory()
	require.NoError(t, reg.Save(context.Background(), domain.TrainedModel{
		EntityID:     "A",
		Coefficients: [2]float64{10, 10},
	}))
	metrics := observability.NewMetricsForTesting()
	return query.New(reg, discardLogger(), metrics), metrics
}

func TestPredict(t *testing.T) {
	svc, metrics := newService(t)

	got, err := svc.Predict(context.Background(), "A", 5)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, got, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions.WithLabelValues("success")))
}

func TestPredict_NegativeOffset(t *testing.T) {
	svc, metrics := newService(t)

	_, err := svc.Predict(context.Background(), "A", -1)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions.WithLabelValues("invalid")))
}

func TestPredict_EmptyEntity(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Predict(context.Background(), " ", 1)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPredict_Untrained(t *testing.T) {
	svc, metrics := newService(t)

	_, err := svc.Predict(context.Background(), "B", 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions.WithLabelValues("not_found")))
}

func TestPredict_LoaderError(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	svc := query.New(failingLoader{err: errors.New("redis down")}, discardLogger(), metrics)

	_, err := svc.Predict(context.Background(), "A", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions.WithLabelValues("error")))
}

func TestForecast(t *testing.T) {
	svc, _ := newService(t)

	points, err := svc.Forecast(context.Background(), "A", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{
		{OffsetDays: 2, Confirmed: 30},
		{OffsetDays: 3, Confirmed: 40},
		{OffsetDays: 4, Confirmed: 50},
	}, points)
}

func TestForecast_InvalidRanges(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Forecast(ctx, "A", 5, 4)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Forecast(ctx, "A", -1, 4)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Forecast(ctx, "A", 0, query.MaxForecastPoints)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Forecast(ctx, "A", 0, query.MaxForecastPoints-1)
	require.NoError(t, err)
}

func TestForecast_RangeArithmeticDoesNotOverflow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to int
		wantLen  int
	}{
		{name: "zero to max int", from: 0, to: math.MaxInt},
		{name: "one to max int", from: 1, to: math.MaxInt},
		{name: "min int to max int", from: math.MinInt, to: math.MaxInt},
		{name: "tail of int range", from: math.MaxInt - 1, to: math.MaxInt, wantLen: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				points []domain.Point
				err    error
			)
			require.NotPanics(t, func() { points, err = svc.Forecast(ctx, "A", tt.from, tt.to) })
			if tt.wantLen == 0 {
				require.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Len(t, points, tt.wantLen)
		})
	}
}
