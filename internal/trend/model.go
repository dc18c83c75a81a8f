// Package trend fits and evaluates the univariate regression that maps a
// day offset to a confirmed case count.
package trend

import (
	"fmt"
	"math"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fit performs an ordinary least-squares fit of Confirmed on OffsetDays with
// an intercept. The returned model carries the entity of the first feature
// and the largest absolute training residual; FittedAt and RunID are left for
// the caller to stamp.
func Fit(features []domain.FeatureVector) (domain.TrainedModel, error) {
	if len(features) < 2 {
		return domain.TrainedModel{}, fmt.Errorf("fit %d sample(s): %w", len(features), domain.ErrInsufficientData)
	}

	xs, ys := columns(features)
	if v := stat.Variance(xs, nil); v == 0 || math.IsNaN(v) {
		return domain.TrainedModel{}, fmt.Errorf("fit: offset_days has zero variance: %w", domain.ErrDegenerateInput)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	if !finite(intercept) || !finite(slope) {
		return domain.TrainedModel{}, fmt.Errorf("fit: non-finite coefficients: %w", domain.ErrDegenerateInput)
	}

	model := domain.TrainedModel{
		EntityID:     features[0].EntityID,
		Coefficients: [2]float64{intercept, slope},
		Samples:      len(features),
	}
	for i := range xs {
		if r := math.Abs(ys[i] - Predict(model, int(xs[i]))); r > model.MaxResidual {
			model.MaxResidual = r
		}
	}
	return model, nil
}

// Predict returns the fitted line's value at offsetDays. Extrapolation is
// not bounded.
func Predict(model domain.TrainedModel, offsetDays int) float64 {
	return model.Intercept() + model.Slope()*float64(offsetDays)
}

// Evaluate measures the model against held-out features.
func Evaluate(model domain.TrainedModel, heldOut []domain.FeatureVector) (domain.Evaluation, error) {
	if len(heldOut) == 0 {
		return domain.Evaluation{}, fmt.Errorf("evaluate: no held-out samples: %w", domain.ErrInsufficientData)
	}

	predicted := make([]float64, len(heldOut))
	actual := make([]float64, len(heldOut))
	for i, f := range heldOut {
		predicted[i] = Predict(model, f.OffsetDays)
		actual[i] = f.Confirmed
	}

	n := float64(len(heldOut))
	l2 := floats.Distance(predicted, actual, 2)
	mse := l2 * l2 / n
	return domain.Evaluation{
		MAE:     floats.Distance(predicted, actual, 1) / n,
		MSE:     mse,
		RMSE:    math.Sqrt(mse),
		Samples: len(heldOut),
	}, nil
}

func columns(features []domain.FeatureVector) (xs, ys []float64) {
	xs = make([]float64, len(features))
	ys = make([]float64, len(features))
	for i, f := range features {
		xs[i] = float64(f.OffsetDays)
		ys[i] = f.Confirmed
	}
	return xs, ys
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
