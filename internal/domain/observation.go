package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Observation is a validated case-count record for one entity on one day.
type Observation struct {
	EntityID  string    `json:"entity_id"`
	Timestamp time.Time `json:"date"`
	Confirmed uint64    `json:"confirmed"`
	Deaths    uint64    `json:"deaths"`
	Recovered uint64    `json:"recovered"`
}

// FeatureVector pairs the day offset of an observation with its target value.
type FeatureVector struct {
	EntityID   string  `json:"entity_id"`
	OffsetDays int     `json:"offset_days"`
	Confirmed  float64 `json:"confirmed"`
}

// TrainedModel is a fitted trend line for a single entity.
// Coefficients holds the intercept followed by the slope.
type TrainedModel struct {
	EntityID     string     `json:"entity_id"`
	Coefficients [2]float64 `json:"coefficients"`
	FittedAt     time.Time  `json:"fitted_at"`

	Samples     int     `json:"samples"`
	MaxResidual float64 `json:"max_residual"`
	RunID       string  `json:"run_id,omitempty"`
}

// Intercept is the fitted value at offset zero.
func (m TrainedModel) Intercept() float64 { return m.Coefficients[0] }

// Slope is the fitted change in confirmed cases per day.
func (m TrainedModel) Slope() float64 { return m.Coefficients[1] }

// Evaluation summarises prediction error over a set of held-out features.
type Evaluation struct {
	MAE     float64 `json:"mae"`
	MSE     float64 `json:"mse"`
	RMSE    float64 `json:"rmse"`
	Samples int     `json:"samples"`
}

// Point is a single value on a fitted trend line.
type Point struct {
	OffsetDays int     `json:"offset_days"`
	Confirmed  float64 `json:"confirmed"`
}

// Report describes the outcome of one training run.
type Report struct {
	RunID        string        `json:"run_id"`
	EntityID     string        `json:"entity_id"`
	Model        TrainedModel  `json:"model"`
	Evaluation   Evaluation    `json:"evaluation"`
	TrainSamples int           `json:"train_samples"`
	TestSamples  int           `json:"test_samples"`
	InSample     bool          `json:"in_sample"`
	Duration     time.Duration `json:"duration"`
}
