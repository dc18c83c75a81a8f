package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/couchcryptid/case-trend-service/internal/trend"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// SeriesSource provides the stored observations for training.
type SeriesSource interface {
	Load(entityID string) ([]domain.Observation, error)
	Entities() []string
}

// ModelSaver persists trained models.
type ModelSaver interface {
	Save(ctx context.Context, model domain.TrainedModel) error
}

// ModelPublisher announces freshly trained models to downstream consumers.
type ModelPublisher interface {
	PublishModels(ctx context.Context, models []domain.TrainedModel) error
}

// TrainerOptions tunes the hold-out split. A zero TestFraction evaluates
// every run in-sample.
type TrainerOptions struct {
	TestFraction float64
	Seed         uint64
}

// Trainer turns stored series into persisted trend models.
type Trainer struct {
	source    SeriesSource
	models    ModelSaver
	publisher ModelPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      TrainerOptions
}

// NewTrainer creates a Trainer. Pass a nil publisher to skip announcing
// models and a nil clock to use the wall clock.
func NewTrainer(source SeriesSource, models ModelSaver, publisher ModelPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts TrainerOptions) *Trainer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Trainer{
		source:    source,
		models:    models,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// Train fits a model for one entity and saves it. Nothing is saved unless
// every step before the save succeeds. A failed publish is logged but does
// not undo the save.
func (t *Trainer) Train(ctx context.Context, entityID string) (domain.Report, error) {
	start := t.clock.Now()
	report, err := t.train(ctx, entityID)
	if err != nil {
		t.metrics.TrainingRuns.WithLabelValues("error").Inc()
		t.logger.Warn("training failed", "entity_id", entityID, "error", err)
		return domain.Report{}, err
	}
	report.Duration = t.clock.Since(start)
	t.metrics.TrainingRuns.WithLabelValues("success").Inc()
	t.metrics.TrainingDuration.Observe(report.Duration.Seconds())
	t.metrics.ModelMAE.WithLabelValues(entityID).Set(report.Evaluation.MAE)

	t.logger.Info("model trained",
		"entity_id", entityID,
		"run_id", report.RunID,
		"intercept", report.Model.Intercept(),
		"slope", report.Model.Slope(),
		"mae", report.Evaluation.MAE,
		"train_samples", report.TrainSamples,
		"test_samples", report.TestSamples,
		"in_sample", report.InSample,
	)

	if t.publisher != nil {
		if err := t.publisher.PublishModels(ctx, []domain.TrainedModel{report.Model}); err != nil {
			t.logger.Error("publish model failed", "entity_id", entityID, "error", err)
		} else {
			t.metrics.ModelsPublished.Inc()
		}
	}
	return report, nil
}

func (t *Trainer) train(ctx context.Context, entityID string) (domain.Report, error) {
	observations, err := t.source.Load(entityID)
	if err != nil {
		return domain.Report{}, err
	}
	features, err := domain.Derive(observations)
	if err != nil {
		return domain.Report{}, fmt.Errorf("train %s: %w", entityID, err)
	}

	report := domain.Report{RunID: uuid.NewString(), EntityID: entityID}

	trainSet, testSet, ok := trend.Split(features, t.opts.TestFraction, t.opts.Seed)
	var model domain.TrainedModel
	if ok {
		model, err = trend.Fit(trainSet)
		// A shuffled training half can collapse onto a single offset when
		// dates repeat; fall back to the full series.
		if errors.Is(err, domain.ErrDegenerateInput) {
			ok = false
		}
	}
	if !ok {
		trainSet, testSet = features, features
		report.InSample = true
		model, err = trend.Fit(features)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("train %s: %w", entityID, err)
	}

	evaluation, err := trend.Evaluate(model, testSet)
	if err != nil {
		return domain.Report{}, fmt.Errorf("evaluate %s: %w", entityID, err)
	}

	model.FittedAt = t.clock.Now().UTC()
	model.RunID = report.RunID
	if err := t.models.Save(ctx, model); err != nil {
		return domain.Report{}, fmt.Errorf("save model %s: %w", entityID, err)
	}

	report.Model = model
	report.Evaluation = evaluation
	report.TrainSamples = len(trainSet)
	if !report.InSample {
		report.TestSamples = len(testSet)
	}
	return report, nil
}

// TrainAll trains every entity currently in the source. Failures for one
// entity do not stop the others; they are joined into the returned error.
func (t *Trainer) TrainAll(ctx context.Context) ([]domain.Report, error) {
	var (
		reports []domain.Report
		errs    []error
	)
	for _, id := range t.source.Entities() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := t.Train(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// RunSchedule retrains every entity each interval until ctx is cancelled.
// A non-positive interval disables scheduled training.
func (t *Trainer) RunSchedule(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t.logger.Info("training schedule started", "interval", interval)

	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("training schedule stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			reports, err := t.TrainAll(ctx)
			if err != nil && ctx.Err() == nil {
				t.logger.Warn("scheduled training had failures", "trained", len(reports), "error", err)
			}
		}
	}
}
