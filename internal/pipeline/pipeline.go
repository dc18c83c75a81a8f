// Package pipeline wires ingestion, refresh, and training around the record
// store and model registry.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize raw events from the source. On a
// transport error it may return the events fetched before the failure
// alongside the error; those events are still processed and committed.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// ObservationAppender accepts validated observations.
type ObservationAppender interface {
	Append(obs domain.Observation) error
}

// Ingestor runs the extract-parse-append loop that feeds the record store.
type Ingestor struct {
	extractor BatchExtractor
	store     ObservationAppender
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// NewIngestor creates an Ingestor appending to store.
func NewIngestor(e BatchExtractor, store ObservationAppender, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Ingestor {
	return &Ingestor{
		extractor: e,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the ingestor has stored an observation.
// The service folds it into /readyz when Kafka ingestion is enabled.
func (p *Ingestor) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("ingestor has not stored any observations yet")
	}
	return nil
}

// Run executes the batch ingestion loop until the context is cancelled.
func (p *Ingestor) Run(ctx context.Context) error {
	p.logger.Info("ingestor started", "batch_size", p.batchSize)
	p.metrics.IngestRunning.Set(1)
	defer p.metrics.IngestRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingestor stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-parse-append cycle. Returns false if the loop should stop.
func (p *Ingestor) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if len(rawBatch) > 0 {
		p.metrics.BatchSize.Observe(float64(len(rawBatch)))
		if stored := p.appendBatch(ctx, rawBatch); stored > 0 {
			p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
			p.ready.Store(true)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err, "fetched", len(rawBatch))
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}
	*backoff = 200 * time.Millisecond
	return true
}

// appendBatch parses and stores each message, committing every offset.
// Malformed and out-of-order messages are skipped; replaying them would
// fail the same way. Returns the number of stored observations.
func (p *Ingestor) appendBatch(ctx context.Context, rawBatch []domain.RawEvent) int {
	stored := 0
	for _, raw := range rawBatch {
		obs, err := domain.ParseObservation(raw)
		if err == nil {
			err = p.store.Append(obs)
		}
		if err != nil {
			p.logger.Warn("observation rejected, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.IngestErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		stored++
		p.metrics.ObservationsIngested.Inc()
		p.commitOffset(ctx, raw)
	}
	return stored
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the loop should stop.
func (p *Ingestor) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Ingestor) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
