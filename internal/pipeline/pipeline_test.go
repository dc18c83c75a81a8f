package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/couchcryptid/case-trend-service/internal/pipeline"
	"github.com/couchcryptid/case-trend-service/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	mu      sync.Mutex
	batches [][]domain.RawEvent
	errs    []error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	m.mu.Lock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		batch := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()

	// block until context cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestIngestor_Run_HappyPath(t *testing.T) {
	st := store.New()
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		makeRawEvent(t, "Italy", "2020-02-21", 20),
		makeRawEvent(t, "Italy", "2020-02-22", 62),
	}}}
	metrics := newTestMetrics()

	p := pipeline.NewIngestor(ext, st, discardLogger(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, st.Len("Italy"))
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ObservationsIngested))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.IngestRunning))
}

func TestIngestor_Run_ContextCancellation(t *testing.T) {
	st := store.New()
	p := pipeline.NewIngestor(&mockExtractor{}, st, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, st.Entities())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestIngestor_Run_SkipsRejectedMessages(t *testing.T) {
	var commits atomic.Int32
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}

	malformed := domain.RawEvent{Key: []byte("Italy"), Value: []byte("not json"), Commit: commit}
	first := makeRawEvent(t, "Italy", "2020-02-22", 62)
	first.Commit = commit
	stale := makeRawEvent(t, "Italy", "2020-02-21", 20)
	stale.Commit = commit

	st := store.New()
	ext := &mockExtractor{batches: [][]domain.RawEvent{{malformed, first, stale}}}
	metrics := newTestMetrics()

	p := pipeline.NewIngestor(ext, st, discardLogger(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, st.Len("Italy"))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.IngestErrors))
	assert.Equal(t, int32(3), commits.Load(), "rejected messages are committed too")
}

func TestIngestor_Run_RetriesExtractErrors(t *testing.T) {
	st := store.New()
	ext := &mockExtractor{
		errs:    []error{errors.New("broker unavailable")},
		batches: [][]domain.RawEvent{{makeRawEvent(t, "Italy", "2020-02-21", 20)}},
	}

	p := pipeline.NewIngestor(ext, st, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, st.Len("Italy"))
}

// partialExtractor returns its batch together with a transport error once,
// then waits for cancellation.
type partialExtractor struct {
	mu    sync.Mutex
	batch []domain.RawEvent
	err   error
	calls int
}

func (m *partialExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	m.mu.Lock()
	m.calls++
	if m.calls == 1 {
		m.mu.Unlock()
		return m.batch, m.err
	}
	m.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestIngestor_Run_StoresEventsFetchedBeforeError(t *testing.T) {
	var commits atomic.Int32
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}
	first := makeRawEvent(t, "Italy", "2020-02-21", 20)
	first.Commit = commit
	second := makeRawEvent(t, "Italy", "2020-02-22", 62)
	second.Commit = commit

	st := store.New()
	ext := &partialExtractor{
		batch: []domain.RawEvent{first, second},
		err:   errors.New("read tcp: connection reset by peer"),
	}
	metrics := newTestMetrics()
	p := pipeline.NewIngestor(ext, st, discardLogger(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, st.Len("Italy"))
	assert.Equal(t, int32(2), commits.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ObservationsIngested))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestIngestor_Run_CommitFailureDoesNotStop(t *testing.T) {
	raw := makeRawEvent(t, "Italy", "2020-02-21", 20)
	raw.Topic = "case-observations"
	raw.Commit = func(context.Context) error { return errors.New("rebalance in progress") }

	st := store.New()
	p := pipeline.NewIngestor(&mockExtractor{batches: [][]domain.RawEvent{{raw}}}, st, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, st.Len("Italy"))
}

// --- helpers ---

func makeRawEvent(t *testing.T, entity, date string, confirmed int64) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"entity_id": entity,
		"date":      date,
		"confirmed": confirmed,
		"deaths":    0,
		"recovered": 0,
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(entity),
		Value: data,
	}
}
