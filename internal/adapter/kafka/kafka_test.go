package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("Italy"),
		Value:     []byte(`{"entity_id":"Italy"}`),
		Topic:     "case-observations",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("jhu-csse")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("Italy"), raw.Key)
	assert.JSONEq(t, `{"entity_id":"Italy"}`, string(raw.Value))
	assert.Equal(t, "case-observations", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "jhu-csse", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	fittedAt := time.Date(2020, 3, 11, 9, 30, 0, 0, time.UTC)
	model := domain.TrainedModel{
		EntityID:     "Italy",
		Coefficients: [2]float64{-1200.5, 480.25},
		FittedAt:     fittedAt,
		Samples:      15,
		RunID:        "run-1",
	}

	msg, err := serializeToMessage(model)
	require.NoError(t, err)

	assert.Equal(t, []byte("Italy"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "entity_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("Italy"), msg.Headers[0].Value)
	assert.Equal(t, "fitted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(fittedAt.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.TrainedModel
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, model, decoded)
}

func TestPublishModels_EmptyIsNoop(t *testing.T) {
	w := &Writer{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, w.PublishModels(context.Background(), nil))
}
