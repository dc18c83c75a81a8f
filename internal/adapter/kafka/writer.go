package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/config"
	"github.com/couchcryptid/case-trend-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer announces trained models on the sink topic.
// It implements pipeline.ModelPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishModels serializes and publishes models in a single WriteMessages
// call. Messages are keyed by entity so each entity's models stay ordered
// within a partition.
func (w *Writer) PublishModels(ctx context.Context, models []domain.TrainedModel) error {
	if len(models) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(models))
	for i := range models {
		msg, err := serializeToMessage(models[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d model(s): %w", len(msgs), err)
	}
	w.logger.Debug("models published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a TrainedModel into a Kafka message.
func serializeToMessage(model domain.TrainedModel) (kafkago.Message, error) {
	data, err := json.Marshal(model)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize trained model: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(model.EntityID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "entity_id", Value: []byte(model.EntityID)},
			{Key: "fitted_at", Value: []byte(model.FittedAt.Format(time.RFC3339))},
		},
	}, nil
}
