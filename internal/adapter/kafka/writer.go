package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/config"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
)

// Writer produces committed transition events to the alerts sink topic.
// It implements pipeline.TransitionPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishTransitions serializes and publishes transition events in a single
// WriteMessages call. Messages are keyed by region so per-region ordering is
// preserved across partitions.
func (w *Writer) PublishTransitions(ctx context.Context, events []domain.TransitionEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a TransitionEvent into a Kafka message.
func serializeToMessage(event domain.TransitionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize transition event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "to_level", Value: []byte(event.To.String())},
			{Key: "emitted_at", Value: []byte(domain.Clock().Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
