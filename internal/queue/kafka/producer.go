package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// Producer publishes conversion outcomes keyed by event id, so every outcome
// for one event lands on the same partition.
type Producer struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewProducer creates a Kafka producer for the outcome topic
func NewProducer(cfg config.Kafka, log *zap.Logger) *Producer {
	log.Info("Kafka producer created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.OutcomeTopic))

	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.OutcomeTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		log: log,
	}
}

// PublishOutcome writes record to the outcome topic
func (p *Producer) PublishOutcome(ctx context.Context, record *domain.ConversionRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.EventID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(record.Status)},
			{Key: "event_name", Value: []byte(record.EventName)},
		},
	})
	if err != nil {
		p.log.Error("Failed to publish outcome to Kafka",
			zap.String("event_id", record.EventID),
			zap.Error(err))
		return fmt.Errorf("failed to publish outcome: %w", err)
	}
	return nil
}

func (p *Producer) Close() error { return p.writer.Close() }

// NoopProducer drops outcomes; used when no brokers are configured.
type NoopProducer struct{}

func (NoopProducer) PublishOutcome(ctx context.Context, record *domain.ConversionRecord) error {
	return nil
}

func (NoopProducer) Close() error { return nil }
