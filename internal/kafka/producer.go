package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/logger"
)

const (
	publishTimeout = 5 * time.Second
	// one message per request; don't wait for a batch to fill
	batchTimeout = 10 * time.Millisecond
)

// Producer writes JSON notifications; the topic is chosen per message.
type Producer struct {
	Writer *kafka.Writer
	logger *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           publishTimeout,
		BatchTimeout:           batchTimeout,
	}
	return &Producer{Writer: writer, logger: log}
}

// Publish streams payload to topic, keyed so one entity stays on one partition.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return err
	}
	p.logger.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

func (NoopPublisher) Close() error { return nil }
