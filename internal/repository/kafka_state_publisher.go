package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/kafka"
)

// KafkaStatePublisher mirrors every persisted state object to a topic so
// downstream consumers see the same stream subscribers do.
type KafkaStatePublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaStatePublisher(producer *kafka.Producer, topic string) *KafkaStatePublisher {
	return &KafkaStatePublisher{producer: producer, topic: topic}
}

// Publish keys messages by ticker so one instrument's updates stay ordered
// within a partition.
func (p *KafkaStatePublisher) Publish(ctx context.Context, state *models.State) error {
	return p.producer.Publish(ctx, p.topic, []byte(state.Ticker), state)
}

func (p *KafkaStatePublisher) Close() error {
	return p.producer.Close()
}
