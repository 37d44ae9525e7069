package repository

import (
	"context"

	"TrendCast/internal/domain/models"
	domrepo "TrendCast/internal/domain/repository"
	pkgkafka "TrendCast/pkg/kafka"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaResultPublisher implements ResultPublisher for Kafka. Events are keyed by request id so
// every reply of a request lands on the same partition.
type KafkaResultPublisher struct {
	producer batchPublisher
	topic    string
}

// NewKafkaResultPublisher creates Kafka result publisher.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, ev models.ResultEvent) error {
	headers := map[string]string{
		"kind":     ev.Kind,
		"status":   ev.Status,
		"trace_id": ev.ID,
	}
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{
		{Key: []byte(ev.ID), Value: ev, Headers: headers},
	})
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
