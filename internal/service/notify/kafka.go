package notify

import (
	"context"
	"fmt"

	"SignalFuse/internal/domain/models"
	pkgkafka "SignalFuse/pkg/kafka"
)

// Kafka publishes alert payloads to a topic, keyed by symbol so one
// instrument's alerts land on one partition in order.
type Kafka struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafka(producer *pkgkafka.Producer, topic string) *Kafka {
	if topic == "" {
		topic = "signalfuse.alerts"
	}
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Channel() string { return "kafka" }

func (k *Kafka) Notify(ctx context.Context, p models.NotificationPayload) error {
	if k.producer == nil {
		return fmt.Errorf("kafka producer not configured")
	}
	if err := k.producer.Publish(ctx, k.topic, []byte(p.Symbol), p); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}
