package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hmeira/order-enricher/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer owns the writers for the success and failure topics. Sends
// are synchronous: each blocks until the broker acknowledges or the bounded
// wait expires
type KafkaProducer struct {
	success *kafka.Writer
	failure *kafka.Writer
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaProducer(brokers []string, successTopic, failureTopic string, timeout time.Duration, logger *slog.Logger) *KafkaProducer {
	return &KafkaProducer{
		success: newWriter(brokers, successTopic),
		failure: newWriter(brokers, failureTopic),
		timeout: timeout,
		logger:  logger,
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		// At-least-once: never fire-and-forget on this hop
		Async: false,
	}
}

// PublishSuccess sends an enriched message, keyed by the event uuid so
// ordering per event is preserved downstream
func (p *KafkaProducer) PublishSuccess(ctx context.Context, key string, value []byte) error {
	return p.publish(ctx, p.success, []byte(key), value)
}

// PublishFailure sends a failure envelope to the failure topic
func (p *KafkaProducer) PublishFailure(ctx context.Context, value []byte) error {
	return p.publish(ctx, p.failure, nil, value)
}

func (p *KafkaProducer) publish(ctx context.Context, w *kafka.Writer, key, value []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := w.WriteMessages(sendCtx, kafka.Message{Key: key, Value: value})
	metrics.PublishDuration.WithLabelValues(w.Topic).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("publish to %s failed: %w", w.Topic, err)
	}
	return nil
}

// Close releases both writers. Invoked once at process shutdown
func (p *KafkaProducer) Close() error {
	p.logger.Info("Closing Kafka writers")
	if err := p.success.Close(); err != nil {
		p.failure.Close()
		return err
	}
	return p.failure.Close()
}
