// Package analytics mirrors usage events to Kafka for downstream cost and
// reporting pipelines. The database stays the source of truth; publishing is
// best-effort and never fails a chat request.
package analytics

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/service"
)

type kafkaPublisher struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewKafkaPublisher builds the usage event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) service.UsagePublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.UsageTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Async:        true,
	}
	return &kafkaPublisher{
		writer: writer,
		log:    log.WithComponent("analytics.kafka"),
	}
}

// Publish writes the event keyed by user so one user's events stay ordered
// within a partition.
func (p *kafkaPublisher) Publish(ctx context.Context, event *models.UsageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
	})
	if err != nil {
		p.log.Error(ctx, "failed to publish usage event", err,
			logger.String("event_id", event.ID),
			logger.String("user_id", event.UserID),
		)
		return err
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// noopPublisher is wired when Kafka is disabled.
type noopPublisher struct{}

func NewNoopPublisher() service.UsagePublisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, *models.UsageEvent) error { return nil }
func (noopPublisher) Close() error                                      { return nil }
