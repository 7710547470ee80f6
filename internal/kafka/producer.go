package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// Producer handles publishing enrichment events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishRecordEnriched publishes an event for a freshly enriched record
func (p *Producer) PublishRecordEnriched(ctx context.Context, rec *models.EnrichedRecord) error {
	event := models.EnrichmentEvent{
		EventType:      models.EventRecordEnriched,
		Ticker:         rec.Ticker,
		Date:           rec.Date,
		IndicatorCount: len(rec.TechnicalIndicators),
		HasFundamental: len(rec.Fundamentals) > 0,
		Source:         rec.TechnicalSource,
		Timestamp:      time.Now(),
	}
	return p.publish(ctx, rec.Ticker, event)
}

// PublishRecordSkipped publishes an event for a record that was
// already enriched and left untouched
func (p *Producer) PublishRecordSkipped(ctx context.Context, ticker, date string) error {
	event := models.EnrichmentEvent{
		EventType: models.EventRecordSkipped,
		Ticker:    ticker,
		Date:      date,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.EnrichmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
