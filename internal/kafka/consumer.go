package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// RequestHandler runs single-ticker enrichment for incoming requests.
// Handlers are expected to be idempotent: the enricher's threshold
// guard makes re-delivered requests no-ops.
type RequestHandler interface {
	EnrichTicker(ctx context.Context, ticker string, date time.Time) (bool, error)
}

// Consumer handles consuming enrichment requests from Kafka
type Consumer struct {
	reader  *kafka.Reader
	handler RequestHandler
}

// NewConsumer creates a new Kafka consumer for enrichment requests
func NewConsumer(brokers []string, topic, groupID string, handler RequestHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Printf("Received message from partition %d offset %d: key=%s",
		msg.Partition, msg.Offset, string(msg.Key))

	var event models.EnrichmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal enrichment event: %w", err)
	}

	// Only process ENRICH_REQUESTED events
	if event.EventType != models.EventEnrichRequest {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	if event.Ticker == "" {
		return fmt.Errorf("enrich request without a ticker")
	}

	date, err := time.Parse("2006-01-02", event.Date)
	if err != nil {
		return fmt.Errorf("invalid request date %q: %w", event.Date, err)
	}

	changed, err := c.handler.EnrichTicker(ctx, event.Ticker, date)
	if err != nil {
		return fmt.Errorf("failed to enrich %s: %w", event.Ticker, err)
	}

	if changed {
		log.Printf("Enriched %s for %s on request", event.Ticker, event.Date)
	} else {
		log.Printf("Request for %s on %s was a no-op", event.Ticker, event.Date)
	}
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
