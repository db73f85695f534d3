package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// LedgerEventProducer publishes committed ledger entries. Writes are
// synchronous so the outbox only marks a message processed once the broker
// acknowledged it.
type LedgerEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewLedgerEventProducer creates the producer and ensures the topic exists
func NewLedgerEventProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*LedgerEventProducer, error) {
	if cfg.LedgerEventTopic == "" {
		return nil, fmt.Errorf("kafka ledger event topic is not configured")
	}

	if err := ensureTopic(cfg, cfg.LedgerEventTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger event topic %s exists: %w", cfg.LedgerEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:  kafka.TCP(cfg.Brokers),
		Topic: cfg.LedgerEventTopic,
		// Keyed by account so entries of one account stay ordered
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &LedgerEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.LedgerEventTopic,
	}, nil
}

func (p *LedgerEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish ledger event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *LedgerEventProducer) Close() error {
	p.logger.Info("Closing ledger event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close ledger event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
