package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader is the part of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageReader = (*kafka.Reader)(nil)

// KafkaConsumer is a consumer group member that processes one message at a
// time. A message is committed only after its handler succeeds, and a failing
// message is retried in place, so later offsets of the partition are never
// committed past it.
type KafkaConsumer struct {
	reader        MessageReader
	logger        *slog.Logger
	topic         string
	groupID       string
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, topic string) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	return &KafkaConsumer{
		logger:        logger.With("topic", topic, "group_id", cfg.ConsumerGroup),
		topic:         topic,
		groupID:       cfg.ConsumerGroup,
		retryDelay:    time.Second,
		maxRetryDelay: 30 * time.Second,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
	}
}

// Subscribe processes messages with handler in the background until ctx is
// canceled
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic")
	go c.run(ctx, handler)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	defer c.logger.Info("Kafka consumer stopped")

	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "error", err)
			if !c.sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		if !c.process(ctx, handler, msg) {
			return
		}
	}
}

// process runs handler until it succeeds and then commits msg. It returns
// false when ctx ends first; the message stays uncommitted and is redelivered
// to whichever member owns the partition next.
func (c *KafkaConsumer) process(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	logger := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	logger.Debug("Received message")

	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		logger.Error("Handler failed, retrying message", "attempt", attempt, "retry_in", delay.String(), "error", err)
		if !c.sleep(ctx, delay) {
			return false
		}
		delay = min(delay*2, c.maxRetryDelay)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		// The next successful commit on this partition covers this offset too
		logger.Error("Failed to commit message", "error", err)
		return ctx.Err() == nil
	}
	logger.Debug("Message committed")
	return true
}

func (c *KafkaConsumer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
