package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher writes JSON values to one topic. The outbox poller uses it
// for the ledger event stream, keyed by account.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages the consumer can never process
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of *kafka.Writer the producers need
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ KafkaWriter         = (*kafka.Writer)(nil)
	_ MessagePublisher    = (*LedgerEventProducer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
)
