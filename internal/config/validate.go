package config

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// violations collects every invalid setting so a misconfigured deployment is
// reported in one go
type violations []string

func (v *violations) required(key, value string) {
	if value == "" {
		*v = append(*v, key+" is required")
	}
}

func (v *violations) positive(key string, value int64) {
	if value <= 0 {
		*v = append(*v, key+" must be greater than 0")
	}
}

func (v *violations) nonNegative(key string, value int64) {
	if value < 0 {
		*v = append(*v, key+" must not be negative")
	}
}

func (v *violations) rate(key string, value decimal.Decimal) {
	if value.IsNegative() || !value.LessThan(decimal.NewFromInt(1)) {
		*v = append(*v, key+" must be in [0, 1)")
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return errors.New(strings.Join(v, ", "))
}

func (c *Config) validate() error {
	var v violations

	v.positive("SERVER_PORT", int64(c.Server.Port))
	v.positive("SERVER_SHUTDOWN_TIMEOUT", int64(c.Server.ShutdownTimeout))
	v.positive("SERVER_READ_TIMEOUT", int64(c.Server.ReadTimeout))
	v.positive("SERVER_WRITE_TIMEOUT", int64(c.Server.WriteTimeout))
	v.positive("SERVER_IDLE_TIMEOUT", int64(c.Server.IdleTimeout))

	v.required("KAFKA_BROKERS", c.Kafka.Brokers)
	v.required("KAFKA_EVENT_RESULT_TOPIC", c.Kafka.EventResultTopic)
	v.required("KAFKA_LEDGER_EVENT_TOPIC", c.Kafka.LedgerEventTopic)
	v.required("KAFKA_DLQ_TOPIC", c.Kafka.DLQTopic)
	v.required("KAFKA_CONSUMER_GROUP", c.Kafka.ConsumerGroup)
	v.positive("KAFKA_CONSUMER_MIN_BYTES", int64(c.Kafka.MinBytes))
	v.positive("KAFKA_CONSUMER_MAX_BYTES", int64(c.Kafka.MaxBytes))
	v.positive("KAFKA_CONSUMER_MAX_WAIT", int64(c.Kafka.MaxWait))

	v.required("POSTGRES_URL", c.Postgres.URL)
	v.positive("POSTGRES_MAX_CONNS", int64(c.Postgres.MaxConns))
	v.positive("POSTGRES_MIN_CONNS", int64(c.Postgres.MinConns))
	v.positive("POSTGRES_MAX_CONN_LIFETIME", int64(c.Postgres.ConnMaxLifetime))
	v.positive("POSTGRES_MAX_CONN_IDLE_TIME", int64(c.Postgres.ConnMaxIdleTime))

	v.required("MONGO_URI", c.MongoDB.URI)
	v.required("MONGO_DATABASE", c.MongoDB.Database)
	v.positive("MONGO_TIMEOUT", int64(c.MongoDB.Timeout))
	v.positive("MONGO_MAX_POOL_SIZE", int64(c.MongoDB.MaxPoolSize))
	v.positive("MONGO_MIN_POOL_SIZE", int64(c.MongoDB.MinPoolSize))
	v.positive("MONGO_MAX_CONN_IDLE_TIME", int64(c.MongoDB.MaxConnIdleTime))

	v.required("REDIS_ADDR", c.Redis.Addr)
	v.positive("REDIS_ODDS_TTL", int64(c.Redis.OddsTTL))

	v.positive("OUTBOX_POLLING_INTERVAL", int64(c.Outbox.PollingInterval))
	v.positive("OUTBOX_BATCH_SIZE", int64(c.Outbox.BatchSize))
	v.positive("OUTBOX_MAX_RETRY_ATTEMPTS", int64(c.Outbox.MaxRetryAttempts))

	v.positive("WORKER_POOL_SIZE", int64(c.WorkerPool.Size))
	v.nonNegative("METRICS_PORT", int64(c.Metrics.Port))

	v.nonNegative("LEDGER_STARTING_BALANCE", c.Ledger.StartingBalance)
	v.positive("LEDGER_MIN_DEPOSIT", c.Ledger.MinDeposit)
	v.positive("LEDGER_MIN_WITHDRAWAL", c.Ledger.MinWithdrawal)
	v.rate("LEDGER_CARD_DEPOSIT_COMMISSION", c.Ledger.CardDepositCommission)
	v.rate("LEDGER_WITHDRAWAL_COMMISSION", c.Ledger.WithdrawalCommission)
	v.positive("LEDGER_MAX_MUTATION_ATTEMPTS", int64(c.Ledger.MaxMutationAttempts))
	v.nonNegative("LEDGER_RETRY_BACKOFF", int64(c.Ledger.RetryBackoff))
	v.positive("LEDGER_HISTORY_LIMIT", int64(c.Ledger.HistoryLimit))

	return v.err()
}
