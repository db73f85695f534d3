// Package config loads the settings shared by the API gateway and the
// settlement processor from an optional .env file and the environment.
package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is validated as a whole when loaded. A binary only reads the
// sections it uses.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Metrics     MetricsConfig
	Ledger      LedgerConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string // debug, info, warn or error
}

// ServerConfig configures the gateway's HTTP server
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig covers both the event result intake and the ledger event
// stream. Topics are created with NumPartitions and ReplicationFactor when
// missing.
type KafkaConfig struct {
	Brokers           string
	EventResultTopic  string
	LedgerEventTopic  string
	DLQTopic          string // results that cannot be settled
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
}

// PostgresConfig configures the pgx pool behind the system of record
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig configures the history projection store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	OddsTTL  time.Duration // lifetime of a cached event snapshot
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // deliveries before a message is parked as FAILED
}

// WorkerPoolConfig bounds how many stakes settle concurrently
type WorkerPoolConfig struct {
	Size int
}

type MetricsConfig struct {
	Port int // standalone metrics server; 0 disables it
}

// LedgerConfig holds the monetary policy. Amounts are minor units.
type LedgerConfig struct {
	StartingBalance       int64
	MinDeposit            int64
	MinWithdrawal         int64
	CardDepositCommission decimal.Decimal
	WithdrawalCommission  decimal.Decimal
	MaxMutationAttempts   int // read-modify-write attempts before reporting a conflict
	RetryBackoff          time.Duration
	HistoryLimit          int
}
