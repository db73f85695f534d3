package producers

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ensureTopic creates topic when the cluster does not know it yet. Creation
// has to be sent to the controller broker, not the bootstrap broker.
func ensureTopic(cfg *config.KafkaConfig, topic string, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		log.Debug("Kafka topic exists", "topic", topic, "partitions", len(partitions))
		return nil
	}
	if err != nil && !errors.Is(err, kafka.UnknownTopicOrPartition) {
		log.Warn("Could not read topic partitions, attempting to create it", "topic", topic, "error", err)
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	if err := controllerConn.CreateTopics(topicConfig(topic, cfg)); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	log.Info("Kafka topic ready", "topic", topic)
	return nil
}

func topicConfig(topic string, cfg *config.KafkaConfig) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}
