package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"clipforge/config"
)

// Publish enqueues generation requests for the worker. Used by the feed
// subcommand to turn headlines into queued runs.
func Publish(cfg config.KafkaConfig, topics []string) error {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_6_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	defer producer.Close()

	for _, topic := range topics {
		value, err := json.Marshal(GenerateRequest{Topic: topic})
		if err != nil {
			return err
		}
		if _, _, err := producer.SendMessage(&sarama.ProducerMessage{
			Topic: cfg.Topic,
			Value: sarama.ByteEncoder(value),
		}); err != nil {
			return fmt.Errorf("enqueue %q: %w", topic, err)
		}
	}
	return nil
}
