package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"messaging-service/internal/models"

	"github.com/IBM/sarama"
)

// KafkaDispatcher publishes message.sent events to a Kafka topic.
// Delivery to the notification consumer is best-effort from the sender's
// point of view; the persisted message row is the source of truth either
// way.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaDispatcher(brokers []string, topic string) (*KafkaDispatcher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "messaging-service"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaDispatcher{producer: producer, topic: topic}, nil
}

// NewKafkaDispatcherWithProducer wires an existing producer; used by tests.
func NewKafkaDispatcherWithProducer(producer sarama.SyncProducer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic}
}

func (d *KafkaDispatcher) MessageSent(ctx context.Context, msg *models.Message) error {
	payload, err := json.Marshal(NewEvent(msg))
	if err != nil {
		return fmt.Errorf("failed to encode notification event: %w", err)
	}

	// Keyed by receiver so one user's notifications stay ordered on a
	// single partition.
	_, _, err = d.producer.SendMessage(&sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(fmt.Sprint(msg.ReceiverID)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.producer.Close()
}
