package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/brokers/base"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
)

type Broker struct {
	*base.BaseBroker
	config            *Config
	producer          *kafka.Producer
	consumers         []*kafka.Consumer
	connectionManager *base.ConnectionManager
	mu                sync.Mutex
}

func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("kafka", config)
	if err != nil {
		return nil, err
	}

	broker := &Broker{
		BaseBroker: baseBroker,
	}
	broker.connectionManager = base.NewConnectionManager(baseBroker)

	if err := broker.connect(config); err != nil {
		return nil, err
	}

	return broker, nil
}

// configMap builds the librdkafka settings shared by producers and consumers.
func configMap(config *Config, clientID string) kafka.ConfigMap {
	cm := kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(config.Brokers, ","),
		"client.id":          clientID,
		"session.timeout.ms": 6000,
	}

	if config.SecurityProtocol != "PLAINTEXT" {
		cm["security.protocol"] = config.SecurityProtocol
	}

	if strings.HasPrefix(config.SecurityProtocol, "SASL_") {
		cm["sasl.mechanism"] = config.SASLMechanism
		cm["sasl.username"] = config.SASLUsername
		cm["sasl.password"] = config.SASLPassword
	}

	return cm
}

func producerConfig(config *Config) *kafka.ConfigMap {
	cm := configMap(config, config.ClientID)
	cm["message.send.max.retries"] = config.RetryMax
	cm["linger.ms"] = int(config.FlushFrequency.Milliseconds())
	return &cm
}

// consumerConfig stores offsets only after the handler has run, so a crash
// mid-message redelivers it.
func consumerConfig(config *Config) *kafka.ConfigMap {
	cm := configMap(config, config.ClientID+"-consumer")
	cm["group.id"] = config.GroupID
	cm["auto.offset.reset"] = "earliest"
	cm["enable.auto.commit"] = true
	cm["enable.auto.offset.store"] = false
	return &cm
}

func (b *Broker) connect(config *Config) error {
	producer, err := kafka.NewProducer(producerConfig(config))
	if err != nil {
		return errors.ConnectionError("failed to create Kafka producer", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.producer != nil {
		b.producer.Close()
	}
	b.config = config
	b.producer = producer
	return nil
}

func (b *Broker) Connect(config brokers.BrokerConfig) error {
	return b.connectionManager.ValidateAndConnect(config, (*Config)(nil), func(validated brokers.BrokerConfig) error {
		return b.connect(validated.(*Config))
	})
}

// toKafkaMessage maps a broker message onto its Kafka form. The message key
// selects the partition.
func toKafkaMessage(message *brokers.Message) (*kafka.Message, error) {
	if message.Topic == "" {
		return nil, errors.ValidationError("kafka message topic is required")
	}

	topic := message.Topic
	kafkaMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Value:     message.Body,
		Timestamp: message.Timestamp,
	}

	if message.Key != "" {
		kafkaMsg.Key = []byte(message.Key)
	}

	for key, value := range message.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	if message.MessageID != "" {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{Key: "message_id", Value: []byte(message.MessageID)})
	}

	return kafkaMsg, nil
}

// Publish produces message and waits for the delivery report.
func (b *Broker) Publish(message *brokers.Message) error {
	b.mu.Lock()
	producer := b.producer
	b.mu.Unlock()

	if err := base.RequireConnected(producer != nil, "Kafka"); err != nil {
		return err
	}

	kafkaMsg, err := toKafkaMessage(message)
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := producer.Produce(kafkaMsg, deliveryChan); err != nil {
		return errors.ConnectionError("failed to produce message", err)
	}

	e := <-deliveryChan
	m, ok := e.(*kafka.Message)
	if !ok {
		return errors.InternalError(fmt.Sprintf("unexpected delivery event %v", e), nil)
	}

	if m.TopicPartition.Error != nil {
		return errors.ConnectionError("delivery failed", m.TopicPartition.Error)
	}

	b.GetLogger().Debug("Message delivered",
		logging.Field{Key: "topic", Value: *m.TopicPartition.Topic},
		logging.Field{Key: "partition", Value: m.TopicPartition.Partition},
		logging.Field{Key: "offset", Value: m.TopicPartition.Offset.String()},
	)

	return nil
}

// toMessageData converts a consumed record to the broker-neutral form.
func toMessageData(msg *kafka.Message) base.MessageData {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	return base.MessageData{
		ID:        fmt.Sprintf("%s-%d-%d", topic, msg.TopicPartition.Partition, msg.TopicPartition.Offset),
		Headers:   headers,
		Body:      msg.Value,
		Timestamp: msg.Timestamp,
		Metadata: map[string]interface{}{
			"topic":     topic,
			"partition": msg.TopicPartition.Partition,
			"offset":    int64(msg.TopicPartition.Offset),
			"key":       string(msg.Key),
		},
	}
}

func isTimeout(err error) bool {
	kerr, ok := err.(kafka.Error)
	return ok && kerr.Code() == kafka.ErrTimedOut
}

// Subscribe joins the consumer group for topic and handles records in a
// background goroutine until ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, topic string, handler brokers.MessageHandler) error {
	b.mu.Lock()
	config := b.config
	b.mu.Unlock()

	consumer, err := kafka.NewConsumer(consumerConfig(config))
	if err != nil {
		return errors.ConnectionError("failed to create Kafka consumer", err)
	}

	if err := consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		consumer.Close()
		return errors.ConnectionError(fmt.Sprintf("failed to subscribe to topic %s", topic), err)
	}

	b.mu.Lock()
	b.consumers = append(b.consumers, consumer)
	b.mu.Unlock()

	logger := b.GetLogger().WithFields(logging.Field{Key: "topic", Value: topic})
	messageHandler := base.NewMessageHandler(handler, logger, "kafka", topic)

	go func() {
		defer b.removeConsumer(consumer)

		for {
			select {
			case <-ctx.Done():
				logger.Info("Kafka subscription stopped")
				return
			default:
			}

			msg, err := consumer.ReadMessage(config.PollInterval)
			if err != nil {
				if !isTimeout(err) {
					logger.Warn("Kafka consumer error", logging.Field{Key: "error", Value: err.Error()})
				}
				continue
			}

			incoming := base.ConvertToIncomingMessage(b.GetBrokerInfo(), toMessageData(msg))
			if !messageHandler.Handle(ctx, incoming) {
				// Kafka has no per-message nack; the failure is logged and the
				// offset still advances.
				logger.Warn("Kafka message not acknowledged by handler", logging.Field{Key: "message_id", Value: incoming.ID})
			}

			if _, err := consumer.StoreMessage(msg); err != nil {
				logger.Warn("Failed to store Kafka offset", logging.Field{Key: "error", Value: err.Error()})
			}
		}
	}()

	return nil
}

func (b *Broker) removeConsumer(consumer *kafka.Consumer) {
	b.mu.Lock()
	for i, c := range b.consumers {
		if c == consumer {
			b.consumers = append(b.consumers[:i], b.consumers[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if err := consumer.Close(); err != nil {
		b.GetLogger().Warn("Failed to close Kafka consumer", logging.Field{Key: "error", Value: err.Error()})
	}
}

func (b *Broker) Health() error {
	b.mu.Lock()
	producer := b.producer
	config := b.config
	b.mu.Unlock()

	if err := base.RequireConnected(producer != nil, "Kafka"); err != nil {
		return err
	}

	metadata, err := producer.GetMetadata(nil, false, int(config.Timeout.Milliseconds()))
	if err != nil {
		return errors.ConnectionError("failed to get Kafka metadata", err)
	}

	if len(metadata.Brokers) == 0 {
		return errors.ConnectionError("no Kafka brokers available", nil)
	}

	return nil
}

// Close flushes pending deliveries and closes the producer. Running
// subscriptions close their consumers when their context ends.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.producer != nil {
		b.producer.Flush(int(b.config.Timeout.Milliseconds()))
		b.producer.Close()
		b.producer = nil
	}

	return nil
}
