// Package rabbitmq implements the broker interface over AMQP 0-9-1 with a
// pooled set of connections and durable queues.
package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/brokers/base"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
)

// MessageKeyHeader carries brokers.Message.Key, which AMQP has no field for
const MessageKeyHeader = "message_key"

type Broker struct {
	*base.BaseBroker
	pool              Channels
	connectionManager *base.ConnectionManager
	headers           base.HeaderConverter
	mu                sync.RWMutex
}

func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("rabbitmq", config)
	if err != nil {
		return nil, err
	}

	pool, err := newConnPool(config.URL, config.PoolSize)
	if err != nil {
		return nil, errors.ConnectionError("failed to create RabbitMQ connection pool", err)
	}

	return &Broker{
		BaseBroker:        baseBroker,
		pool:              pool,
		connectionManager: base.NewConnectionManager(baseBroker),
	}, nil
}

// NewBrokerWithPool creates a broker over an existing pool.
func NewBrokerWithPool(config *Config, pool Channels) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("rabbitmq", config)
	if err != nil {
		return nil, err
	}

	return &Broker{
		BaseBroker:        baseBroker,
		pool:              pool,
		connectionManager: base.NewConnectionManager(baseBroker),
	}, nil
}

func (b *Broker) Connect(config brokers.BrokerConfig) error {
	return b.connectionManager.ValidateAndConnect(config, (*Config)(nil), func(validated brokers.BrokerConfig) error {
		rmqConfig := validated.(*Config)

		pool, err := newConnPool(rmqConfig.URL, rmqConfig.PoolSize)
		if err != nil {
			return errors.ConnectionError("failed to create RabbitMQ connection pool", err)
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.pool != nil {
			b.pool.Close()
		}
		b.pool = pool
		return nil
	})
}

func (b *Broker) client() (Channel, error) {
	b.mu.RLock()
	pool := b.pool
	b.mu.RUnlock()

	if err := base.RequireConnected(pool != nil, "RabbitMQ"); err != nil {
		return nil, err
	}

	client, err := pool.Open()
	if err != nil {
		return nil, errors.ConnectionError("failed to get RabbitMQ client", err)
	}
	return client, nil
}

// declareQueue declares queue durable and, when an exchange is configured,
// binds it under its own name.
func declareQueue(client Channel, exchange, queue string) error {
	if _, err := client.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.ConnectionError("failed to declare queue "+queue, err)
	}

	if exchange == "" {
		return nil
	}

	if err := client.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return errors.ConnectionError("failed to declare exchange "+exchange, err)
	}
	if err := client.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return errors.ConnectionError("failed to bind queue "+queue, err)
	}
	return nil
}

func (b *Broker) toPublishing(message *brokers.Message) amqp.Publishing {
	headers := amqp.Table(b.headers.FromStringMap(message.Headers))
	if message.Key != "" {
		headers[MessageKeyHeader] = message.Key
	}

	timestamp := message.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return amqp.Publishing{
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    message.MessageID,
		Timestamp:    timestamp,
		Body:         message.Body,
	}
}

// Publish sends message to the queue named by its topic.
func (b *Broker) Publish(message *brokers.Message) error {
	if message.Topic == "" {
		return errors.ValidationError("rabbitmq queue name is required")
	}

	client, err := b.client()
	if err != nil {
		return err
	}
	defer client.Close()

	exchange := b.GetConfig().(*Config).Exchange
	if err := declareQueue(client, exchange, message.Topic); err != nil {
		return err
	}

	if err := client.Publish(exchange, message.Topic, false, false, b.toPublishing(message)); err != nil {
		return errors.ConnectionError("failed to publish to queue "+message.Topic, err)
	}
	return nil
}

func (b *Broker) toMessageData(msg amqp.Delivery) base.MessageData {
	headers := b.headers.ToStringMap(map[string]interface{}(msg.Headers))

	return base.MessageData{
		ID:        msg.MessageId,
		Headers:   headers,
		Body:      msg.Body,
		Timestamp: msg.Timestamp,
		Metadata: map[string]interface{}{
			"delivery_tag": msg.DeliveryTag,
			"routing_key":  msg.RoutingKey,
			"exchange":     msg.Exchange,
			"redelivered":  msg.Redelivered,
			"key":          headers[MessageKeyHeader],
		},
	}
}

// Subscribe consumes topic in a background goroutine until ctx is cancelled
// or the channel closes. Handled deliveries are acked, failed ones requeued.
func (b *Broker) Subscribe(ctx context.Context, topic string, handler brokers.MessageHandler) error {
	client, err := b.client()
	if err != nil {
		return err
	}

	config := b.GetConfig().(*Config)
	if err := declareQueue(client, config.Exchange, topic); err != nil {
		client.Close()
		return err
	}

	if err := client.Qos(config.PrefetchCount, 0, false); err != nil {
		client.Close()
		return errors.ConnectionError("failed to set prefetch for queue "+topic, err)
	}

	msgs, err := client.Consume(topic, "", false, false, false, false, nil)
	if err != nil {
		client.Close()
		return errors.ConnectionError("failed to start consuming from queue "+topic, err)
	}

	logger := b.GetLogger().WithFields(logging.Field{Key: "queue", Value: topic})
	messageHandler := base.NewMessageHandler(handler, logger, "rabbitmq", topic)

	go func() {
		defer client.Close()
		for {
			select {
			case <-ctx.Done():
				logger.Info("RabbitMQ subscription stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("RabbitMQ delivery channel closed")
					return
				}

				incoming := base.ConvertToIncomingMessage(b.GetBrokerInfo(), b.toMessageData(msg))
				if messageHandler.Handle(ctx, incoming, logging.Field{Key: "delivery_tag", Value: msg.DeliveryTag}) {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack RabbitMQ delivery", err)
					}
				} else if err := msg.Nack(false, true); err != nil {
					logger.Error("Failed to nack RabbitMQ delivery", err)
				}
			}
		}
	}()

	return nil
}

// Health opens a channel and declares a temporary queue.
func (b *Broker) Health() error {
	client, err := b.client()
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.QueueDeclare("object-denormalizer-health", false, true, false, false, nil); err != nil {
		return errors.ConnectionError("RabbitMQ health check failed", err)
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	return nil
}
