// Package redis implements the broker interface on Redis Streams with
// consumer groups. Deliveries are acknowledged with XACK once handled.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/brokers/base"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
)

const headerPrefix = "header_"

type Broker struct {
	*base.BaseBroker
	client            *redis.Client
	connectionManager *base.ConnectionManager
	mu                sync.RWMutex
}

func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("redis", config)
	if err != nil {
		return nil, err
	}

	client, err := dial(config)
	if err != nil {
		return nil, err
	}

	return &Broker{
		BaseBroker:        baseBroker,
		client:            client,
		connectionManager: base.NewConnectionManager(baseBroker),
	}, nil
}

func dial(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       config.Address,
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: config.RetryMax,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.ConnectionError("failed to connect to Redis", err)
	}
	return client, nil
}

func (b *Broker) Connect(config brokers.BrokerConfig) error {
	return b.connectionManager.ValidateAndConnect(config, (*Config)(nil), func(validated brokers.BrokerConfig) error {
		client, err := dial(validated.(*Config))
		if err != nil {
			return err
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.client != nil {
			b.client.Close()
		}
		b.client = client
		return nil
	})
}

func (b *Broker) getClient() *redis.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client
}

// streamFields flattens a broker message into stream entry fields.
func streamFields(message *brokers.Message) map[string]interface{} {
	fields := map[string]interface{}{
		"body":       string(message.Body),
		"timestamp":  message.Timestamp.UnixNano(),
		"message_id": message.MessageID,
	}

	if message.Key != "" {
		fields["key"] = message.Key
	}

	for key, value := range message.Headers {
		fields[headerPrefix+key] = value
	}

	return fields
}

// Publish appends message to the stream named by its topic.
func (b *Broker) Publish(message *brokers.Message) error {
	client := b.getClient()
	if err := base.RequireConnected(client != nil, "Redis"); err != nil {
		return err
	}

	if message.Topic == "" {
		return errors.ValidationError("redis stream name is required")
	}

	config := b.GetConfig().(*Config)
	args := &redis.XAddArgs{
		Stream: message.Topic,
		ID:     "*",
		Values: streamFields(message),
	}
	if config.StreamMaxLen > 0 {
		args.MaxLen = config.StreamMaxLen
		args.Approx = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	id, err := client.XAdd(ctx, args).Result()
	if err != nil {
		return errors.ConnectionError("failed to publish message to Redis stream", err)
	}

	b.GetLogger().Debug("Message published to Redis stream",
		logging.Field{Key: "stream", Value: message.Topic},
		logging.Field{Key: "id", Value: id},
	)
	return nil
}

// toMessageData reads a stream entry written by Publish, or by any producer
// that puts the payload under "body".
func toMessageData(stream string, config *Config, message redis.XMessage) base.MessageData {
	headers := make(map[string]string)
	var body []byte
	var key, messageID string
	timestamp := time.Now()

	for field, value := range message.Values {
		text := fmt.Sprintf("%v", value)
		switch field {
		case "body":
			body = []byte(text)
		case "key":
			key = text
		case "message_id":
			messageID = text
		case "timestamp":
			if ns, err := strconv.ParseInt(text, 10, 64); err == nil && ns > 0 {
				timestamp = time.Unix(0, ns)
			}
		default:
			if strings.HasPrefix(field, headerPrefix) {
				headers[strings.TrimPrefix(field, headerPrefix)] = text
			}
		}
	}

	return base.MessageData{
		ID:        message.ID,
		Headers:   headers,
		Body:      body,
		Timestamp: timestamp,
		Metadata: map[string]interface{}{
			"stream":         stream,
			"consumer_group": config.ConsumerGroup,
			"consumer_name":  config.ConsumerName,
			"key":            key,
			"message_id":     messageID,
		},
	}
}

// Subscribe creates the consumer group if needed and reads topic in a
// background goroutine until ctx is cancelled. Entries whose handler fails
// stay pending.
func (b *Broker) Subscribe(ctx context.Context, topic string, handler brokers.MessageHandler) error {
	client := b.getClient()
	if err := base.RequireConnected(client != nil, "Redis"); err != nil {
		return err
	}

	config := b.GetConfig().(*Config)

	err := client.XGroupCreateMkStream(ctx, topic, config.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.ConnectionError("failed to create consumer group", err)
	}

	logger := b.GetLogger().WithFields(
		logging.Field{Key: "stream", Value: topic},
		logging.Field{Key: "consumer_group", Value: config.ConsumerGroup},
	)
	messageHandler := base.NewMessageHandler(handler, logger, "redis", topic)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Redis subscription stopped")
				return
			default:
			}

			client := b.getClient()
			if client == nil {
				logger.Warn("Redis client closed, exiting subscription")
				return
			}

			streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    config.ConsumerGroup,
				Consumer: config.ConsumerName,
				Streams:  []string{topic, ">"},
				Count:    10,
				Block:    config.Block,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					logger.Error("Redis consumer error", err)
					time.Sleep(config.Block)
				}
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					incoming := base.ConvertToIncomingMessage(b.GetBrokerInfo(), toMessageData(topic, config, message))
					if !messageHandler.Handle(ctx, incoming) {
						continue
					}
					if err := client.XAck(ctx, topic, config.ConsumerGroup, message.ID).Err(); err != nil {
						logger.Error("Failed to acknowledge Redis message", err, logging.Field{Key: "message_id", Value: message.ID})
					}
				}
			}
		}
	}()

	return nil
}

func (b *Broker) Health() error {
	client := b.getClient()
	if err := base.RequireConnected(client != nil, "Redis"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.GetConfig().(*Config).Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return errors.ConnectionError("Redis ping failed", err)
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		err := b.client.Close()
		b.client = nil
		return err
	}
	return nil
}
