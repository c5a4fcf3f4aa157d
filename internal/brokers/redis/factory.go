package redis

import (
	"object-denormalizer/internal/brokers"
)

// GetFactory returns the factory registered under "redis".
func GetFactory() brokers.BrokerFactory {
	return brokers.NewFactory[*Config]("redis", func(config *Config) (brokers.Broker, error) {
		return NewBroker(config)
	})
}
