package kafka

import (
	"object-denormalizer/internal/brokers"
)

// GetFactory returns the factory registered under "kafka".
func GetFactory() brokers.BrokerFactory {
	return brokers.NewFactory[*Config]("kafka", func(config *Config) (brokers.Broker, error) {
		return NewBroker(config)
	})
}
