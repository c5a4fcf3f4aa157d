package rabbitmq

import (
	"object-denormalizer/internal/brokers"
)

// GetFactory returns the factory registered under "rabbitmq".
func GetFactory() brokers.BrokerFactory {
	return brokers.NewFactory[*Config]("rabbitmq", func(config *Config) (brokers.Broker, error) {
		return NewBroker(config)
	})
}
