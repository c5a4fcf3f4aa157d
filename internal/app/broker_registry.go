package app

import (
	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/brokers/kafka"
	"object-denormalizer/internal/brokers/rabbitmq"
	redisbroker "object-denormalizer/internal/brokers/redis"
)

// NewBrokerRegistry returns a registry holding every supported broker factory
func NewBrokerRegistry() *brokers.Registry {
	registry := brokers.NewRegistry()
	registry.Register(kafka.GetFactory())
	registry.Register(rabbitmq.GetFactory())
	registry.Register(redisbroker.GetFactory())
	return registry
}
