// Package base holds the pieces shared by the broker implementations:
// naming and logging, config validation on connect, and delivery handling.
package base

import (
	"fmt"
	"sync"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
)

// BaseBroker carries the name, logger and current config of a broker.
type BaseBroker struct {
	name   string
	logger logging.Logger
	config brokers.BrokerConfig
	mu     sync.RWMutex
}

// NewBaseBroker validates config and sets up a logger tagged with the broker name.
func NewBaseBroker(name string, config brokers.BrokerConfig) (*BaseBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid %s config: %v", name, err))
	}

	return &BaseBroker{
		name:   name,
		config: config,
		logger: brokerLogger(name, config),
	}, nil
}

func brokerLogger(name string, config brokers.BrokerConfig) logging.Logger {
	return logging.GetGlobalLogger().WithFields(
		logging.Field{Key: "broker", Value: name},
		logging.Field{Key: "connection", Value: config.GetConnectionString()},
	)
}

func (b *BaseBroker) Name() string {
	return b.name
}

func (b *BaseBroker) GetLogger() logging.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.logger
}

func (b *BaseBroker) GetConfig() brokers.BrokerConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// UpdateConfig swaps in a new config on reconnect.
func (b *BaseBroker) UpdateConfig(config brokers.BrokerConfig) error {
	if err := config.Validate(); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid %s config: %v", b.name, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = config
	b.logger = brokerLogger(b.name, config)
	return nil
}

// GetBrokerInfo describes this broker as the source of incoming messages.
func (b *BaseBroker) GetBrokerInfo() brokers.BrokerInfo {
	config := b.GetConfig()
	return brokers.BrokerInfo{
		Name: b.name,
		Type: config.GetType(),
		URL:  config.GetConnectionString(),
	}
}
