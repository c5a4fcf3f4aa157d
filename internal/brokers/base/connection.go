package base

import (
	"reflect"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/common/errors"
)

// ConnectionManager runs the checks every Connect shares before handing
// over to the broker-specific dial.
type ConnectionManager struct {
	baseBroker *BaseBroker
}

func NewConnectionManager(baseBroker *BaseBroker) *ConnectionManager {
	return &ConnectionManager{
		baseBroker: baseBroker,
	}
}

// ValidateAndConnect checks that config has the same dynamic type as
// expectedType, validates it, stores it and calls connectFn.
func (cm *ConnectionManager) ValidateAndConnect(
	config brokers.BrokerConfig,
	expectedType interface{},
	connectFn func(brokers.BrokerConfig) error,
) error {
	if config == nil || reflect.TypeOf(expectedType) != reflect.TypeOf(config) {
		return errors.ConfigError("invalid config type for " + cm.baseBroker.Name() + " broker")
	}

	if err := cm.baseBroker.UpdateConfig(config); err != nil {
		return err
	}

	return connectFn(config)
}

// RequireConnected returns a connection error naming brokerType when the
// broker has no live client.
func RequireConnected(connected bool, brokerType string) error {
	if !connected {
		return errors.ConnectionError(brokerType+" client not initialized", nil)
	}
	return nil
}
