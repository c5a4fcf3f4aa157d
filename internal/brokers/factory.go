package brokers

import (
	"fmt"

	"object-denormalizer/internal/common/errors"
)

// Factory creates brokers from one concrete config type
type Factory[C BrokerConfig] struct {
	typeName string
	creator  func(C) (Broker, error)
}

// NewFactory wraps a typed constructor as a BrokerFactory
func NewFactory[C BrokerConfig](typeName string, creator func(C) (Broker, error)) *Factory[C] {
	return &Factory[C]{
		typeName: typeName,
		creator:  creator,
	}
}

// Create checks the config type before calling the constructor
func (f *Factory[C]) Create(config BrokerConfig) (Broker, error) {
	typed, ok := config.(C)
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("invalid config type for %s, expected %T but got %T", f.typeName, typed, config))
	}
	return f.creator(typed)
}

func (f *Factory[C]) GetType() string {
	return f.typeName
}
