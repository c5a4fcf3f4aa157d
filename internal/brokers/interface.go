package brokers

import (
	"context"
	"time"
)

// Broker is a message transport used both as the event source and as the
// output sink.
type Broker interface {
	Name() string
	Connect(config BrokerConfig) error
	Publish(message *Message) error
	// Subscribe consumes topic in the background until ctx is cancelled
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
	Health() error
	Close() error
}

type BrokerConfig interface {
	Validate() error
	GetConnectionString() string
	GetType() string
}

// Message is an outgoing message. Key is used for partitioning where the
// transport supports it.
type Message struct {
	Topic     string
	Key       string
	Headers   map[string]string
	Body      []byte
	Timestamp time.Time
	MessageID string
}

// MessageHandler processes one delivery. A non-nil error asks the broker to
// redeliver where the transport supports it.
type MessageHandler func(ctx context.Context, message *IncomingMessage) error

type IncomingMessage struct {
	ID        string
	Headers   map[string]string
	Body      []byte
	Timestamp time.Time
	Source    BrokerInfo
	Metadata  map[string]interface{}
}

type BrokerInfo struct {
	Name string
	Type string
	URL  string
}

type BrokerFactory interface {
	Create(config BrokerConfig) (Broker, error)
	GetType() string
}
