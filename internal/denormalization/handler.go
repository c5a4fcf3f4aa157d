package denormalization

import (
	"context"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/common/logging"
)

// MalformedSink receives broker messages that are not events
type MalformedSink interface {
	ToMalformedTopic(ctx context.Context, msg *brokers.IncomingMessage, cause error)
}

// RoutingSink is the full set of outputs a subscription needs
type RoutingSink interface {
	Sink
	MalformedSink
}

// NewMessageHandler adapts the service to a broker subscription. Every
// message is routed to some topic, so the handler never asks for redelivery.
func NewMessageHandler(service *Service, sink RoutingSink) brokers.MessageHandler {
	return func(ctx context.Context, msg *brokers.IncomingMessage) error {
		ctx = logging.ContextWithMessageID(ctx, msg.ID)

		source, err := NewMessageSource(msg)
		if err != nil {
			sink.ToMalformedTopic(ctx, msg, err)
			return nil
		}

		service.Process(ctx, source, sink)
		return nil
	}
}
