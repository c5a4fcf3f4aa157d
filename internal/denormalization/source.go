package denormalization

import (
	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/event"
)

// EventSource is a Source over an already decoded event
type EventSource struct {
	event *event.Event
}

func NewEventSource(e *event.Event) *EventSource {
	return &EventSource{event: e}
}

func (s *EventSource) Event() *event.Event {
	return s.event
}

// MessageSource is a Source over a broker message
type MessageSource struct {
	message *brokers.IncomingMessage
	event   *event.Event
}

// NewMessageSource decodes msg. An undecodable body yields a
// malformed_event AppError.
func NewMessageSource(msg *brokers.IncomingMessage) (*MessageSource, error) {
	e, err := event.Decode(msg.Body)
	if err != nil {
		return nil, err
	}
	return &MessageSource{message: msg, event: e}, nil
}

func (s *MessageSource) Event() *event.Event {
	return s.event
}

// Message returns the broker message the event was decoded from
func (s *MessageSource) Message() *brokers.IncomingMessage {
	return s.message
}
