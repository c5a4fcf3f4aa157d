package denormalization

import (
	"context"
	"encoding/json"
	"time"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/event"
)

// Publisher is the part of a broker the sink needs
type Publisher interface {
	Publish(message *brokers.Message) error
}

// Counters receives one outcome per routed message
type Counters interface {
	IncSuccess()
	IncSkipped()
	IncFailed()
	IncError()
	IncMalformed()
}

// Topics names the output topics
type Topics struct {
	Success   string `validate:"required"`
	Failed    string `validate:"required"`
	Malformed string `validate:"required"`
}

// BrokerSink publishes events as JSON to the configured topics. Publish
// failures are logged and counted; the sink never returns them.
type BrokerSink struct {
	publisher Publisher
	topics    Topics
	counters  Counters
	logger    logging.Logger
	now       func() time.Time
}

func NewBrokerSink(publisher Publisher, topics Topics, counters Counters, logger logging.Logger) *BrokerSink {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &BrokerSink{
		publisher: publisher,
		topics:    topics,
		counters:  counters,
		logger:    logger.WithFields(logging.Field{Key: "component", Value: "sink"}),
		now:       time.Now,
	}
}

// ToSuccessTopic publishes an enriched or skipped event
func (s *BrokerSink) ToSuccessTopic(ctx context.Context, e *event.Event) {
	if e.Status() == event.StatusSkipped {
		s.counters.IncSkipped()
	} else {
		s.counters.IncSuccess()
	}
	s.publishEvent(ctx, s.topics.Success, e)
}

// ToErrorTopic publishes a failed event
func (s *BrokerSink) ToErrorTopic(ctx context.Context, e *event.Event) {
	s.counters.IncFailed()
	s.publishEvent(ctx, s.topics.Failed, e)
}

// ToMalformedTopic forwards a message that could not be decoded, byte for byte
func (s *BrokerSink) ToMalformedTopic(ctx context.Context, msg *brokers.IncomingMessage, cause error) {
	s.counters.IncMalformed()

	headers := map[string]string{
		"od_error_kind": string(errors.ErrTypeMalformedEvent),
	}
	if cause != nil {
		headers["od_error"] = cause.Error()
	}

	s.logger.WithContext(ctx).Warn("Routing malformed message",
		logging.Field{Key: "message_id", Value: msg.ID},
		logging.Field{Key: "error", Value: errorString(cause)},
	)

	s.publish(ctx, &brokers.Message{
		Topic:     s.topics.Malformed,
		Headers:   headers,
		Body:      msg.Body,
		Timestamp: s.now(),
		MessageID: msg.ID,
	})
}

func (s *BrokerSink) publishEvent(ctx context.Context, topic string, e *event.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		s.counters.IncError()
		s.logger.WithContext(ctx).Error("Failed to encode event", err,
			logging.Field{Key: "event_id", Value: e.ID()},
			logging.Field{Key: "topic", Value: topic},
		)
		return
	}

	s.publish(ctx, &brokers.Message{
		Topic:     topic,
		Key:       e.ObjectID(),
		Body:      body,
		Timestamp: s.now(),
		MessageID: e.ID(),
	})
}

func (s *BrokerSink) publish(ctx context.Context, message *brokers.Message) {
	if err := s.publisher.Publish(message); err != nil {
		s.counters.IncError()
		s.logger.WithContext(ctx).Error("Failed to publish message", err,
			logging.Field{Key: "topic", Value: message.Topic},
			logging.Field{Key: "message_id", Value: message.MessageID},
		)
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
