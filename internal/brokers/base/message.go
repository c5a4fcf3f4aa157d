package base

import (
	"context"
	"fmt"
	"time"

	"object-denormalizer/internal/brokers"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
)

// MessageData is the broker-neutral view of one delivery.
type MessageData struct {
	ID        string
	Headers   map[string]string
	Body      []byte
	Timestamp time.Time
	Metadata  map[string]interface{}
}

func ConvertToIncomingMessage(brokerInfo brokers.BrokerInfo, data MessageData) *brokers.IncomingMessage {
	return &brokers.IncomingMessage{
		ID:        data.ID,
		Headers:   data.Headers,
		Body:      data.Body,
		Timestamp: data.Timestamp,
		Source:    brokerInfo,
		Metadata:  data.Metadata,
	}
}

// MessageHandler wraps a subscriber handler with logging and panic recovery.
type MessageHandler struct {
	handler    brokers.MessageHandler
	logger     logging.Logger
	brokerType string
	topic      string
}

func NewMessageHandler(
	handler brokers.MessageHandler,
	logger logging.Logger,
	brokerType string,
	topic string,
) *MessageHandler {
	return &MessageHandler{
		handler:    handler,
		logger:     logger,
		brokerType: brokerType,
		topic:      topic,
	}
}

// Handle runs the handler for msg. It returns true when the delivery can be
// acknowledged and false when it should be redelivered. A panicking handler
// is logged and the delivery acknowledged, so one poison message cannot
// stall the subscription.
func (mh *MessageHandler) Handle(ctx context.Context, msg *brokers.IncomingMessage, extraFields ...logging.Field) (ok bool) {
	fields := []logging.Field{
		{Key: "broker_type", Value: mh.brokerType},
		{Key: "topic", Value: mh.topic},
		{Key: "message_id", Value: msg.ID},
	}
	fields = append(fields, extraFields...)

	defer func() {
		if r := recover(); r != nil {
			mh.logger.Error(
				fmt.Sprintf("Panic handling %s message", mh.brokerType),
				errors.InternalError(fmt.Sprintf("handler panic: %v", r), nil),
				fields...,
			)
			ok = true
		}
	}()

	if err := mh.handler(ctx, msg); err != nil {
		mh.logger.Error(
			fmt.Sprintf("Error handling %s message", mh.brokerType),
			err,
			fields...,
		)
		return false
	}
	return true
}

// HeaderConverter normalizes transport header maps to strings.
type HeaderConverter struct{}

func (hc *HeaderConverter) ToStringMap(headers interface{}) map[string]string {
	result := make(map[string]string)

	switch h := headers.(type) {
	case map[string]string:
		return h
	case map[string]interface{}:
		for k, v := range h {
			result[k] = fmt.Sprintf("%v", v)
		}
	case map[interface{}]interface{}:
		for k, v := range h {
			result[fmt.Sprintf("%v", k)] = fmt.Sprintf("%v", v)
		}
	}

	return result
}

// FromStringMap converts headers to map[string]interface{}, the shape AMQP
// tables and stream fields expect.
func (hc *HeaderConverter) FromStringMap(headers map[string]string) map[string]interface{} {
	result := make(map[string]interface{}, len(headers))
	for k, v := range headers {
		result[k] = v
	}
	return result
}
