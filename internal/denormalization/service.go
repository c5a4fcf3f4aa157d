// Package denormalization routes telemetry events through the strategy for
// their object type and hands every event to exactly one sink.
package denormalization

import (
	"context"
	"fmt"

	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/event"
	"object-denormalizer/internal/strategy"
)

// Source yields the event for one processing pass
type Source interface {
	Event() *event.Event
}

// Sink receives processed events. Each event reaches exactly one of the two
// methods exactly once.
type Sink interface {
	ToSuccessTopic(ctx context.Context, e *event.Event)
	ToErrorTopic(ctx context.Context, e *event.Event)
}

// Service is the per-event error boundary. It holds no per-event state and
// is safe for concurrent use.
type Service struct {
	registry *strategy.Registry
	logger   logging.Logger
}

func NewService(registry *strategy.Registry, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Service{
		registry: registry,
		logger:   logger.WithFields(logging.Field{Key: "component", Value: "denormalizer"}),
	}
}

// Process runs one event to completion. Errors and panics raised while
// denormalizing mark the event failed and send it to the error topic; they
// never escape.
func (s *Service) Process(ctx context.Context, source Source, sink Sink) {
	e := source.Event()
	if e == nil {
		e = event.New(nil)
		e.MarkFailed(string(errors.ErrTypeMalformedEvent), "source yielded no event")
		s.logger.WithContext(ctx).Warn("Source yielded no event, routing to error topic")
		sink.ToErrorTopic(ctx, e)
		return
	}

	logger := s.logger.WithContext(ctx).WithFields(
		logging.Field{Key: "event_id", Value: e.ID()},
		logging.Field{Key: "object_type", Value: e.ObjectType()},
		logging.Field{Key: "object_id", Value: e.ObjectID()},
	)

	if err := s.denormalize(ctx, e, logger); err != nil {
		kind := errorKind(err)
		e.MarkFailed(kind, err.Error())
		logger.Error("Denormalization failed, routing event to error topic", err,
			logging.Field{Key: "kind", Value: kind},
		)
		sink.ToErrorTopic(ctx, e)
		return
	}

	sink.ToSuccessTopic(ctx, e)
}

func (s *Service) denormalize(ctx context.Context, e *event.Event, logger logging.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("panic during denormalization: %v", r), nil)
		}
	}()

	if !e.ObjectFieldsPresent() {
		logger.Debug("Object fields absent, passing event through")
		e.MarkSkipped()
		return nil
	}

	if !e.CanDeNormalize() {
		logger.Debug("Object reference incomplete, skipping denormalization")
		e.MarkSkipped()
		return nil
	}

	st, ok := s.registry.Lookup(e.ObjectType())
	if !ok {
		return errors.UnregisteredStrategyError(e.ObjectType())
	}

	logger.Debug("Denormalizing event")
	if err := st.Execute(ctx, e); err != nil {
		return err
	}

	if e.Status() == event.StatusPending {
		e.MarkDenormalized()
	}
	return nil
}

// errorKind labels a failure. Errors that carry no kind of their own came
// out of a strategy.
func errorKind(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return string(appErr.Type)
	}
	return string(errors.ErrTypeStrategy)
}
