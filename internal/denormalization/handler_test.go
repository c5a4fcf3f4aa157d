package denormalization

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-denormalizer/internal/brokers"
	apperrors "object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/event"
	"object-denormalizer/internal/strategy"
)

type routingRecorder struct {
	recordingSink
	malformed []*brokers.IncomingMessage
	causes    []error
}

func (r *routingRecorder) ToMalformedTopic(_ context.Context, msg *brokers.IncomingMessage, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.malformed = append(r.malformed, msg)
	r.causes = append(r.causes, cause)
}

func TestMessageHandler_ProcessesEvents(t *testing.T) {
	svc := newServiceWith(t, map[string]strategy.Strategy{
		"content": strategy.Func(func(ctx context.Context, e *event.Event) error {
			return e.Set("contentdata.name", "Foo")
		}),
	})
	sink := &routingRecorder{}
	handler := NewMessageHandler(svc, sink)

	err := handler(context.Background(), &brokers.IncomingMessage{
		ID:   "telemetry.raw-0-1",
		Body: []byte(`{"mid":"e1","object":{"id":"c1","type":"content"}}`),
	})

	require.NoError(t, err)
	require.Len(t, sink.success, 1)
	assert.Equal(t, "Foo", sink.success[0].GetString("contentdata.name"))
	assert.Empty(t, sink.malformed)
}

func TestMessageHandler_FailedEventsAreNotRedelivered(t *testing.T) {
	svc := newServiceWith(t, map[string]strategy.Strategy{
		"content": strategy.Func(func(context.Context, *event.Event) error {
			return errors.New("boom")
		}),
	})
	sink := &routingRecorder{}

	err := NewMessageHandler(svc, sink)(context.Background(), &brokers.IncomingMessage{
		Body: []byte(`{"mid":"e1","object":{"id":"c1","type":"content"}}`),
	})

	assert.NoError(t, err)
	assert.Len(t, sink.failed, 1)
}

func TestMessageHandler_RoutesMalformedMessages(t *testing.T) {
	svc := newServiceWith(t, map[string]strategy.Strategy{"custom": strategy.CustomStrategy{}})

	for _, body := range []string{"", "{not json", "[1,2]", "null", `{"a":1} trailing`} {
		t.Run(body, func(t *testing.T) {
			sink := &routingRecorder{}
			msg := &brokers.IncomingMessage{ID: "m", Body: []byte(body)}

			err := NewMessageHandler(svc, sink)(context.Background(), msg)

			require.NoError(t, err)
			assert.Zero(t, sink.calls())
			require.Len(t, sink.malformed, 1)
			assert.Same(t, msg, sink.malformed[0])
			assert.True(t, apperrors.IsType(sink.causes[0], apperrors.ErrTypeMalformedEvent))
		})
	}
}

func TestMessageSource(t *testing.T) {
	msg := &brokers.IncomingMessage{ID: "m1", Body: []byte(`{"mid":"e9"}`)}

	source, err := NewMessageSource(msg)
	require.NoError(t, err)
	assert.Equal(t, "e9", source.Event().ID())
	assert.Same(t, msg, source.Message())

	_, err = NewMessageSource(&brokers.IncomingMessage{Body: []byte("nope")})
	assert.Error(t, err)
}
