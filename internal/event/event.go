// Package event models a telemetry event in flight through the denormalizer.
//
// An Event wraps the decoded JSON object. Object identity (object.id and
// object.type) is read-only; everything else may be enriched in place. The
// processing status is kept on the Event and mirrored into the payload under
// flags and metadata so downstream consumers can see it.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"object-denormalizer/internal/common/errors"
)

// Status is the processing state of an event
type Status int

const (
	StatusPending Status = iota
	StatusSkipped
	StatusFailed
	StatusDenormalized
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusDenormalized:
		return "denormalized"
	default:
		return "unknown"
	}
}

// Payload keys written by the denormalizer
const (
	FlagProcessed    = "flags.od_processed"
	FlagSkipped      = "flags.od_skipped"
	MetaErrorKind    = "metadata.od_error_kind"
	MetaErrorMessage = "metadata.od_error"
)

// Event is not safe for concurrent use; one goroutine owns it per pass.
type Event struct {
	payload        map[string]interface{}
	status         Status
	failureKind    string
	failureMessage string
}

// New wraps an already decoded telemetry map
func New(payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{payload: payload}
}

// Decode parses a raw message. Anything that is not a JSON object yields a
// malformed_event AppError.
func Decode(data []byte) (*Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.MalformedEventError("empty message", nil)
	}

	var payload map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, errors.MalformedEventError("message is not a JSON object", err)
	}
	if payload == nil {
		return nil, errors.MalformedEventError("message is not a JSON object", nil)
	}
	if decoder.More() {
		return nil, errors.MalformedEventError("trailing data after JSON object", nil)
	}

	return New(payload), nil
}

// ID is the message id (mid) used to correlate logs and replays, or the
// event id (eid) when mid is missing.
func (e *Event) ID() string {
	if mid := e.GetString("mid"); mid != "" {
		return mid
	}
	return e.GetString("eid")
}

func (e *Event) ObjectType() string {
	return e.GetString("object.type")
}

func (e *Event) ObjectID() string {
	return e.GetString("object.id")
}

// ObjectFieldsPresent reports whether the event carries a non-empty object reference
func (e *Event) ObjectFieldsPresent() bool {
	object, ok := e.payload["object"].(map[string]interface{})
	return ok && len(object) > 0
}

// CanDeNormalize reports whether the object reference is complete enough to
// resolve, regardless of whether a strategy exists for its type.
func (e *Event) CanDeNormalize() bool {
	return strings.TrimSpace(e.ObjectID()) != "" && strings.TrimSpace(e.ObjectType()) != ""
}

func (e *Event) Status() Status {
	return e.status
}

func (e *Event) FailureKind() string {
	return e.failureKind
}

func (e *Event) FailureMessage() string {
	return e.failureMessage
}

// Payload returns the underlying map. Callers must not rewrite object identity.
func (e *Event) Payload() map[string]interface{} {
	return e.payload
}

func (e *Event) MarkSkipped() {
	e.status = StatusSkipped
	e.setPath(FlagProcessed, false)
	e.setPath(FlagSkipped, true)
}

func (e *Event) MarkDenormalized() {
	e.status = StatusDenormalized
	e.setPath(FlagProcessed, true)
}

// MarkFailed records the failure kind and message. An empty message is
// replaced by the kind so failed events never carry a blank reason.
func (e *Event) MarkFailed(kind, message string) {
	if kind == "" {
		kind = string(errors.ErrTypeInternal)
	}
	if message == "" {
		message = kind
	}

	e.status = StatusFailed
	e.failureKind = kind
	e.failureMessage = message
	e.setPath(FlagProcessed, false)
	e.setPath(MetaErrorKind, kind)
	e.setPath(MetaErrorMessage, message)
}

// Get returns the value at a dotted path such as "object.id"
func (e *Event) Get(path string) (interface{}, bool) {
	var current interface{} = e.payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the value at path rendered as a string; numbers are
// formatted, anything else non-string is "".
func (e *Event) GetString(path string) string {
	value, ok := e.Get(path)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64, int, int64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Set writes value at a dotted path, creating intermediate objects.
// The object reference itself cannot be replaced.
func (e *Event) Set(path string, value interface{}) error {
	if path == "" {
		return errors.ValidationError("empty event path")
	}
	if path == "object" || path == "object.id" || path == "object.type" {
		return errors.ValidationError(fmt.Sprintf("event field %q is read-only", path))
	}
	if !e.setPath(path, value) {
		return errors.ValidationError(fmt.Sprintf("cannot set %q: a parent is not an object", path))
	}
	return nil
}

func (e *Event) setPath(path string, value interface{}) bool {
	parts := strings.Split(path, ".")
	current := e.payload
	for _, part := range parts[:len(parts)-1] {
		next, exists := current[part]
		if !exists || next == nil {
			child := make(map[string]interface{})
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return false
		}
		current = child
	}
	current[parts[len(parts)-1]] = value
	return true
}

// MarshalJSON encodes the payload, including the mirrored status fields
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.payload)
}
