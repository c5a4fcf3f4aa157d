package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeCacheDecode marks a stored cache entry that could not be decoded
	ErrTypeCacheDecode ErrorType = "cache_decode"
	// ErrTypeLookup marks a failed fetch from the authoritative lookup service
	ErrTypeLookup ErrorType = "lookup"
	// ErrTypeStrategy marks a failure inside a denormalization strategy
	ErrTypeStrategy ErrorType = "strategy"
	// ErrTypeUnregisteredStrategy marks a denormalizable event with no registered strategy
	ErrTypeUnregisteredStrategy ErrorType = "unregistered_strategy"
	// ErrTypeMalformedEvent marks an input message that is not a telemetry event
	ErrTypeMalformedEvent ErrorType = "malformed_event"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// CacheDecodeError reports a cache entry under key whose stored bytes are unreadable.
func CacheDecodeError(key string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeCacheDecode,
		Message: fmt.Sprintf("cannot decode cache entry %q", key),
		Cause:   cause,
	}
}

// LookupError reports a failed authoritative fetch for id.
func LookupError(id, msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeLookup,
		Message: fmt.Sprintf("lookup of %q failed: %s", id, msg),
		Cause:   cause,
	}
}

// StrategyError reports a failure inside the strategy for objectType.
func StrategyError(objectType, msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeStrategy,
		Message: fmt.Sprintf("%s strategy: %s", objectType, msg),
		Cause:   cause,
	}
}

// UnregisteredStrategyError reports a denormalizable object type with no strategy.
func UnregisteredStrategyError(objectType string) *AppError {
	return &AppError{
		Type:    ErrTypeUnregisteredStrategy,
		Message: fmt.Sprintf("no strategy registered for object type %q", objectType),
	}
}

// MalformedEventError reports an input message that cannot be decoded as an event.
func MalformedEventError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeMalformedEvent,
		Message: msg,
		Cause:   cause,
	}
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil || !stderrors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}

// IsType checks if an error, or any error it wraps, is an AppError of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ErrTypeInternal
	}

	return appErr.Type
}
