// Package metrics counts cache and event outcomes. Every increment is
// recorded on an OpenTelemetry counter and mirrored in an in-process
// snapshot served by the health endpoint.
package metrics

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "object-denormalizer/internal/metrics"

// Cache outcomes
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheExpired     = "expired"
	CacheDecodeError = "decode_error"
)

// Event outcomes
const (
	EventSuccess   = "success"
	EventSkipped   = "skipped"
	EventFailed    = "failed"
	EventError     = "error"
	EventMalformed = "malformed"
)

// Snapshot is a copy of every counter
type Snapshot struct {
	CacheHit         int64 `json:"cache_hit"`
	CacheMiss        int64 `json:"cache_miss"`
	CacheExpired     int64 `json:"cache_expired"`
	CacheDecodeError int64 `json:"cache_decode_error"`
	Success          int64 `json:"success"`
	Skipped          int64 `json:"skipped"`
	Failed           int64 `json:"failed"`
	Error            int64 `json:"error"`
	Malformed        int64 `json:"malformed"`
}

// JobMetrics is safe for concurrent use
type JobMetrics struct {
	cacheLookups metric.Int64Counter
	events       metric.Int64Counter

	cacheHit         atomic.Int64
	cacheMiss        atomic.Int64
	cacheExpired     atomic.Int64
	cacheDecodeError atomic.Int64
	success          atomic.Int64
	skipped          atomic.Int64
	failed           atomic.Int64
	errored          atomic.Int64
	malformed        atomic.Int64
}

// New creates job metrics on meter, or on the global meter provider when meter is nil
func New(meter metric.Meter) (*JobMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	cacheLookups, err := meter.Int64Counter(
		"object_denormalizer.cache.lookups",
		metric.WithDescription("Entity cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}

	events, err := meter.Int64Counter(
		"object_denormalizer.events",
		metric.WithDescription("Processed events by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &JobMetrics{
		cacheLookups: cacheLookups,
		events:       events,
	}, nil
}

func (m *JobMetrics) IncCacheHit() {
	m.cacheHit.Add(1)
	m.recordCache(CacheHit)
}

func (m *JobMetrics) IncCacheMiss() {
	m.cacheMiss.Add(1)
	m.recordCache(CacheMiss)
}

func (m *JobMetrics) IncCacheExpired() {
	m.cacheExpired.Add(1)
	m.recordCache(CacheExpired)
}

func (m *JobMetrics) IncCacheDecodeError() {
	m.cacheDecodeError.Add(1)
	m.recordCache(CacheDecodeError)
}

// IncSuccess counts an event enriched and sent to the success topic
func (m *JobMetrics) IncSuccess() {
	m.success.Add(1)
	m.recordEvent(EventSuccess)
}

// IncSkipped counts an event passed through without enrichment
func (m *JobMetrics) IncSkipped() {
	m.skipped.Add(1)
	m.recordEvent(EventSkipped)
}

// IncFailed counts an event sent to the failed topic
func (m *JobMetrics) IncFailed() {
	m.failed.Add(1)
	m.recordEvent(EventFailed)
}

// IncError counts an event that could not be published to any topic
func (m *JobMetrics) IncError() {
	m.errored.Add(1)
	m.recordEvent(EventError)
}

// IncMalformed counts an input message that was not a decodable event
func (m *JobMetrics) IncMalformed() {
	m.malformed.Add(1)
	m.recordEvent(EventMalformed)
}

func (m *JobMetrics) Snapshot() Snapshot {
	return Snapshot{
		CacheHit:         m.cacheHit.Load(),
		CacheMiss:        m.cacheMiss.Load(),
		CacheExpired:     m.cacheExpired.Load(),
		CacheDecodeError: m.cacheDecodeError.Load(),
		Success:          m.success.Load(),
		Skipped:          m.skipped.Load(),
		Failed:           m.failed.Load(),
		Error:            m.errored.Load(),
		Malformed:        m.malformed.Load(),
	}
}

func (m *JobMetrics) recordCache(outcome string) {
	m.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *JobMetrics) recordEvent(outcome string) {
	m.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
