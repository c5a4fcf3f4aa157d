package cache

import "time"

// Entry is the envelope persisted for every cached value: the value itself
// and the time it was written, in unix milliseconds.
type Entry[T any] struct {
	Value     T     `json:"value"`
	WrittenAt int64 `json:"written_at"`
}

// NewEntry wraps value with the write time now.
func NewEntry[T any](value T, now time.Time) Entry[T] {
	return Entry[T]{Value: value, WrittenAt: now.UnixMilli()}
}

// Age returns how long before now the entry was written. Entries written
// in the future relative to now have a negative age.
func (e Entry[T]) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-e.WrittenAt) * time.Millisecond
}
