package strategy

import (
	"context"

	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/content"
	"object-denormalizer/internal/event"
)

// Payload keys written by ContentStrategy
const (
	ContentDataKey       = "contentdata"
	FlagContentProcessed = "flags.content_data_processed"
	FlagContentCacheHit  = "flags.content_cache_hit"
)

// ContentResolver resolves content ids; *content.Service satisfies it
type ContentResolver interface {
	Resolve(ctx context.Context, correlationID, entityID string) (*content.Content, error)
}

// ContentStrategy embeds the referenced content record into the event
type ContentStrategy struct {
	resolver ContentResolver
}

func NewContentStrategy(resolver ContentResolver) *ContentStrategy {
	return &ContentStrategy{resolver: resolver}
}

// Execute resolves object.id and writes the record under "contentdata".
// Resolver errors are returned unchanged.
func (s *ContentStrategy) Execute(ctx context.Context, e *event.Event) error {
	c, err := s.resolver.Resolve(ctx, e.ID(), e.ObjectID())
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return err
		}
		return errors.StrategyError(TypeContent, "content resolution failed", err)
	}
	if c == nil {
		return errors.StrategyError(TypeContent, "resolver returned no content", nil).
			WithContext("object_id", e.ObjectID())
	}

	if err := e.Set(ContentDataKey, c.Fields()); err != nil {
		return errors.StrategyError(TypeContent, "cannot write content data", err)
	}
	if err := e.Set(FlagContentProcessed, true); err != nil {
		return errors.StrategyError(TypeContent, "cannot write content flags", err)
	}
	if err := e.Set(FlagContentCacheHit, c.CacheHit); err != nil {
		return errors.StrategyError(TypeContent, "cannot write content flags", err)
	}

	return nil
}

// CustomStrategy handles object types that intentionally bypass
// denormalization: the event passes through marked as skipped.
type CustomStrategy struct{}

func (CustomStrategy) Execute(_ context.Context, e *event.Event) error {
	e.MarkSkipped()
	return nil
}

// Default returns the built-in strategy table
func Default(resolver ContentResolver) map[string]Strategy {
	return map[string]Strategy{
		TypeContent: NewContentStrategy(resolver),
		TypeCustom:  CustomStrategy{},
	}
}
