package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrItemNotFound signals a missing catalog item.
	ErrItemNotFound = fmt.Errorf("item %w", ErrNotFound)
	// ErrInvalidQuery signals a search query rejected before any I/O.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidItem signals an item that fails validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidTransaction signals a transaction that fails validation.
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrEmptyText signals text input with nothing to inspect.
	ErrEmptyText = errors.New("empty text")
	// ErrProviderUnavailable signals a mandatory collaborator that could not serve the request.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrWebSearchUnavailable signals a web search provider failure.
	ErrWebSearchUnavailable = errors.New("web search unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// Stage names a step of the search pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageEmbedQuery Stage = "embed_query"
	StageLexical    Stage = "lexical"
	StageRerank     Stage = "rerank"
	StageVector     Stage = "vector"
	StageHydrate    Stage = "hydrate"
)

// StageError reports which pipeline stage failed. It matches both
// ErrProviderUnavailable and the underlying cause under errors.Is.
type StageError struct {
	Stage Stage
	Err   error
}

// NewStageError wraps err as a failure of stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProviderUnavailable, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error { return []error{ErrProviderUnavailable, e.Err} }

// Timeout reports whether the stage failed because its deadline expired.
func (e *StageError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
