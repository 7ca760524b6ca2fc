package services

import (
	"errors"
	"fmt"
)

// Fatal pipeline conditions. Everything else is caught at its originating
// stage and degraded.
var (
	ErrTenderNotFound = errors.New("tender not found")
	ErrNoTextSource   = errors.New("no text source available")
)

// ExtractionError means the document yielded no viable text: unsupported
// format, corrupt content, or a recovered run below the viability threshold.
// The orchestrator treats it as fatal for the run.
type ExtractionError struct {
	Format string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s): %s", e.Format, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ClassificationError is a per-chunk soft failure: the chunk is skipped and
// segmentation continues.
type ClassificationError struct {
	Chunk  int
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chunk %d classification failed: %s: %v", e.Chunk, e.Reason, e.Err)
	}
	return fmt.Sprintf("chunk %d classification failed: %s", e.Chunk, e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// GenerationError wraps a per-batch completion failure after retries; the
// batch is filled with fallback answers instead.
type GenerationError struct {
	Batch int
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("batch %d generation failed: %v", e.Batch, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError records a failed response write. Logged, never aborts the
// remaining batches.
type PersistenceError struct {
	TenderID      string
	QuestionIndex int
	Err           error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist response %s/%d: %v", e.TenderID, e.QuestionIndex, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
