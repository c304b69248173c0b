// Package importer defines the contract a data source adapter fulfils so the
// pipeline never depends on source specifics: a single-pass lazy extraction
// sequence, a deterministic transform, and a cheap count estimate.
package importer

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// SourceRecord is one logical unit pulled from an external source, in the
// source's native shape. Immutable once produced.
type SourceRecord struct {
	// ID is unique within the source's namespace.
	ID string `json:"id"`

	// Source names the origin, e.g. "bills" or "census-tracts".
	Source string `json:"source"`

	ExtractedAt time.Time `json:"extractedAt"`

	Payload map[string]any `json:"payload"`
}

// TargetRecord is the transformed representation handed to a sink.
type TargetRecord struct {
	// ID is unique within the destination's namespace.
	ID string `json:"id"`

	// SourceID points back at the originating SourceRecord for traceability.
	SourceID string `json:"sourceId"`

	Payload map[string]any `json:"payload"`
}

// Importer binds one source configuration to an extraction sequence and a
// transform. An instance drives at most one pipeline run; restarting
// extraction requires a fresh instance.
type Importer interface {
	// Extract yields records in source-stable order, paging through the
	// source as needed. Source failures (auth, rate limit, transport) are
	// surfaced by yielding a non-nil error, after which the sequence ends.
	// The sequence is single-pass.
	Extract(ctx context.Context) iter.Seq2[SourceRecord, error]

	// Transform maps one source record to its target shape. It must be
	// deterministic for identical input and needs no further source I/O.
	// Returns a TransformError when the payload cannot be mapped.
	Transform(ctx context.Context, src SourceRecord) (TargetRecord, error)

	// EstimatedCount returns a best-effort total for progress reporting,
	// possibly via one cheap network call. An error means the count is
	// unknown and must not prevent extraction.
	EstimatedCount(ctx context.Context) (int, error)
}

// Sink receives transformed records. Write failures are retried by the
// scheduler exactly like transform failures, so writes should be idempotent.
type Sink interface {
	Write(ctx context.Context, rec TargetRecord) error
}

// TransformError reports a payload that cannot be mapped to the target
// shape, such as a missing required field or an unrecognized enum value.
type TransformError struct {
	RecordID string
	Field    string
	Err      error
}

func (e *TransformError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("transform record %s: field %s: %v", e.RecordID, e.Field, e.Err)
	}
	return fmt.Sprintf("transform record %s: %v", e.RecordID, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// NewTransformError builds a TransformError for the named record and field.
// Pass an empty field when the whole payload is at fault.
func NewTransformError(recordID, field string, err error) *TransformError {
	return &TransformError{
		RecordID: recordID,
		Field:    field,
		Err:      err,
	}
}
