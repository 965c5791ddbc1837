package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"iqtoolkit/analyzer/pkg/analysis"
)

// Record status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one stored analysis, successful or not.
type Record struct {
	// ID is a UUID assigned by NewRecord.
	ID string `json:"id"`

	// RequestID correlates the record with server logs.
	RequestID string `json:"request_id,omitempty"`

	// Query is the SQL text that was analyzed.
	Query string `json:"query"`

	// Context is the schema context sent with the query, if any.
	Context string `json:"context,omitempty"`

	// Provider produced the completion; empty when every provider failed.
	Provider string `json:"provider,omitempty"`

	// FallbackUsed reports whether the fallback provider answered.
	FallbackUsed bool `json:"fallback_used"`

	// Status is StatusSuccess or StatusFailed.
	Status string `json:"status"`

	// Error is the sanitized failure message for failed analyses.
	Error string `json:"error,omitempty"`

	// Result is the extracted analysis; nil for failed analyses.
	Result *analysis.AnalysisResult `json:"result,omitempty"`

	// Duration is the end-to-end analysis time.
	Duration time.Duration `json:"duration"`

	// CreatedAt is when the analysis finished.
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a record with a fresh ID and timestamp.
func NewRecord(requestID, query, queryContext string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		RequestID: requestID,
		Query:     query,
		Context:   queryContext,
		CreatedAt: time.Now().UTC(),
	}
}

// Filter selects records for List and Count.
type Filter struct {
	// Provider matches records produced by this provider.
	Provider string

	// Status matches StatusSuccess or StatusFailed.
	Status string

	// Since and Until bound CreatedAt (inclusive).
	Since *time.Time
	Until *time.Time

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// Pagination limits.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// EffectiveLimit clamps Limit into [1, MaxLimit].
func (f Filter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// Store persists analysis records. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts a record.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns matching records, newest first.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Count returns the number of matching records, ignoring Limit and Offset.
	Count(ctx context.Context, filter Filter) (int64, error)

	// DeleteBefore removes records created before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the n oldest records.
	DeleteOldest(ctx context.Context, n int64) (int64, error)

	// Close releases resources held by the store.
	Close() error
}
