package task

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a submitted query.
// A record transitions processing -> completed or processing -> error
// exactly once and is never revisited afterwards.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"

	// StatusNotFound is never stored; it is the poll outcome for an
	// identifier that was never issued.
	StatusNotFound Status = "not_found"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Record tracks one submitted query through to its terminal outcome.
type Record struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Result    string    `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrNotFound is returned by Get for an unknown identifier.
	ErrNotFound = errors.New("task not found")

	// ErrExists is returned by Create when the identifier is already registered.
	ErrExists = errors.New("task already exists")

	// ErrTerminal is returned by SetResult when the record already reached
	// a terminal state.
	ErrTerminal = errors.New("task already terminal")
)

// Store is the task registry contract. Implementations must be safe for
// one writer per key and arbitrarily many concurrent readers.
//
// Records are never deleted: the registry grows for the process lifetime.
type Store interface {
	// Create inserts a record with StatusProcessing and empty result.
	Create(ctx context.Context, id string) error

	// SetResult applies the single terminal transition for id.
	SetResult(ctx context.Context, id string, status Status, result string) error

	// Get returns a snapshot of the record, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Len returns the number of registered tasks.
	Len(ctx context.Context) (int, error)
}
