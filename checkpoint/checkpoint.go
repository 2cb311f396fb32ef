package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no checkpoint exists for a run.
var ErrNotFound = errors.New("checkpoint not found")

// ErrEmptyRunID is returned when a checkpoint has no run ID.
var ErrEmptyRunID = errors.New("checkpoint run ID is empty")

// Checkpoint is the resumable position of one run.
type Checkpoint struct {
	RunID string `json:"run_id"`

	// Stage is the next stage to execute. A run that has finished stores the
	// end marker.
	Stage string `json:"stage"`

	// State is the JSON-encoded workflow state.
	State json.RawMessage `json:"state"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists checkpoints. Implementations are safe for concurrent use.
type Store interface {
	// Save creates or replaces the checkpoint for cp.RunID.
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the checkpoint for runID or ErrNotFound.
	Load(ctx context.Context, runID string) (Checkpoint, error)

	// Delete removes the checkpoint for runID. Deleting a missing
	// checkpoint is not an error.
	Delete(ctx context.Context, runID string) error

	// Close releases resources held by the store.
	Close() error
}

func prepare(cp Checkpoint) (Checkpoint, error) {
	if cp.RunID == "" {
		return cp, ErrEmptyRunID
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	return cp, nil
}
