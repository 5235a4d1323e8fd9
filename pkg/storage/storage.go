package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/pkg/eval"
)

// RecentRunsLimit caps the recent runs index.
const RecentRunsLimit = 50

// Run is a stored generation result.
type Run struct {
	ID           uuid.UUID      `json:"run_id"`
	Seed         string         `json:"seed"`
	Scenario     string         `json:"scenario"`
	File         string         `json:"file"`
	DesiredItems []string       `json:"desired_items,omitempty"`
	Events       []eval.Event   `json:"events"`
	Text         string         `json:"text"`
	Variables    map[string]any `json:"variables,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Storage persists generated runs. Runs expire after a configured TTL.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Run operations (Redis-backed)
	SaveRun(ctx context.Context, run *Run) error
	// LoadRun returns nil, nil when the run does not exist or has expired.
	LoadRun(ctx context.Context, id uuid.UUID) (*Run, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error
	// RecentRuns returns up to limit run IDs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]uuid.UUID, error)
}
