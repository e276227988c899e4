// Package state keeps a history of mapping runs in SQLite.
// It records which script and workbook a run used, what it produced,
// and which section keys the workbook asked for but the script lacked.
package state

import (
	"context"
	"time"
)

// RunStatus is the outcome of a mapping run.
type RunStatus string

// Run statuses.
const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded mapping run.
type Run struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	ScriptPath   string    `json:"script_path"`
	WorkbookPath string    `json:"workbook_path"`
	OutputPath   string    `json:"output_path,omitempty"`
	Encoding     string    `json:"encoding,omitempty"`
	Dialect      string    `json:"dialect,omitempty"`
	Sections     int       `json:"sections"`
	Rows         int       `json:"rows"`
	Matched      int       `json:"matched"`
	Status       RunStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	MissingKeys  []string  `json:"missing_keys,omitempty"`
}

// Store persists run history.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}
