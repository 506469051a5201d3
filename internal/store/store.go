// Package store persists scenario configs and the runs launched from them.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a config or run id does not exist.
var ErrNotFound = errors.New("not found")

type Config struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	YAMLText  string    `json:"yaml_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigUpdate changes the non-nil fields.
type ConfigUpdate struct {
	Name     *string
	YAMLText *string
}

type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Active reports whether the run has not reached a terminal status.
func (s RunStatus) Active() bool {
	return s == StatusQueued || s == StatusRunning
}

type Run struct {
	ID       string    `json:"run_id"`
	ConfigID int64     `json:"config_id"`
	Status   RunStatus `json:"status"`

	ProgressCurrent int    `json:"progress_current"`
	ProgressTotal   int    `json:"progress_total"`
	ProgressMessage string `json:"progress_message,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Log          string `json:"log_text"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type Progress struct {
	Current int
	Total   int
	Message string
}

// Store is implemented by MemoryStore and PostgresStore.
type Store interface {
	CreateConfig(ctx context.Context, name, yamlText string) (*Config, error)
	GetConfig(ctx context.Context, id int64) (*Config, error)
	// ListConfigs returns newest first.
	ListConfigs(ctx context.Context) ([]*Config, error)
	UpdateConfig(ctx context.Context, id int64, upd ConfigUpdate) (*Config, error)

	// CreateRun queues a run of an existing config under a new UUID.
	CreateRun(ctx context.Context, configID int64) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns newest first, optionally only queued and running runs.
	ListRuns(ctx context.Context, activeOnly bool) ([]*Run, error)
	// ClaimNextRun marks the oldest queued run as running and returns it, or nil when
	// nothing is queued.
	ClaimNextRun(ctx context.Context) (*Run, error)
	UpdateProgress(ctx context.Context, id string, p Progress) error
	AppendLog(ctx context.Context, id, text string) error
	// FinishRun records a terminal status. errMsg is kept for failed runs.
	FinishRun(ctx context.Context, id string, status RunStatus, errMsg string) error

	Close() error
}

const maxProgressMessage = 500

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
