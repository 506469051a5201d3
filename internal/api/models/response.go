package models

import (
	"time"

	"community-load/internal/store"
)

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RunCreatedResponse is returned when a run is queued
type RunCreatedResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// RunSummary is a run without its log, as listed by GET /api/v1/runs
type RunSummary struct {
	RunID           string     `json:"run_id"`
	ConfigID        int64      `json:"config_id"`
	Status          string     `json:"status"`
	ProgressCurrent int        `json:"progress_current"`
	ProgressTotal   int        `json:"progress_total"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func NewRunSummary(r *store.Run) RunSummary {
	return RunSummary{
		RunID:           r.ID,
		ConfigID:        r.ConfigID,
		Status:          string(r.Status),
		ProgressCurrent: r.ProgressCurrent,
		ProgressTotal:   r.ProgressTotal,
		ProgressMessage: r.ProgressMessage,
		CreatedAt:       r.CreatedAt,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		ErrorMessage:    r.ErrorMessage,
	}
}
