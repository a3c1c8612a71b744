package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const maxReportErrorLen = 500

// SyncReport aggregates the outcome of one batch cycle. It is filled while
// the cycle runs and frozen by Finalize, never mutated afterwards.
type SyncReport struct {
	CycleID      string            `json:"CYCLE_ID" yaml:"CYCLE_ID"`
	Name         string            `json:"NAME" yaml:"NAME"`
	StartedAt    time.Time         `json:"STARTED_AT" yaml:"STARTED_AT"`
	FinishedAt   time.Time         `json:"FINISHED_AT" yaml:"FINISHED_AT"`
	Synced       map[string]string `json:"SYNCED" yaml:"SYNCED"`
	Failed       map[string]string `json:"FAILED" yaml:"FAILED"`
	NotProcessed []string          `json:"NOT_PROCESSED" yaml:"NOT_PROCESSED,omitempty"`
	TotalFound   int               `json:"TOTAL_FOUND" yaml:"TOTAL_FOUND"`
	TotalSynced  int               `json:"TOTAL_SYNCED" yaml:"TOTAL_SYNCED"`
	TotalFailed  int               `json:"TOTAL_FAILED" yaml:"TOTAL_FAILED"`
	Duration     string            `json:"DURATION" yaml:"DURATION"`
}

func NewSyncReport(name string) *SyncReport {
	return &SyncReport{
		CycleID:   uuid.NewString(),
		Name:      name,
		StartedAt: time.Now(),
		Synced:    make(map[string]string),
		Failed:    make(map[string]string),
	}
}

// RecordSynced notes a successful ticket with its target URL.
func (r *SyncReport) RecordSynced(id, targetURL string) {
	r.Synced[id] = targetURL
}

// RecordFailed notes a failed ticket. Error text is capped so one huge
// payload dump cannot blow up the report file.
func (r *SyncReport) RecordFailed(id string, err error) {
	message := err.Error()
	if len(message) > maxReportErrorLen {
		message = message[:maxReportErrorLen]
	}
	r.Failed[id] = message
}

// RecordNotProcessed notes a ticket that was skipped before any sync work.
func (r *SyncReport) RecordNotProcessed(id string) {
	r.NotProcessed = append(r.NotProcessed, id)
}

// Finalize freezes counters and duration.
func (r *SyncReport) Finalize() {
	r.FinishedAt = time.Now()
	r.TotalSynced = len(r.Synced)
	r.TotalFailed = len(r.Failed)
	minutes := int(r.FinishedAt.Sub(r.StartedAt).Minutes())
	r.Duration = fmt.Sprintf("%d minutes", minutes)
}

// FileName builds the timestamped report file name, e.g.
// "2024-02-19_finished_at_14.05.33.123_kpm2jira.json".
func (r *SyncReport) FileName() string {
	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return fmt.Sprintf(
		"%s_finished_at_%s.%03d_%s.json",
		finished.Format("2006-01-02"),
		finished.Format("15.04.05"),
		finished.Nanosecond()/1e6,
		r.Name,
	)
}
