package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// RunStatus summarizes the outcome of a sync run or of one kind within it.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailed  RunStatus = "failed"
)

// StatusFor derives the status of a batch from its counts. Failures with no successes fail the
// batch; failures alongside successes make it partial.
func StatusFor(succeeded, failed int) RunStatus {
	switch {
	case failed == 0:
		return StatusSuccess
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Worst returns the more severe of two statuses.
func (s RunStatus) Worst(other RunStatus) RunStatus {
	rank := map[RunStatus]int{StatusSuccess: 0, StatusRunning: 1, StatusPartial: 2, StatusFailed: 3}
	if rank[other] > rank[s] {
		return other
	}
	return s
}

// KindRun is the persisted summary of one kind within a [SyncRun].
type KindRun struct {
	Kind         string
	Status       RunStatus
	Total        int
	Created      int
	Existing     int
	Failed       int
	ErrorMessage string
}

// SyncRun is a persisted record of one invocation of the sync orchestrator.
type SyncRun struct {
	id           string
	Sequence     int
	Status       RunStatus
	DryRun       bool
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Kinds        []KindRun
	createdAt    time.Time
	updatedAt    time.Time
}

// NewSyncRun returns a running sync run with a fresh id.
func NewSyncRun(dryRun bool) *SyncRun {
	now := time.Now().UTC()
	return &SyncRun{
		id:        shared.GenerateID(),
		Status:    StatusRunning,
		DryRun:    dryRun,
		StartedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreSyncRun rebuilds a sync run loaded from storage.
func RestoreSyncRun(id string, createdAt, updatedAt time.Time) *SyncRun {
	return &SyncRun{id: id, createdAt: createdAt, updatedAt: updatedAt}
}

func (r *SyncRun) ID() string { return r.id }
func (r *SyncRun) CreatedAt() time.Time { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time { return r.updatedAt }

// Complete records the final status of the run.
func (r *SyncRun) Complete(status RunStatus, err error) {
	now := time.Now().UTC()
	r.Status = status
	r.CompletedAt = &now
	r.updatedAt = now
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Duration is the wall time of a completed run, zero while running.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r *SyncRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("%w: sync run id is required", shared.ErrInvalidRecord)
	}
	switch r.Status {
	case StatusRunning, StatusSuccess, StatusPartial, StatusFailed:
	default:
		return fmt.Errorf("%w: unknown sync run status %q", shared.ErrInvalidRecord, r.Status)
	}
	for _, k := range r.Kinds {
		if _, err := ParseKind(k.Kind); err != nil {
			return err
		}
	}
	return nil
}
