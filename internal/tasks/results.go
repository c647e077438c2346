package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/fmbridge/internal/models"
)

// RecordError is a failure to translate or create one source record.
type RecordError struct {
	Kind     models.Kind
	SourceID string
	Err      error
}

func (e *RecordError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.SourceID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// KindResult summarizes the sync of one kind.
type KindResult struct {
	Kind models.Kind
	// Total is the number of records in the source document.
	Total    int
	Created  int
	Existing int
	Failed   int
	// Pending holds the drafts a dry run would have created.
	Pending []models.Record
	Errors  []*RecordError
	// Fatal is set when the kind aborted before any creation.
	Fatal error
}

// Status is failed for an aborted kind, else derived from the record counts.
func (r *KindResult) Status() models.RunStatus {
	if r.Fatal != nil {
		return models.StatusFailed
	}
	return models.StatusFor(r.Created+r.Existing+len(r.Pending), r.Failed)
}

// Err joins the fatal error and every record error, nil when the kind succeeded.
func (r *KindResult) Err() error {
	errs := make([]error, 0, len(r.Errors)+1)
	if r.Fatal != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Kind, r.Fatal))
	}
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Summary converts the result to its persisted form.
func (r *KindResult) Summary() models.KindRun {
	run := models.KindRun{
		Kind:     r.Kind.String(),
		Status:   r.Status(),
		Total:    r.Total,
		Created:  r.Created,
		Existing: r.Existing,
		Failed:   r.Failed,
	}
	if err := r.Err(); err != nil {
		run.ErrorMessage = err.Error()
	}
	return run
}

// RunResult summarizes a sync over several kinds.
type RunResult struct {
	DryRun      bool
	StartedAt   time.Time
	CompletedAt time.Time
	Kinds       []KindResult
	// Run is the history entry, set when the engine has a [RunRecorder].
	Run *models.SyncRun
}

// Status is the worst status among the kinds.
func (r *RunResult) Status() models.RunStatus {
	status := models.StatusSuccess
	for i := range r.Kinds {
		status = status.Worst(r.Kinds[i].Status())
	}
	return status
}

// Err joins the errors of every kind.
func (r *RunResult) Err() error {
	errs := make([]error, 0, len(r.Kinds))
	for i := range r.Kinds {
		errs = append(errs, r.Kinds[i].Err())
	}
	return errors.Join(errs...)
}

// Created is the number of records created across kinds.
func (r *RunResult) Created() int {
	n := 0
	for i := range r.Kinds {
		n += r.Kinds[i].Created
	}
	return n
}

// Duration is the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Summary returns the run's history entry, building an unsaved one when the run was not recorded.
func (r *RunResult) Summary() *models.SyncRun {
	if r.Run != nil {
		return r.Run
	}

	run := models.NewSyncRun(r.DryRun)
	run.StartedAt = r.StartedAt
	for i := range r.Kinds {
		run.Kinds = append(run.Kinds, r.Kinds[i].Summary())
	}
	run.Complete(r.Status(), nil)

	completed := r.CompletedAt
	run.CompletedAt = &completed
	return run
}
