package tasks

import (
	"fmt"

	"github.com/desertthunder/fmbridge/internal/models"
)

// ProgressUpdate represents a progress event during a sync.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase       // Operation phase
	Kind    models.Kind // Kind being synced
	Step    int         // Current step number within phase
	Total   int         // Total steps in this phase
	Message string      // Human-readable message for display
	Data    any         // Optional phase-specific data, a [KindResult] on completion
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	Translate
	Create
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case Translate:
		return "translate"
	case Create:
		return "create"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchSourceUpdate(kind models.Kind, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Kind:    kind,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s from %s...", kind, source),
	}
}

func translateUpdate(kind models.Kind, step, total int, label string) ProgressUpdate {
	if label == "" {
		return ProgressUpdate{
			Phase:   Translate,
			Kind:    kind,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("Matching %d %s against Firefly...", total, kind),
		}
	}
	return ProgressUpdate{
		Phase:   Translate,
		Kind:    kind,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, label),
	}
}

func createUpdate(kind models.Kind, step, total int, r models.Record, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, r.Label())
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, r.Label(), err)
	}
	return ProgressUpdate{
		Phase:   Create,
		Kind:    kind,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    r,
	}
}

func completeUpdate(result *KindResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Kind:    result.Kind,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s: %s (%d created, %d existing, %d failed)", result.Kind, result.Status(), result.Created, result.Existing, result.Failed),
		Data:    *result,
	}
}
