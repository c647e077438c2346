package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/mapping"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// DefaultWorkers bounds concurrent creation calls when no worker count is configured.
const DefaultWorkers = 4

// SyncEngine defines the mirroring operations.
type SyncEngine interface {
	// Sync mirrors the given kinds (all kinds when empty) in dependency order.
	Sync(ctx context.Context, kinds []models.Kind, progress chan<- ProgressUpdate) (*RunResult, error)

	// SyncKind fetches, translates and creates the records of one kind.
	SyncKind(ctx context.Context, kind models.Kind, progress chan<- ProgressUpdate) (*KindResult, error)
}

// RunRecorder persists sync run history. repositories.SyncRunRepository implements it.
type RunRecorder interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// Options configures a [MirrorEngine].
type Options struct {
	// Workers bounds concurrent creation calls per kind.
	Workers int
	// DryRun translates records without creating anything.
	DryRun bool
	Logger *log.Logger
	// Recorder, when set, stores every [MirrorEngine.Sync] run.
	Recorder RunRecorder
}

// MirrorEngine implements SyncEngine against a source and a target service.
//
// An engine shares one [index.Index] across the kinds of a run. Sync starts from a fresh index;
// SyncKind reuses the current one so that kinds synced one by one can resolve earlier kinds.
// Sync and SyncKind must not be called concurrently on the same engine.
type MirrorEngine struct {
	source services.SourceService
	target services.TargetService
	lister index.Lister
	opts   Options

	index *index.Index
	store *mapping.Store
}

var _ SyncEngine = (*MirrorEngine)(nil)

// NewMirrorEngine creates a new MirrorEngine with the provided services.
func NewMirrorEngine(source services.SourceService, target services.TargetService, opts Options) *MirrorEngine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	e := &MirrorEngine{
		source: source,
		target: target,
		lister: mapping.NewTargetLister(target, opts.Logger),
		opts:   opts,
	}
	e.reset()
	return e
}

func (e *MirrorEngine) reset() {
	e.index = index.New()
	e.store = mapping.NewStore(e.target, e.index)
}

// Index returns the identity index of the current run.
func (e *MirrorEngine) Index() *index.Index {
	return e.index
}

// sendProgress sends a progress update through the channel without blocking.
func (e *MirrorEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *MirrorEngine) debug(msg string, kv ...any) {
	if e.opts.Logger != nil {
		e.opts.Logger.Debug(msg, kv...)
	}
}

// Sync mirrors kinds in dependency order. Kind failures are reported in the result; the error
// is non-nil only when the run could not be carried out, such as on cancellation.
func (e *MirrorEngine) Sync(ctx context.Context, kinds []models.Kind, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: source and target services are required", shared.ErrServiceUnavailable)
	}
	if len(kinds) == 0 {
		kinds = models.AllKinds
	}

	e.reset()
	result := &RunResult{DryRun: e.opts.DryRun, StartedAt: time.Now().UTC()}

	if e.opts.Recorder != nil {
		result.Run = models.NewSyncRun(e.opts.DryRun)
		if err := e.opts.Recorder.Create(result.Run); err != nil {
			return nil, fmt.Errorf("failed to record sync run: %w", err)
		}
	}

	var runErr error
	for _, kind := range models.OrderKinds(kinds) {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		kr, err := e.SyncKind(ctx, kind, progress)
		if kr != nil {
			result.Kinds = append(result.Kinds, *kr)
		}
		if err != nil && ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
	}

	result.CompletedAt = time.Now().UTC()
	if err := e.record(result, runErr); err != nil {
		return result, err
	}
	return result, runErr
}

func (e *MirrorEngine) record(result *RunResult, runErr error) error {
	if result.Run == nil {
		return nil
	}

	result.Run.Kinds = result.Run.Kinds[:0]
	for i := range result.Kinds {
		result.Run.Kinds = append(result.Run.Kinds, result.Kinds[i].Summary())
	}

	status := result.Status()
	if runErr != nil {
		status = models.StatusFailed
	}
	result.Run.Complete(status, runErr)

	if err := e.opts.Recorder.Update(result.Run); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// SyncKind mirrors one kind. The returned error is the kind's joined failures; the result is
// non-nil whenever the kind was attempted.
func (e *MirrorEngine) SyncKind(ctx context.Context, kind models.Kind, progress chan<- ProgressUpdate) (*KindResult, error) {
	t, err := mapping.For(kind)
	if err != nil {
		return nil, err
	}

	result := &KindResult{Kind: kind}
	logger := e.opts.Logger
	if logger != nil {
		logger = shared.WithLogger(logger, "kind", kind)
	}

	drafts, err := e.translate(ctx, t, result, progress)
	if err != nil {
		result.Fatal = err
		e.sendProgress(progress, completeUpdate(result))
		return result, result.Err()
	}

	if e.opts.DryRun {
		result.Pending = drafts
	} else {
		e.create(ctx, kind, drafts, result, progress)
	}

	slices.SortFunc(result.Errors, func(a, b *RecordError) int {
		return cmp.Compare(a.SourceID, b.SourceID)
	})

	if logger != nil {
		logger.Info("synced", "status", result.Status(), "total", result.Total, "created", result.Created,
			"existing", result.Existing, "pending", len(result.Pending), "failed", result.Failed)
	}
	e.sendProgress(progress, completeUpdate(result))
	return result, result.Err()
}

// translate fetches and unpacks the source document, primes the index for the kind, and
// sequentially converts every source record. It returns the drafts awaiting creation.
func (e *MirrorEngine) translate(ctx context.Context, t mapping.Translator, result *KindResult, progress chan<- ProgressUpdate) ([]models.Record, error) {
	kind := t.Kind()

	e.sendProgress(progress, fetchSourceUpdate(kind, e.source.Name()))
	doc, err := t.Fetch(ctx, e.source)
	if err != nil {
		return nil, err
	}

	raws, err := t.Unpack(doc)
	if err != nil {
		return nil, err
	}
	result.Total = len(raws)

	if err := e.index.Prime(ctx, kind, e.lister); err != nil {
		return nil, fmt.Errorf("failed to list %s from %s: %w", kind, e.target.Name(), err)
	}

	e.sendProgress(progress, translateUpdate(kind, 0, len(raws), ""))

	drafts := make([]models.Record, 0, len(raws))
	pending := make(map[string]bool)

	for i, raw := range raws {
		sourceID, _ := raw.ID()

		r, err := t.FromSource(ctx, raw, e.index, e.lister)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, &RecordError{Kind: kind, SourceID: sourceID, Err: err})
			e.debug("translation failed", "kind", kind, "source_id", sourceID, "error", err)
			continue
		}
		e.sendProgress(progress, translateUpdate(kind, i+1, len(raws), r.Label()))

		switch {
		case r.State() == models.StateLoaded:
			result.Existing++
		case pending[r.SourceID()]:
			// Repeated in the source document; the first draft creates the record.
			result.Existing++
			e.debug("duplicate source record", "kind", kind, "source_id", sourceID)
		default:
			pending[r.SourceID()] = true
			drafts = append(drafts, r)
		}
	}

	return drafts, nil
}

// create persists drafts with bounded concurrency. A failed creation never cancels its siblings.
func (e *MirrorEngine) create(ctx context.Context, kind models.Kind, drafts []models.Record, result *KindResult, progress chan<- ProgressUpdate) {
	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(e.opts.Workers)

	for _, draft := range drafts {
		g.Go(func() error {
			_, err := e.store.Create(ctx, draft)

			mu.Lock()
			defer mu.Unlock()

			done++
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, &RecordError{Kind: kind, SourceID: draft.SourceID(), Err: err})
				e.debug("creation failed", "kind", kind, "source_id", draft.SourceID(), "error", err)
			} else {
				result.Created++
			}
			e.sendProgress(progress, createUpdate(kind, done, len(drafts), draft, err))
			return nil
		})
	}

	_ = g.Wait()
}
