package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/fmbridge/internal/mapping"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// ManifestName is the file written next to the snapshot documents.
const ManifestName = "manifest.json"

// SnapshotOpts configures [MirrorEngine.Snapshot].
type SnapshotOpts struct {
	OutputDir  string  // Output directory (default: monarch_snapshot_{epoch})
	NumWorkers int     // Concurrent fetches (default: 2)
	RateLimit  float64 // Source requests per second (default: 2)
}

// SnapshotFile describes one saved source document.
type SnapshotFile struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// SnapshotResult lists the documents written by a snapshot.
type SnapshotResult struct {
	OutputDirectory string         `json:"output_directory"`
	CreatedAt       time.Time      `json:"created_at"`
	Files           []SnapshotFile `json:"files"`
	ManifestPath    string         `json:"-"`
}

// Failed counts the kinds that could not be saved.
func (r *SnapshotResult) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Snapshot saves the source document of each kind to <dir>/<kind>.json. The files can be passed
// back as source stubs to replay a sync offline. A manifest summarizing the files is written last.
func (e *MirrorEngine) Snapshot(ctx context.Context, kinds []models.Kind, opts SnapshotOpts, progress chan<- ProgressUpdate) (*SnapshotResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source service not initialized", shared.ErrServiceUnavailable)
	}
	if len(kinds) == 0 {
		kinds = models.AllKinds
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("monarch_snapshot_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	kinds = models.OrderKinds(kinds)
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.Kind, len(kinds))
	for _, kind := range kinds {
		jobs <- kind
	}
	close(jobs)

	files := make([]SnapshotFile, len(kinds))
	position := make(map[models.Kind]int, len(kinds))
	for i, kind := range kinds {
		position[kind] = i
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for range min(opts.NumWorkers, len(kinds)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for kind := range jobs {
				file := e.snapshotKind(ctx, kind, opts.OutputDir, limiter)

				mu.Lock()
				files[position[kind]] = file
				done++
				e.sendProgress(progress, snapshotUpdate(file, done, len(kinds)))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	result := &SnapshotResult{OutputDirectory: opts.OutputDir, CreatedAt: time.Now().UTC(), Files: files}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("snapshot completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("snapshot completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, ctx.Err()
}

func (e *MirrorEngine) snapshotKind(ctx context.Context, kind models.Kind, dir string, limiter *rate.Limiter) SnapshotFile {
	file := SnapshotFile{Kind: kind.String()}

	if err := limiter.Wait(ctx); err != nil {
		file.Error = err.Error()
		return file
	}

	t, err := mapping.For(kind)
	if err != nil {
		file.Error = err.Error()
		return file
	}

	doc, err := t.Fetch(ctx, e.source)
	if err != nil {
		file.Error = err.Error()
		return file
	}

	records, err := t.Unpack(doc)
	if err != nil {
		file.Error = err.Error()
		return file
	}
	file.Records = len(records)

	data, err := shared.MarshalJSON(doc, true)
	if err != nil {
		data = doc
	}

	path := filepath.Join(dir, kind.String()+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		file.Error = fmt.Sprintf("failed to write %s: %v", path, err)
		return file
	}
	file.Path = path
	return file
}

func snapshotUpdate(file SnapshotFile, step, total int) ProgressUpdate {
	kind, _ := models.ParseKind(file.Kind)
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d records)", step, total, file.Kind, file.Records)
	if file.Error != "" {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, file.Kind, file.Error)
	}
	return ProgressUpdate{Phase: FetchSource, Kind: kind, Step: step, Total: total, Message: msg, Data: file}
}
