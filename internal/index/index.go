// Package index maps Monarch ids to the Firefly records that represent them.
//
// An [Index] is shared by every translator in a sync run. Each kind is listed from Firefly at most
// once per run (after which the kind is "primed"); records created during the run are added as
// they are observed, so a primed kind stays complete without re-listing.
package index

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/fmbridge/internal/models"
)

// Lister loads every persisted record of a kind from the target service.
type Lister interface {
	ListRecords(ctx context.Context, kind models.Kind) ([]models.Record, error)
}

// ListerFunc adapts a function to [Lister].
type ListerFunc func(ctx context.Context, kind models.Kind) ([]models.Record, error)

func (f ListerFunc) ListRecords(ctx context.Context, kind models.Kind) ([]models.Record, error) {
	return f(ctx, kind)
}

// Index is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[models.Kind]map[string]models.Record
	primed  map[models.Kind]bool
	group   singleflight.Group
}

// New returns an empty index.
func New() *Index {
	return &Index{
		entries: make(map[models.Kind]map[string]models.Record),
		primed:  make(map[models.Kind]bool),
	}
}

// Lookup returns the record for a source id without contacting the target service.
func (ix *Index) Lookup(kind models.Kind, sourceID string) (models.Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	r, ok := ix.entries[kind][sourceID]
	return r, ok
}

// Put stores a record under its source id, replacing any existing entry.
// Records without a source id are ignored.
func (ix *Index) Put(r models.Record) {
	sourceID := r.SourceID()
	if sourceID == "" {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.bucket(r.Kind())[sourceID] = r
}

// Observe adds records seen in a listing or returned by a creation. The first record seen for a
// source id keeps the entry.
func (ix *Index) Observe(records ...models.Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, r := range records {
		sourceID := r.SourceID()
		if sourceID == "" {
			continue
		}
		bucket := ix.bucket(r.Kind())
		if _, exists := bucket[sourceID]; !exists {
			bucket[sourceID] = r
		}
	}
}

// Remove drops the entry for a record's source id if it points at r.
func (ix *Index) Remove(r models.Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	bucket := ix.entries[r.Kind()]
	if existing, ok := bucket[r.SourceID()]; ok && existing == r {
		delete(bucket, r.SourceID())
	}
}

// bucket must be called with mu held for writing.
func (ix *Index) bucket(kind models.Kind) map[string]models.Record {
	b, ok := ix.entries[kind]
	if !ok {
		b = make(map[string]models.Record)
		ix.entries[kind] = b
	}
	return b
}

// Primed reports whether the kind has been listed during this run.
func (ix *Index) Primed(kind models.Kind) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.primed[kind]
}

// Prime lists the kind through lister and observes every record. Concurrent callers share one
// listing. A failed listing leaves the kind unprimed.
func (ix *Index) Prime(ctx context.Context, kind models.Kind, lister Lister) error {
	_, err, _ := ix.group.Do(kind.String(), func() (any, error) {
		if ix.Primed(kind) {
			return nil, nil
		}

		records, err := lister.ListRecords(ctx, kind)
		if err != nil {
			return nil, err
		}
		ix.Observe(records...)

		ix.mu.Lock()
		ix.primed[kind] = true
		ix.mu.Unlock()
		return nil, nil
	})
	return err
}

// LookupOrResolve returns the cached record for a source id, priming the kind on the first miss.
// Misses on a primed kind report absent without listing again.
func (ix *Index) LookupOrResolve(ctx context.Context, kind models.Kind, sourceID string, lister Lister) (models.Record, bool, error) {
	if r, ok := ix.Lookup(kind, sourceID); ok {
		return r, true, nil
	}
	if ix.Primed(kind) {
		return nil, false, nil
	}

	if err := ix.Prime(ctx, kind, lister); err != nil {
		return nil, false, err
	}

	r, ok := ix.Lookup(kind, sourceID)
	return r, ok, nil
}

// Len returns the number of indexed records of a kind.
func (ix *Index) Len(kind models.Kind) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries[kind])
}

// Records returns the indexed records of a kind in no particular order.
func (ix *Index) Records(kind models.Kind) []models.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	records := make([]models.Record, 0, len(ix.entries[kind]))
	for _, r := range ix.entries[kind] {
		records = append(records, r)
	}
	return records
}
