package mapping

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
)

// TargetLister implements [index.Lister] by listing and decoding Firefly resources.
//
// Resources that fail to decode, such as accounts of a type the bridge never creates, are
// skipped with a debug log line rather than failing the listing.
type TargetLister struct {
	target services.TargetService
	logger *log.Logger
}

var _ index.Lister = (*TargetLister)(nil)

// NewTargetLister creates a lister. A nil logger discards skipped-record messages.
func NewTargetLister(target services.TargetService, logger *log.Logger) *TargetLister {
	return &TargetLister{target: target, logger: logger}
}

func (l *TargetLister) ListRecords(ctx context.Context, kind models.Kind) ([]models.Record, error) {
	t, err := For(kind)
	if err != nil {
		return nil, err
	}

	resources, err := l.target.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s from %s: %w", kind, l.target.Name(), err)
	}

	records := make([]models.Record, 0, len(resources))
	for _, res := range resources {
		r, err := t.FromPersisted(res)
		if err != nil {
			if l.logger != nil {
				l.logger.Debug("skipping undecodable resource", "kind", kind, "id", res.ID, "error", err)
			}
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
