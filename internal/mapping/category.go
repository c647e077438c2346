package mapping

import (
	"context"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// CategoryTranslator maps Monarch transaction categories to Firefly categories.
type CategoryTranslator struct{ base }

func (t CategoryTranslator) FromSource(ctx context.Context, raw SourceRecord, ix *index.Index, lister index.Lister) (models.Record, error) {
	id, err := raw.ID()
	if err != nil {
		return nil, err
	}

	if r, ok, err := t.existing(ctx, id, ix, lister); err != nil || ok {
		return r, err
	}

	name := raw.String("$.name")
	if name == "" {
		return nil, fmt.Errorf("%w: category %s has no name", shared.ErrInvalidRecord, id)
	}
	return record(models.NewCategory(id, name))
}

func (t CategoryTranslator) FromPersisted(res services.Resource) (models.Record, error) {
	var attrs struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if err := decodeAttributes(res, t.kind, &attrs); err != nil {
		return nil, err
	}
	return record(models.LoadCategory(res.ID, attrs.Name, attrs.Notes))
}
