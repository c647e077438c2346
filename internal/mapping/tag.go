package mapping

import (
	"context"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// TagTranslator maps Monarch household tags to Firefly tags.
type TagTranslator struct{ base }

func (t TagTranslator) FromSource(ctx context.Context, raw SourceRecord, ix *index.Index, lister index.Lister) (models.Record, error) {
	id, err := raw.ID()
	if err != nil {
		return nil, err
	}

	if r, ok, err := t.existing(ctx, id, ix, lister); err != nil || ok {
		return r, err
	}

	name := raw.String("$.name")
	if name == "" {
		return nil, fmt.Errorf("%w: tag %s has no name", shared.ErrInvalidRecord, id)
	}
	return record(models.NewTag(id, name))
}

func (t TagTranslator) FromPersisted(res services.Resource) (models.Record, error) {
	var attrs struct {
		Tag         string `json:"tag"`
		Description string `json:"description"`
	}
	if err := decodeAttributes(res, t.kind, &attrs); err != nil {
		return nil, err
	}
	return record(models.LoadTag(res.ID, attrs.Tag, attrs.Description))
}
