// Package mapping translates records between Monarch documents and Firefly resources.
//
// There is one [Translator] per [models.Kind]. FromSource consults the [index.Index] before
// building a draft, so a Monarch record already mirrored in Firefly translates to the existing
// loaded record instead of a duplicate.
package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// Translator converts records of one kind.
type Translator interface {
	Kind() models.Kind

	// Fetch loads the kind's document from the source service.
	Fetch(ctx context.Context, src services.SourceService) (json.RawMessage, error)

	// Unpack extracts the kind's records from a source document.
	Unpack(doc json.RawMessage) ([]SourceRecord, error)

	// FromSource returns the loaded record already mirroring raw, or a new draft.
	FromSource(ctx context.Context, raw SourceRecord, ix *index.Index, lister index.Lister) (models.Record, error)

	// FromPersisted decodes a Firefly resource into a loaded record.
	FromPersisted(res services.Resource) (models.Record, error)
}

type base struct {
	kind models.Kind
	path string
}

func (b base) Kind() models.Kind { return b.kind }

func (b base) Fetch(ctx context.Context, src services.SourceService) (json.RawMessage, error) {
	doc, err := services.Fetch(ctx, src, b.kind)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s from %s: %w", b.kind, src.Name(), err)
	}
	return doc, nil
}

func (b base) Unpack(doc json.RawMessage) ([]SourceRecord, error) {
	return Unpack(doc, b.path)
}

// existing resolves the record mirroring sourceID, reporting false when there is none.
func (b base) existing(ctx context.Context, sourceID string, ix *index.Index, lister index.Lister) (models.Record, bool, error) {
	r, ok, err := ix.LookupOrResolve(ctx, b.kind, sourceID, lister)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve %s %s: %w", b.kind, sourceID, err)
	}
	return r, ok, nil
}

var translators = map[models.Kind]Translator{
	models.KindAccount:     AccountTranslator{base{models.KindAccount, "$.accounts"}},
	models.KindCategory:    CategoryTranslator{base{models.KindCategory, "$.categories"}},
	models.KindTag:         TagTranslator{base{models.KindTag, "$.tags"}},
	models.KindTransaction: TransactionTranslator{base{models.KindTransaction, "$.allTransactions.results"}},
}

// For returns the translator of a kind.
func For(kind models.Kind) (Translator, error) {
	t, ok := translators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownKind, kind)
	}
	return t, nil
}

// decodeAttributes unmarshals a resource's attributes, wrapping failures as invalid records.
func decodeAttributes(res services.Resource, kind models.Kind, v any) error {
	if err := res.Decode(v); err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrInvalidRecord, kind, res.ID, err)
	}
	return nil
}

// record converts a constructor result to [models.Record] without wrapping a nil pointer.
func record[T models.Record](r T, err error) (models.Record, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
