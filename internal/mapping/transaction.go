package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

type transactionSplit struct {
	Type            string          `json:"type"`
	Date            string          `json:"date"`
	Amount          json.Number     `json:"amount"`
	Description     string          `json:"description"`
	SourceName      string          `json:"source_name"`
	DestinationName string          `json:"destination_name"`
	CategoryID      json.RawMessage `json:"category_id"`
	Tags            []string        `json:"tags"`
	ExternalID      string          `json:"external_id"`
	Notes           string          `json:"notes"`
}

// TransactionTranslator maps Monarch transactions to single-split Firefly transaction groups.
type TransactionTranslator struct{ base }

func (t TransactionTranslator) FromSource(ctx context.Context, raw SourceRecord, ix *index.Index, lister index.Lister) (models.Record, error) {
	id, err := raw.ID()
	if err != nil {
		return nil, err
	}

	if r, ok, err := t.existing(ctx, id, ix, lister); err != nil || ok {
		return r, err
	}

	amount, err := raw.Decimal("$.amount")
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", id, err)
	}

	category, err := t.category(ctx, id, raw, ix, lister)
	if err != nil {
		return nil, err
	}

	return record(models.NewTransaction(id, models.TransactionFields{
		Amount:       amount,
		Date:         raw.String("$.date"),
		Description:  raw.String("$.plaidName"),
		Account:      raw.String("$.account.displayName"),
		Counterparty: raw.String("$.merchant.name"),
		Category:     category,
		Tags:         raw.Strings("$.tags[*].name"),
		Notes:        raw.String("$.notes"),
	}))
}

// category resolves the transaction's category, which must already be mirrored in Firefly.
func (t TransactionTranslator) category(ctx context.Context, id string, raw SourceRecord, ix *index.Index, lister index.Lister) (*models.Category, error) {
	categoryID, ok := raw.IDAt("$.category.id")
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s has no category", shared.ErrUnresolvableReference, id)
	}

	r, ok, err := ix.LookupOrResolve(ctx, models.KindCategory, categoryID, lister)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s category %s: %w", shared.ErrUnresolvableReference, id, categoryID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s category %s is not in Firefly", shared.ErrUnresolvableReference, id, categoryID)
	}

	category, ok := r.(*models.Category)
	if !ok || !category.IsLoaded() {
		return nil, fmt.Errorf("%w: transaction %s category %s is not persisted", shared.ErrUnresolvableReference, id, categoryID)
	}
	return category, nil
}

func (t TransactionTranslator) FromPersisted(res services.Resource) (models.Record, error) {
	var attrs struct {
		Transactions []transactionSplit `json:"transactions"`
	}
	if err := decodeAttributes(res, t.kind, &attrs); err != nil {
		return nil, err
	}
	if len(attrs.Transactions) == 0 {
		return nil, fmt.Errorf("%w: transaction %s has no splits", shared.ErrInvalidRecord, res.ID)
	}

	split := attrs.Transactions[0]
	direction, err := models.ParseTransactionType(split.Type)
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if split.Amount != "" {
		if amount, err = decimal.NewFromString(split.Amount.String()); err != nil {
			return nil, fmt.Errorf("%w: transaction %s amount: %v", shared.ErrInvalidRecord, res.ID, err)
		}
	}

	categoryID, _ := models.NormalizeID(split.CategoryID)
	account, counterparty := models.SplitParties(direction, split.SourceName, split.DestinationName)

	return models.LoadTransaction(res.ID, split.Notes, split.ExternalID, categoryID, direction, models.TransactionFields{
		Amount:       amount,
		Date:         split.Date,
		Description:  split.Description,
		Account:      account,
		Counterparty: counterparty,
		Tags:         split.Tags,
	}), nil
}
