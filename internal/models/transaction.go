package models

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// TransactionFields holds the attributes of a single-split transaction.
type TransactionFields struct {
	// Amount is signed on drafts and taken as a magnitude on loaded records.
	Amount      decimal.Decimal
	Date        string
	Description string
	// Account is the name of the Monarch account the transaction was booked on.
	Account string
	// Counterparty is the merchant name.
	Counterparty string
	Category     *Category
	Tags         []string
	// Notes is free text from Monarch, kept next to the reference in the annotation of a draft.
	Notes string
}

// Transaction is a Firefly transaction group with one split.
type Transaction struct {
	Meta
	TransactionFields
	direction TransactionType
	// categoryID is kept when a persisted transaction names a category
	// that was not reconstructed.
	categoryID string
}

// NewTransaction returns a draft transaction. The direction follows the sign of the amount and
// the category must already exist in Firefly.
func NewTransaction(sourceID string, f TransactionFields) (*Transaction, error) {
	// Firefly stores cents, so an amount that rounds to zero has no direction.
	f.Amount = f.Amount.Round(2)
	direction, err := DirectionOf(f.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", sourceID, err)
	}
	if f.Category == nil || !f.Category.IsLoaded() {
		return nil, fmt.Errorf("%w: transaction %s has no persisted category", shared.ErrUnresolvableReference, sourceID)
	}

	meta := draftMeta(sourceID)
	if f.Notes != "" {
		meta.annotation = ParseAnnotation(f.Notes).WithSourceID(sourceID)
	}

	f.Amount = f.Amount.Abs()
	f.Tags = slices.Clone(f.Tags)
	return &Transaction{Meta: meta, TransactionFields: f, direction: direction}, nil
}

// LoadTransaction reconstructs a loaded transaction. When notes carry no Monarch reference the
// externalID is used instead.
func LoadTransaction(id, notes, externalID, categoryID string, t TransactionType, f TransactionFields) *Transaction {
	meta := loadedMeta(id, notes)
	if !meta.annotation.HasSourceID() && externalID != "" {
		meta.annotation = meta.annotation.WithSourceID(externalID)
	}

	f.Amount = f.Amount.Abs()
	if f.Category != nil {
		categoryID = f.Category.ID()
	}
	return &Transaction{Meta: meta, TransactionFields: f, direction: t, categoryID: categoryID}
}

// SplitParties maps Firefly source and destination names back to the booked account and the
// counterparty for the given direction.
func SplitParties(t TransactionType, sourceName, destinationName string) (account, counterparty string) {
	if t == TransactionDeposit {
		return destinationName, sourceName
	}
	return sourceName, destinationName
}

func (t *Transaction) Kind() Kind { return KindTransaction }
func (t *Transaction) Direction() TransactionType { return t.direction }

func (t *Transaction) Label() string {
	if t.Description != "" {
		return t.Description
	}
	return t.SourceID()
}

// SourceName is the Firefly source account: the booked account for withdrawals and the
// counterparty for deposits.
func (t *Transaction) SourceName() string {
	if t.direction == TransactionDeposit {
		return t.Counterparty
	}
	return t.Account
}

// DestinationName is the opposite side of [Transaction.SourceName].
func (t *Transaction) DestinationName() string {
	if t.direction == TransactionDeposit {
		return t.Account
	}
	return t.Counterparty
}

// CategoryID returns the Firefly id of the transaction's category.
func (t *Transaction) CategoryID() string {
	if t.Category != nil {
		return t.Category.ID()
	}
	return t.categoryID
}

func (t *Transaction) Payload() (map[string]any, error) {
	split := map[string]any{
		"type":             t.direction.String(),
		"date":             t.Date,
		"amount":           t.Amount.StringFixed(2),
		"description":      t.Description,
		"source_name":      t.SourceName(),
		"destination_name": t.DestinationName(),
		"tags":             append([]string{}, t.Tags...),
		"external_id":      t.SourceID(),
		"notes":            t.annotation.String(),
	}

	switch categoryID := t.CategoryID(); {
	case categoryID != "":
		split["category_id"] = categoryID
	case t.state == StateDraft:
		return nil, fmt.Errorf("%w: transaction %s has no persisted category", shared.ErrUnresolvableReference, t.SourceID())
	}

	return map[string]any{
		"apply_rules":   true,
		"fire_webhooks": true,
		"group_title":   "",
		"transactions":  []map[string]any{split},
	}, nil
}
