package mapping

import (
	"context"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/index"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
)

type accountAttributes struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Notes          string `json:"notes"`
	AccountRole    string `json:"account_role"`
	LiabilityType  string `json:"liability_type"`
	CreditCardType string `json:"credit_card_type"`
}

// AccountTranslator maps Monarch accounts to Firefly asset and liability accounts.
type AccountTranslator struct{ base }

func (t AccountTranslator) FromSource(ctx context.Context, raw SourceRecord, ix *index.Index, lister index.Lister) (models.Record, error) {
	id, err := raw.ID()
	if err != nil {
		return nil, err
	}

	if r, ok, err := t.existing(ctx, id, ix, lister); err != nil || ok {
		return r, err
	}

	name := raw.String("$.displayName")
	if name == "" {
		return nil, fmt.Errorf("%w: account %s has no displayName", shared.ErrInvalidRecord, id)
	}

	accountType := models.ResolveAccountType(raw.String("$.type.name"))
	subtype := accountType.ResolveSubtype(raw.String("$.subtype.name"))
	return record(models.NewAccount(id, name, accountType, subtype))
}

func (t AccountTranslator) FromPersisted(res services.Resource) (models.Record, error) {
	var attrs accountAttributes
	if err := decodeAttributes(res, t.kind, &attrs); err != nil {
		return nil, err
	}

	accountType, err := models.ParseAccountType(attrs.Type)
	if err != nil {
		return nil, err
	}

	var subtype models.Subtype
	switch accountType.SubtypeField() {
	case "account_role":
		subtype = accountType.ParseSubtype(attrs.AccountRole)
	case "liability_type":
		subtype = accountType.ParseSubtype(attrs.LiabilityType)
		if subtype == models.LiabilityDebt && attrs.CreditCardType != "" {
			subtype = models.LiabilityCreditCard
		}
	}

	return record(models.LoadAccount(res.ID, attrs.Name, attrs.Notes, accountType, subtype))
}
