package models

import (
	"fmt"

	"github.com/desertthunder/fmbridge/internal/shared"
)

const (
	creditCardType       = "monthlyFull"
	monthlyPaymentDate   = "2023-01-01T00:00:00"
	defaultLiabilityFlow = "debit"
)

// Account is a Firefly asset or liability account.
type Account struct {
	Meta
	name        string
	accountType AccountType
	subtype     Subtype
}

// NewAccount returns a draft account referencing a Monarch id.
// A nil subtype resolves to the type's default.
func NewAccount(sourceID, name string, t AccountType, subtype Subtype) (*Account, error) {
	a := &Account{Meta: draftMeta(sourceID), name: name, accountType: t, subtype: subtype}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// LoadAccount reconstructs a loaded account from persisted Firefly attributes.
func LoadAccount(id, name, notes string, t AccountType, subtype Subtype) (*Account, error) {
	a := &Account{Meta: loadedMeta(id, notes), name: name, accountType: t, subtype: subtype}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Account) validate() error {
	if err := requireName(KindAccount, a.name); err != nil {
		return err
	}
	if a.subtype == nil {
		a.subtype = a.accountType.ParseSubtype("")
	}
	if a.subtype != nil && !a.subtype.Allows(a.accountType) {
		return fmt.Errorf("%w: subtype %s is not valid for %s accounts", shared.ErrInvalidRecord, a.subtype, a.accountType)
	}
	return nil
}

func (a *Account) Kind() Kind { return KindAccount }
func (a *Account) Label() string { return a.name }
func (a *Account) Name() string { return a.name }
func (a *Account) Type() AccountType { return a.accountType }
func (a *Account) Subtype() Subtype { return a.subtype }

// IsCreditCard reports whether the account is a credit card, as an asset role or a liability.
func (a *Account) IsCreditCard() bool {
	return a.subtype == AssetCCAsset || a.subtype == LiabilityCreditCard
}

func (a *Account) Payload() (map[string]any, error) {
	payload := map[string]any{
		"name":  a.name,
		"type":  a.accountType.String(),
		"notes": a.annotation.String(),
	}
	if field := a.accountType.SubtypeField(); field != "" && a.subtype != nil {
		payload[field] = a.subtype.WireValue()
	}
	if a.accountType.IsLiability() {
		payload["liability_direction"] = defaultLiabilityFlow
	}
	if a.IsCreditCard() {
		payload["credit_card_type"] = creditCardType
		payload["monthly_payment_date"] = monthlyPaymentDate
	}
	return payload, nil
}
