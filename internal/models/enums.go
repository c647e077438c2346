package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// AccountType is the Firefly account type.
type AccountType string

const (
	AccountAsset       AccountType = "asset"
	AccountLiability   AccountType = "liability"
	AccountLiabilities AccountType = "liabilities"
	AccountExpense     AccountType = "expense"
	AccountRevenue     AccountType = "revenue"
	AccountCash        AccountType = "cash"
	AccountImport      AccountType = "import"
	AccountInitial     AccountType = "initial-balance"
	AccountReconcile   AccountType = "reconciliation"
)

// AssetRole is the account_role of an asset account.
type AssetRole string

const (
	AssetDefault    AssetRole = "defaultAsset"
	AssetShared     AssetRole = "sharedAsset"
	AssetSaving     AssetRole = "savingAsset"
	AssetCCAsset    AssetRole = "ccAsset"
	AssetCashWallet AssetRole = "cashWalletAsset"
)

// LiabilityType is the liability_type of a liability account.
//
// Firefly has no credit card liability; [LiabilityCreditCard] is written as a debt with its
// credit card fields set.
type LiabilityType string

const (
	LiabilityDebt       LiabilityType = "debt"
	LiabilityLoan       LiabilityType = "loan"
	LiabilityMortgage   LiabilityType = "mortgage"
	LiabilityCreditCard LiabilityType = "credit_card"
)

// TransactionType is the Firefly transaction type.
type TransactionType string

const (
	TransactionWithdrawal     TransactionType = "withdrawal"
	TransactionDeposit        TransactionType = "deposit"
	TransactionTransfer       TransactionType = "transfer"
	TransactionOpeningBalance TransactionType = "opening balance"
	TransactionReconciliation TransactionType = "reconciliation"
)

// Subtype is the type-dependent classification of an account: an [AssetRole] or a [LiabilityType].
type Subtype interface {
	fmt.Stringer
	// WireValue is the value written to the account's subtype field.
	WireValue() string
	// Allows reports whether the subtype is valid for the account type.
	Allows(t AccountType) bool
}

// subtypeFields maps each account type that carries a subtype to the payload field holding it.
var subtypeFields = map[AccountType]string{
	AccountAsset:       "account_role",
	AccountLiability:   "liability_type",
	AccountLiabilities: "liability_type",
}

func (t AccountType) String() string { return string(t) }

// SubtypeField returns the payload field name for the type's subtype, or "" when the type has none.
func (t AccountType) SubtypeField() string {
	return subtypeFields[t]
}

// IsLiability reports whether t is one of Firefly's liability spellings.
func (t AccountType) IsLiability() bool {
	return t == AccountLiability || t == AccountLiabilities
}

// ParseSubtype decodes a persisted subtype value for the account type.
// Unknown values fall back to the type's default subtype.
func (t AccountType) ParseSubtype(value string) Subtype {
	switch {
	case t == AccountAsset:
		role, err := ParseAssetRole(value)
		if err != nil {
			return AssetDefault
		}
		return role
	case t.IsLiability():
		lt, err := ParseLiabilityType(value)
		if err != nil {
			return LiabilityDebt
		}
		return lt
	default:
		return nil
	}
}

// ResolveSubtype maps a Monarch subtype name into the domain of t.
func (t AccountType) ResolveSubtype(monarchSubtype string) Subtype {
	switch {
	case t == AccountAsset:
		return ResolveAssetRole(monarchSubtype)
	case t.IsLiability():
		return ResolveLiabilityType(monarchSubtype)
	default:
		return nil
	}
}

func (r AssetRole) String() string { return string(r) }
func (r AssetRole) WireValue() string { return string(r) }
func (r AssetRole) Allows(t AccountType) bool { return t == AccountAsset }
func (l LiabilityType) String() string { return string(l) }
func (l LiabilityType) Allows(t AccountType) bool { return t.IsLiability() }

func (l LiabilityType) WireValue() string {
	if l == LiabilityCreditCard {
		return string(LiabilityDebt)
	}
	return string(l)
}

func (t TransactionType) String() string { return string(t) }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ResolveAccountType maps a Monarch account type name to a Firefly account type.
// Every input resolves; anything not known to be a liability is an asset.
func ResolveAccountType(monarchType string) AccountType {
	switch normalize(monarchType) {
	case "loan", "credit", "credit_card", "other_liability", "liability":
		return AccountLiability
	default:
		return AccountAsset
	}
}

// ResolveAssetRole maps a Monarch subtype name to an asset role, defaulting to [AssetDefault].
func ResolveAssetRole(monarchSubtype string) AssetRole {
	switch normalize(monarchSubtype) {
	case "cashwalletasset", "cash", "wallet":
		return AssetCashWallet
	case "ccasset", "credit_card":
		return AssetCCAsset
	case "savingasset", "savings", "health_savings_account", "money_market", "cd":
		return AssetSaving
	case "sharedasset", "shared":
		return AssetShared
	default:
		return AssetDefault
	}
}

// ResolveLiabilityType maps a Monarch subtype name to a liability type, defaulting to [LiabilityDebt].
func ResolveLiabilityType(monarchSubtype string) LiabilityType {
	switch normalize(monarchSubtype) {
	case "loan", "auto", "student", "personal", "line_of_credit", "home_equity":
		return LiabilityLoan
	case "mortgage":
		return LiabilityMortgage
	case "ccasset", "credit_card":
		return LiabilityCreditCard
	default:
		return LiabilityDebt
	}
}

// ParseAccountType decodes a Firefly account type value.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(normalize(s)); t {
	case AccountAsset, AccountLiability, AccountLiabilities, AccountExpense, AccountRevenue, AccountCash,
		AccountImport, AccountInitial, AccountReconcile:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown account type %q", shared.ErrInvalidRecord, s)
}

// ParseAssetRole decodes a Firefly account_role value.
func ParseAssetRole(s string) (AssetRole, error) {
	switch r := AssetRole(strings.TrimSpace(s)); r {
	case AssetDefault, AssetShared, AssetSaving, AssetCCAsset, AssetCashWallet:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown account role %q", shared.ErrInvalidRecord, s)
}

// ParseLiabilityType decodes a Firefly liability_type value.
func ParseLiabilityType(s string) (LiabilityType, error) {
	switch l := LiabilityType(normalize(s)); l {
	case LiabilityDebt, LiabilityLoan, LiabilityMortgage, LiabilityCreditCard:
		return l, nil
	}
	return "", fmt.Errorf("%w: unknown liability type %q", shared.ErrInvalidRecord, s)
}

// ParseTransactionType decodes a Firefly transaction type value.
func ParseTransactionType(s string) (TransactionType, error) {
	switch tt := TransactionType(normalize(s)); tt {
	case TransactionWithdrawal, TransactionDeposit, TransactionTransfer, TransactionOpeningBalance, TransactionReconciliation:
		return tt, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", shared.ErrInvalidRecord, s)
}

// DirectionOf classifies a signed Monarch amount: negative amounts are withdrawals and positive
// amounts are deposits. A zero amount has no direction.
func DirectionOf(amount decimal.Decimal) (TransactionType, error) {
	switch amount.Sign() {
	case -1:
		return TransactionWithdrawal, nil
	case 1:
		return TransactionDeposit, nil
	default:
		return "", shared.ErrUndefinedDirection
	}
}
