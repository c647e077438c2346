package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/fmbridge/internal/shared"
)

func TestAnnotation(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, id := range []string{"42", "abc-123", "0"} {
			a := ParseAnnotation(NewAnnotation(id).String())
			assert.Equal(t, id, a.SourceID())
		}
	})

	t.Run("encodes the namespace", func(t *testing.T) {
		assert.JSONEq(t, `{"monarchmoney":{"id":"42"}}`, NewAnnotation("42").String())
	})

	t.Run("numeric ids normalize to strings", func(t *testing.T) {
		assert.Equal(t, "42", ParseAnnotation(`{"monarchmoney":{"id":42}}`).SourceID())
	})

	t.Run("unknown keys are preserved", func(t *testing.T) {
		a := ParseAnnotation(`{"monarchmoney":{"id":"1"},"ynab":{"id":"x"}}`).WithSourceID("2")

		var decoded map[string]map[string]string
		require.NoError(t, json.Unmarshal([]byte(a.String()), &decoded))
		assert.Equal(t, "2", decoded["monarchmoney"]["id"])
		assert.Equal(t, "x", decoded["ynab"]["id"])
	})

	t.Run("non-JSON text has no source id", func(t *testing.T) {
		a := ParseAnnotation("paid in cash")
		assert.False(t, a.HasSourceID())
		assert.Equal(t, "paid in cash", a.String())

		tagged := a.WithSourceID("9")
		assert.Equal(t, "9", ParseAnnotation(tagged.String()).SourceID())
		assert.Contains(t, tagged.String(), "paid in cash")
	})

	t.Run("empty and malformed refs", func(t *testing.T) {
		assert.Empty(t, ParseAnnotation("").SourceID())
		assert.Empty(t, ParseAnnotation(`{"monarchmoney":"42"}`).SourceID())
		assert.Empty(t, ParseAnnotation(`{"monarchmoney":{"id":null}}`).SourceID())
		assert.Empty(t, ParseAnnotation(`[1,2]`).SourceID())
	})
}

func TestNormalizeID(t *testing.T) {
	id, ok := NormalizeID(json.RawMessage(`"7"`))
	assert.True(t, ok)
	assert.Equal(t, "7", id)

	id, ok = NormalizeID(json.RawMessage(`160012345`))
	assert.True(t, ok)
	assert.Equal(t, "160012345", id)

	_, ok = NormalizeID(json.RawMessage(`{"a":1}`))
	assert.False(t, ok)

	id, ok = IDString(float64(3))
	assert.True(t, ok)
	assert.Equal(t, "3", id)
}

func TestLifecycle(t *testing.T) {
	c, err := NewCategory("3", "Groceries")
	require.NoError(t, err)
	assert.Equal(t, StateDraft, c.State())
	assert.Empty(t, c.ID())
	assert.Equal(t, "3", c.SourceID())

	assert.ErrorIs(t, c.Detach(), shared.ErrNotLoaded)

	require.NoError(t, c.Attach("C1"))
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, "C1", c.ID())

	assert.ErrorIs(t, c.Attach("C2"), shared.ErrInvalidRecord)

	require.NoError(t, c.Detach())
	assert.Equal(t, StateDetached, c.State())
	assert.Empty(t, c.ID())
	assert.ErrorIs(t, c.Detach(), shared.ErrNotLoaded)
	assert.Error(t, c.Attach("C3"))
}

func TestAccount(t *testing.T) {
	t.Run("credit card liability payload", func(t *testing.T) {
		at := ResolveAccountType("credit_card")
		a, err := NewAccount("42", "Visa", at, at.ResolveSubtype("ccAsset"))
		require.NoError(t, err)
		assert.Equal(t, AccountLiability, a.Type())
		assert.Equal(t, LiabilityCreditCard, a.Subtype())

		payload, err := a.Payload()
		require.NoError(t, err)
		assert.Equal(t, "Visa", payload["name"])
		assert.Equal(t, "liability", payload["type"])
		assert.Equal(t, "debt", payload["liability_type"])
		assert.Equal(t, "debit", payload["liability_direction"])
		assert.Equal(t, "monthlyFull", payload["credit_card_type"])
		assert.Contains(t, payload, "monthly_payment_date")
		assert.Equal(t, "42", ParseAnnotation(payload["notes"].(string)).SourceID())
	})

	t.Run("asset payload", func(t *testing.T) {
		a, err := NewAccount("1", "Checking", AccountAsset, AssetDefault)
		require.NoError(t, err)

		payload, err := a.Payload()
		require.NoError(t, err)
		assert.Equal(t, "defaultAsset", payload["account_role"])
		assert.NotContains(t, payload, "liability_type")
		assert.NotContains(t, payload, "credit_card_type")
	})

	t.Run("rejects a subtype outside the type's domain", func(t *testing.T) {
		_, err := NewAccount("1", "Checking", AccountAsset, LiabilityLoan)
		assert.ErrorIs(t, err, shared.ErrInvalidRecord)
	})

	t.Run("defaults a missing subtype", func(t *testing.T) {
		a, err := NewAccount("1", "Car", AccountLiability, nil)
		require.NoError(t, err)
		assert.Equal(t, LiabilityDebt, a.Subtype())

		e, err := NewAccount("2", "Groceries", AccountExpense, nil)
		require.NoError(t, err)
		assert.Nil(t, e.Subtype())
	})

	t.Run("requires a name", func(t *testing.T) {
		_, err := NewAccount("1", "", AccountAsset, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidRecord)
	})
}

func TestTag(t *testing.T) {
	tag, err := NewTag("5", "vacation")
	require.NoError(t, err)

	payload, err := tag.Payload()
	require.NoError(t, err)
	assert.Equal(t, "vacation", payload["tag"])
	assert.Equal(t, "5", ParseAnnotation(payload["description"].(string)).SourceID())
	assert.NotContains(t, payload, "notes")
}

func TestTransaction(t *testing.T) {
	category, err := LoadCategory("C1", "Groceries", NewAnnotation("3").String())
	require.NoError(t, err)

	fields := TransactionFields{
		Amount:       decimal.RequireFromString("-50.00"),
		Date:         "2024-01-05",
		Description:  "WHOLE FOODS",
		Account:      "Checking",
		Counterparty: "Whole Foods",
		Category:     category,
		Tags:         []string{"food"},
	}

	t.Run("withdrawal payload", func(t *testing.T) {
		tx, err := NewTransaction("7", fields)
		require.NoError(t, err)
		assert.Equal(t, TransactionWithdrawal, tx.Direction())

		payload, err := tx.Payload()
		require.NoError(t, err)
		assert.Equal(t, true, payload["apply_rules"])
		assert.Equal(t, "", payload["group_title"])

		splits := payload["transactions"].([]map[string]any)
		require.Len(t, splits, 1)
		split := splits[0]
		assert.Equal(t, "50.00", split["amount"])
		assert.Equal(t, "withdrawal", split["type"])
		assert.Equal(t, "C1", split["category_id"])
		assert.Equal(t, "7", split["external_id"])
		assert.Equal(t, "Checking", split["source_name"])
		assert.Equal(t, "Whole Foods", split["destination_name"])
		assert.Equal(t, []string{"food"}, split["tags"])
	})

	t.Run("deposit swaps parties", func(t *testing.T) {
		f := fields
		f.Amount = decimal.RequireFromString("12.5")
		tx, err := NewTransaction("8", f)
		require.NoError(t, err)

		payload, err := tx.Payload()
		require.NoError(t, err)
		split := payload["transactions"].([]map[string]any)[0]
		assert.Equal(t, "deposit", split["type"])
		assert.Equal(t, "12.50", split["amount"])
		assert.Equal(t, "Whole Foods", split["source_name"])
		assert.Equal(t, "Checking", split["destination_name"])

		account, counterparty := SplitParties(TransactionDeposit, "Whole Foods", "Checking")
		assert.Equal(t, "Checking", account)
		assert.Equal(t, "Whole Foods", counterparty)
	})

	t.Run("zero amount is rejected", func(t *testing.T) {
		f := fields
		f.Amount = decimal.Zero
		_, err := NewTransaction("9", f)
		assert.ErrorIs(t, err, shared.ErrUndefinedDirection)
	})

	t.Run("sub-cent amount is rejected", func(t *testing.T) {
		for _, amount := range []string{"-0.004", "0.001"} {
			f := fields
			f.Amount = decimal.RequireFromString(amount)
			_, err := NewTransaction("9", f)
			assert.ErrorIs(t, err, shared.ErrUndefinedDirection, amount)
		}
	})

	t.Run("amount is rounded to cents", func(t *testing.T) {
		f := fields
		f.Amount = decimal.RequireFromString("-0.005")
		tx, err := NewTransaction("9", f)
		require.NoError(t, err)
		assert.Equal(t, TransactionWithdrawal, tx.Direction())

		payload, err := tx.Payload()
		require.NoError(t, err)
		assert.Equal(t, "0.01", payload["transactions"].([]map[string]any)[0]["amount"])
	})

	t.Run("draft category is unresolvable", func(t *testing.T) {
		draft, err := NewCategory("3", "Groceries")
		require.NoError(t, err)

		f := fields
		f.Category = draft
		_, err = NewTransaction("10", f)
		assert.True(t, errors.Is(err, shared.ErrUnresolvableReference))

		f.Category = nil
		_, err = NewTransaction("10", f)
		assert.ErrorIs(t, err, shared.ErrUnresolvableReference)
	})

	t.Run("loaded transaction falls back to external id", func(t *testing.T) {
		tx := LoadTransaction("T1", "imported", "7", "C1", TransactionWithdrawal, TransactionFields{
			Amount:  decimal.RequireFromString("50"),
			Account: "Checking",
		})
		assert.Equal(t, StateLoaded, tx.State())
		assert.Equal(t, "7", tx.SourceID())
		assert.Equal(t, "C1", tx.CategoryID())
	})
}

func TestSyncRun(t *testing.T) {
	run := NewSyncRun(true)
	require.NoError(t, run.Validate())
	assert.Equal(t, StatusRunning, run.Status)
	assert.Zero(t, run.Duration())

	run.Kinds = append(run.Kinds, KindRun{Kind: "budgets"})
	assert.ErrorIs(t, run.Validate(), shared.ErrUnknownKind)
	run.Kinds = nil

	run.Complete(StatusPartial, errors.New("1 record failed"))
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, "1 record failed", run.ErrorMessage)

	assert.Equal(t, StatusSuccess, StatusFor(3, 0))
	assert.Equal(t, StatusPartial, StatusFor(3, 1))
	assert.Equal(t, StatusFailed, StatusFor(0, 1))
	assert.Equal(t, StatusFailed, StatusSuccess.Worst(StatusFailed))
	assert.Equal(t, StatusPartial, StatusPartial.Worst(StatusSuccess))
}
