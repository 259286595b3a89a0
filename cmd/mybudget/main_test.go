package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/config"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

func TestRequiresSession_InheritedFromParent(t *testing.T) {
	assert.False(t, requiresSession(loginCmd()))

	tx := txCmd()
	list, _, err := tx.Find([]string{"list"})
	require.NoError(t, err)
	assert.True(t, requiresSession(list))
}

func TestDescribe(t *testing.T) {
	err := describe(&domain.ErrValidation{Fields: domain.FieldErrors{
		domain.FieldAmount:   "Amount must be greater than 0",
		domain.FieldCategory: "Unknown category",
	}})
	assert.Contains(t, err.Error(), "  amount: Amount must be greater than 0")
	assert.Contains(t, err.Error(), "  category: Unknown category")

	plain := errors.New("boom")
	assert.Same(t, plain, describe(plain))
}

func TestFormatMoney(t *testing.T) {
	cfg = &config.Config{Currency: "USD"}
	t.Cleanup(func() { cfg = nil })

	assert.Equal(t, "$1,234.50", formatMoney(decimal.RequireFromString("1234.5")))

	cfg.Currency = "XXX-UNKNOWN"
	assert.Equal(t, "12.00 XXX-UNKNOWN", formatMoney(decimal.NewFromInt(12)))
}

func TestApplyTxFlags_OnlyChangedFields(t *testing.T) {
	cmd := &cobra.Command{}
	addTxFormFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--label", "Rent"}))

	form := domain.TransactionForm{Amount: "10", Label: "Old", Type: "DEPENSE", Category: "logement", Date: "2026-03-01"}
	applyTxFlags(cmd, &form)

	assert.Equal(t, "Rent", form.Label)
	assert.Equal(t, "10", form.Amount)
	assert.Equal(t, "2026-03-01", form.Date)
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(150)
	assert.Equal(t, progressBarWidth, strings.Count(bar, "█"), "bar is capped at full width")
	assert.Contains(t, bar, "150.0%")
}
