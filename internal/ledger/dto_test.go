package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validInput() CreateEntryInput {
	return CreateEntryInput{
		PeriodID: 3,
		Date:     time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: 500, Debit: decimal.RequireFromString("100.00")},
			{AccountID: 200, Credit: decimal.RequireFromString("100.00")},
		},
	}
}

func TestCreateEntryInputValidate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	in := validInput()
	in.PeriodID = 0
	require.Error(t, in.Validate())

	in = validInput()
	in.Date = time.Time{}
	require.Error(t, in.Validate())

	in = validInput()
	in.ReferenceType = "purchase_order"
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines = in.Lines[:1]
	require.ErrorIs(t, in.Validate(), ErrTooFewLines)

	in = validInput()
	in.Lines[0].AccountID = 0
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines[0].Debit = decimal.RequireFromString("-5.00")
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines[0].Credit = decimal.RequireFromString("10.00")
	require.Error(t, in.Validate())
}

func TestValidateRejectsEmptyLine(t *testing.T) {
	in := validInput()
	in.Lines = append(in.Lines, LineInput{AccountID: 400})
	require.Error(t, in.Validate())
}

func TestValidateBalanceTolerance(t *testing.T) {
	in := validInput()
	in.Lines[1].Credit = decimal.RequireFromString("100.01")
	require.NoError(t, in.Validate())

	in.Lines[1].Credit = decimal.RequireFromString("100.02")
	require.ErrorIs(t, in.Validate(), ErrUnbalanced)
}

func TestLinePatchValidate(t *testing.T) {
	debit := decimal.RequireFromString("10.00")
	credit := decimal.RequireFromString("20.00")
	require.Error(t, LinePatch{Debit: &debit, Credit: &credit}.Validate())

	negative := decimal.RequireFromString("-1.00")
	require.Error(t, LinePatch{Debit: &negative}.Validate())

	require.NoError(t, LinePatch{Debit: &debit}.Validate())
}

func TestSetDebitZeroesCredit(t *testing.T) {
	line := JournalLineItem{Credit: decimal.RequireFromString("50.00")}
	line.SetDebit(decimal.RequireFromString("75.00"))
	require.True(t, line.Credit.IsZero())
	require.True(t, line.Debit.Equal(decimal.RequireFromString("75.00")))

	line.SetCredit(decimal.RequireFromString("30.00"))
	require.True(t, line.Debit.IsZero())
}

func TestReferenceTypePartitions(t *testing.T) {
	for _, ref := range []ReferenceType{RefApInvoice, RefApInvoiceRetainage, RefProjectBilling, RefProjectBillingRetainage, RefLaborCost, RefProjectExpense} {
		require.True(t, ref.Valid())
		require.True(t, ref.Previewable())
	}
	for _, ref := range []ReferenceType{RefOverBilling, RefUnderBilling, RefReversal} {
		require.True(t, ref.Valid())
		require.False(t, ref.Previewable())
	}
	require.False(t, ReferenceType("purchase_order").Valid())
}
