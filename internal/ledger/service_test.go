package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, newStubRefData())
	svc.WithNow(func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) })
	return svc, repo
}

func balancedInput() CreateEntryInput {
	return CreateEntryInput{
		PeriodID:    3,
		Date:        time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Description: "Steel delivery accrual",
		Lines: []LineInput{
			{AccountID: 500, Description: "Steel delivery", Debit: decimal.RequireFromString("500.00")},
			{AccountID: 200, Description: "Steel delivery", Credit: decimal.RequireFromString("500.00")},
		},
	}
}

func TestCreateEntryBalanced(t *testing.T) {
	svc, _ := newTestService()

	entry, err := svc.CreateEntry(context.Background(), balancedInput())
	require.NoError(t, err)
	require.NotZero(t, entry.Number)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, 1, entry.Lines[0].LineNumber)
	require.Equal(t, 2, entry.Lines[1].LineNumber)
	require.False(t, entry.ExportedToAccounting)
}

func TestCreateEntryUnbalanced(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.Lines[1].Credit = decimal.RequireFromString("300.00")
	_, err := svc.CreateEntry(context.Background(), in)
	require.ErrorIs(t, err, ErrUnbalanced)
}

func TestCreateEntryWithinTolerance(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.Lines[1].Credit = decimal.RequireFromString("499.99")
	_, err := svc.CreateEntry(context.Background(), in)
	require.NoError(t, err)
}

func TestCreateEntryDateOutsidePeriod(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.Date = time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateEntry(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestCreateEntryUnknownAccount(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.Lines[0].AccountID = 999
	_, err := svc.CreateEntry(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidAccount)
}

func TestCreateEntryTooFewLines(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.Lines = in.Lines[:1]
	in.Lines[0].Credit = in.Lines[0].Debit
	in.Lines[0].Debit = decimal.Zero
	_, err := svc.CreateEntry(context.Background(), in)
	require.ErrorIs(t, err, ErrTooFewLines)
}

func TestJournalNumbersMonotonic(t *testing.T) {
	svc, _ := newTestService()

	var last int64
	for i := 0; i < 5; i++ {
		entry, err := svc.CreateEntry(context.Background(), balancedInput())
		require.NoError(t, err)
		require.Greater(t, entry.Number, last)
		last = entry.Number
	}
}

func TestDuplicateReferenceRejected(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.ReferenceType = RefApInvoice
	in.ReferenceID = uuid.New()
	_, err := svc.CreateEntry(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.CreateEntry(context.Background(), in)
	require.ErrorIs(t, err, ErrSourceAlreadyLinked)
}

func TestLockedEntryRejectsMutations(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)
	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{entry.ID}))

	_, err = svc.AddLineItem(ctx, entry.ID, LineInput{AccountID: 500, Debit: decimal.RequireFromString("10.00")})
	require.ErrorIs(t, err, ErrEntryLocked)

	amount := decimal.RequireFromString("20.00")
	_, err = svc.UpdateLineItem(ctx, entry.ID, entry.Lines[0].ID, LinePatch{Debit: &amount})
	require.ErrorIs(t, err, ErrEntryLocked)

	require.ErrorIs(t, svc.RemoveLineItem(ctx, entry.ID, entry.Lines[0].ID), ErrEntryLocked)

	memo := "late edit"
	_, err = svc.UpdateHeader(ctx, entry.ID, HeaderPatch{Description: &memo})
	require.ErrorIs(t, err, ErrEntryLocked)

	require.ErrorIs(t, svc.DeleteEntry(ctx, entry.ID), ErrEntryLocked)
}

func TestCreateEntryRejectsEmptyLine(t *testing.T) {
	svc, _ := newTestService()

	in := balancedInput()
	in.Lines = append(in.Lines, LineInput{AccountID: 400})
	_, err := svc.CreateEntry(context.Background(), in)
	require.Error(t, err)
}

func TestAddLineItemRejectsEmptyLine(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)

	_, err = svc.AddLineItem(ctx, entry.ID, LineInput{AccountID: 400})
	require.Error(t, err)
}

func TestUpdateLineItemSwitchesSides(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)

	amount := decimal.RequireFromString("500.00")
	updated, err := svc.UpdateLineItem(ctx, entry.ID, entry.Lines[0].ID, LinePatch{Credit: &amount})
	require.NoError(t, err)
	require.True(t, updated.Debit.IsZero())
	require.True(t, updated.Credit.Equal(amount))
}

func TestRemoveLineItemRenumbers(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	in := balancedInput()
	in.Lines = append(in.Lines,
		LineInput{AccountID: 500, Debit: decimal.RequireFromString("100.00")},
		LineInput{AccountID: 200, Credit: decimal.RequireFromString("100.00")},
	)
	entry, err := svc.CreateEntry(ctx, in)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveLineItem(ctx, entry.ID, entry.Lines[1].ID))

	lines, err := repo.GetLines(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	for i, line := range lines {
		require.Equal(t, i+1, line.LineNumber)
	}
}

func TestMarkExportedIdempotentOneWay(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)

	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{entry.ID}))
	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{entry.ID}))

	got, err := repo.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, got.ExportedToAccounting)
}

func TestDeleteAllInPeriod(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateEntry(ctx, balancedInput())
		require.NoError(t, err)
	}

	result, err := svc.DeleteAllInPeriod(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 3, result.DeletedEntries)
	require.Equal(t, 6, result.DeletedLines)
	require.Empty(t, repo.entries)
}

func TestDeleteAllInPeriodBlockedByExport(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	var exported uuid.UUID
	for i := 0; i < 3; i++ {
		entry, err := svc.CreateEntry(ctx, balancedInput())
		require.NoError(t, err)
		if i == 0 {
			exported = entry.ID
		}
	}
	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{exported}))

	_, err := svc.DeleteAllInPeriod(ctx, 3)
	require.ErrorIs(t, err, ErrPeriodHasExportedEntries)

	var blocked *ExportBlockedError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, 1, blocked.Blocking)

	// Nothing was deleted.
	require.Len(t, repo.entries, 3)
}

func TestPeriodDeletionBlocked(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)

	blocked, count, err := svc.PeriodDeletionBlocked(ctx, 3)
	require.NoError(t, err)
	require.False(t, blocked)
	require.Zero(t, count)

	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{entry.ID}))

	blocked, count, err = svc.PeriodDeletionBlocked(ctx, 3)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 1, count)
}

func TestReverseEntryMirrorsLines(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)
	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{entry.ID}))

	// Locked entries may still be reversed; the original is untouched.
	reversal, err := svc.ReverseEntry(ctx, entry.ID, time.Time{}, "")
	require.NoError(t, err)
	require.Equal(t, RefReversal, reversal.ReferenceType)
	require.Contains(t, reversal.Description, "Reversal of JE")
	require.True(t, reversal.Lines[0].Credit.Equal(entry.Lines[0].Debit))
	require.True(t, reversal.Lines[1].Debit.Equal(entry.Lines[1].Credit))
	require.False(t, reversal.ExportedToAccounting)

	original, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, original.ExportedToAccounting)
}

func TestReverseEntryNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.ReverseEntry(context.Background(), uuid.New(), time.Time{}, "")
	require.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestListEntriesOnlyOpen(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, balancedInput())
	require.NoError(t, err)
	require.NoError(t, svc.MarkExported(ctx, []uuid.UUID{first.ID}))

	open, err := svc.ListEntries(ctx, EntryFilter{PeriodID: 3, OnlyOpen: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.NotEqual(t, first.ID, open[0].ID)
}
