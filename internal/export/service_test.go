package export

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/girder-erp/girder-erp/internal/adapter"
	"github.com/girder-erp/girder-erp/internal/ledger"
	"github.com/girder-erp/girder-erp/internal/observability"
	"github.com/girder-erp/girder-erp/internal/refdata"
)

// stubLedger serves a fixed entry set and records MarkExported batches.
type stubLedger struct {
	mu       sync.Mutex
	entries  []ledger.JournalEntry
	exported map[uuid.UUID]bool
	listErr  error
}

func newStubLedger(entries ...ledger.JournalEntry) *stubLedger {
	return &stubLedger{entries: entries, exported: map[uuid.UUID]bool{}}
}

func (s *stubLedger) ListEntries(_ context.Context, filter ledger.EntryFilter) ([]ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []ledger.JournalEntry{}
	for _, e := range s.entries {
		if filter.PeriodID != 0 && e.PeriodID != filter.PeriodID {
			continue
		}
		if filter.ProjectID != nil && (e.ProjectID == nil || *e.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.OnlyOpen && s.exported[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubLedger) MarkExported(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.exported[id] = true
	}
	return nil
}

func (s *stubLedger) exportedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exported)
}

type stubPeriods struct{}

func (stubPeriods) GetPeriod(_ context.Context, id int64) (refdata.Period, error) {
	if id != 3 {
		return refdata.Period{}, refdata.ErrPeriodNotFound
	}
	return refdata.Period{ID: 3, Code: "2026-03"}, nil
}

func testEntry(projectID int64, ref ledger.ReferenceType, number int64) ledger.JournalEntry {
	return ledger.JournalEntry{
		ID:            uuid.New(),
		Number:        number,
		PeriodID:      3,
		ProjectID:     &projectID,
		Date:          time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		ReferenceType: ref,
		ReferenceID:   uuid.New(),
		Lines: []ledger.JournalLineItem{
			{LineNumber: 1, AccountID: 500, Debit: decimal.RequireFromString("100.00")},
			{LineNumber: 2, AccountID: 200, Credit: decimal.RequireFromString("100.00")},
		},
	}
}

func newTestExportService(led Ledger, sim *adapter.Simulated) *Service {
	logger := slog.Default()
	selector := adapter.NewSelector(nil, sim, logger)
	return NewService(logger, led, stubPeriods{}, selector, NewRunLock(nil, 0), observability.NewMetrics(), Options{
		Workers:     2,
		PushTimeout: time.Second,
	})
}

func fullSelection(projects ...int64) Selection {
	return Selection{
		PeriodID:   3,
		ProjectIDs: projects,
		DataTypes: map[DataType]bool{
			DataJournals:        true,
			DataAPInvoices:      true,
			DataProjectBillings: true,
		},
	}
}

func TestExecuteValidatesSelection(t *testing.T) {
	svc := newTestExportService(newStubLedger(), adapter.NewSimulated())
	ctx := context.Background()

	_, err := svc.Execute(ctx, Selection{})
	require.ErrorIs(t, err, ErrPeriodRequired)

	_, err = svc.Execute(ctx, Selection{PeriodID: 3})
	require.ErrorIs(t, err, ErrProjectRequired)

	_, err = svc.Execute(ctx, Selection{PeriodID: 3, ProjectIDs: []int64{1}})
	require.ErrorIs(t, err, ErrDataTypeRequired)

	_, err = svc.Execute(ctx, Selection{PeriodID: 9, ProjectIDs: []int64{1}, DataTypes: map[DataType]bool{DataJournals: true}})
	require.ErrorIs(t, err, refdata.ErrPeriodNotFound)
}

func TestExecuteMarksOnlySuccessfulPushes(t *testing.T) {
	led := newStubLedger(
		testEntry(1, ledger.RefLaborCost, 1001),
		testEntry(1, ledger.RefApInvoice, 1002),
		testEntry(2, ledger.RefLaborCost, 1003),
	)
	sim := adapter.NewSimulated()
	sim.FailProject(2, errors.New("duplicate document number"))
	svc := newTestExportService(led, sim)

	result, err := svc.Execute(context.Background(), fullSelection(1, 2))
	require.NoError(t, err)

	// Project 2's journal push failed; project 1's two pushes succeeded.
	require.Len(t, result.Failures, 1)
	require.Equal(t, int64(2), result.Failures[0].ProjectID)
	require.Equal(t, DataJournals, result.Failures[0].DataType)
	require.Contains(t, result.Failures[0].Reason, "duplicate document number")

	require.Equal(t, 2, result.ExportedCount)
	require.Equal(t, 2, led.exportedCount())
	require.Len(t, result.Journals, 1)
	require.Len(t, result.Invoices, 1)
}

func TestExecuteSimulatedMode(t *testing.T) {
	led := newStubLedger(testEntry(1, ledger.RefLaborCost, 1001))
	svc := newTestExportService(led, adapter.NewSimulated())

	result, err := svc.Execute(context.Background(), fullSelection(1))
	require.NoError(t, err)
	require.Equal(t, adapter.ModeSimulated, result.Mode)
	require.Equal(t, "Girder Simulation", result.CompanyLabel)
	require.NotNil(t, result.Settings)
	require.Len(t, result.Journals, 1)
	require.Equal(t, "SIM-000001", result.Journals[0].ExternalID)
}

func TestExecutePartitionsByReferenceType(t *testing.T) {
	led := newStubLedger(
		testEntry(1, ledger.RefLaborCost, 1001),
		testEntry(1, ledger.RefOverBilling, 1002),
		testEntry(1, ledger.RefApInvoice, 1003),
		testEntry(1, ledger.RefApInvoiceRetainage, 1004),
		testEntry(1, ledger.RefProjectBilling, 1005),
		testEntry(1, ledger.RefProjectBillingRetainage, 1006),
	)
	sim := adapter.NewSimulated()
	svc := newTestExportService(led, sim)

	result, err := svc.Execute(context.Background(), fullSelection(1))
	require.NoError(t, err)
	require.Empty(t, result.Failures)

	// labor_cost and over_billing travel as journals; the rest as invoices.
	require.Len(t, result.Journals, 2)
	require.Len(t, result.Invoices, 4)
	require.Equal(t, 6, result.ExportedCount)

	// Within the project, journals pushed before either invoice category.
	received := sim.Received()
	require.Len(t, received, 3)
	require.Equal(t, "journal_entry", received[0].Docs[0].Kind)
}

func TestExecuteSkipsEmptyCategories(t *testing.T) {
	led := newStubLedger(testEntry(1, ledger.RefLaborCost, 1001))
	sim := adapter.NewSimulated()
	svc := newTestExportService(led, sim)

	result, err := svc.Execute(context.Background(), fullSelection(1))
	require.NoError(t, err)
	require.Empty(t, result.Failures)
	require.Empty(t, result.Invoices)
	require.Len(t, sim.Received(), 1)
}

func TestExecuteRerunExcludesLockedEntries(t *testing.T) {
	led := newStubLedger(
		testEntry(1, ledger.RefLaborCost, 1001),
		testEntry(1, ledger.RefLaborCost, 1002),
	)
	svc := newTestExportService(led, adapter.NewSimulated())
	ctx := context.Background()

	first, err := svc.Execute(ctx, fullSelection(1))
	require.NoError(t, err)
	require.Equal(t, 2, first.ExportedCount)

	second, err := svc.Execute(ctx, fullSelection(1))
	require.NoError(t, err)
	require.Zero(t, second.ExportedCount)
	require.Empty(t, second.Journals)
}

func TestExecuteListFailureIsolatedPerProject(t *testing.T) {
	led := newStubLedger(testEntry(1, ledger.RefLaborCost, 1001))
	led.listErr = errors.New("connection reset")
	svc := newTestExportService(led, adapter.NewSimulated())

	result, err := svc.Execute(context.Background(), fullSelection(1))
	require.NoError(t, err)
	// Every selected data type for the project is recorded as failed.
	require.Len(t, result.Failures, 3)
	require.Zero(t, result.ExportedCount)
}
