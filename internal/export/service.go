package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/girder-erp/girder-erp/internal/adapter"
	"github.com/girder-erp/girder-erp/internal/ledger"
	"github.com/girder-erp/girder-erp/internal/observability"
	"github.com/girder-erp/girder-erp/internal/refdata"
)

// Ledger is the slice of the ledger store the orchestrator depends on.
type Ledger interface {
	ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]ledger.JournalEntry, error)
	MarkExported(ctx context.Context, ids []uuid.UUID) error
}

// PeriodSource validates the selected accounting period.
type PeriodSource interface {
	GetPeriod(ctx context.Context, id int64) (refdata.Period, error)
}

// Options tunes an export run.
type Options struct {
	Workers     int
	PushTimeout time.Duration
}

// Service orchestrates export runs.
type Service struct {
	ledger   Ledger
	refdata  PeriodSource
	selector *adapter.Selector
	lock     *RunLock
	metrics  *observability.Metrics
	logger   *slog.Logger
	opts     Options
}

// NewService constructs the export orchestrator.
func NewService(logger *slog.Logger, led Ledger, ref PeriodSource, selector *adapter.Selector, lock *RunLock, metrics *observability.Metrics, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = 30 * time.Second
	}
	return &Service{
		ledger:   led,
		refdata:  ref,
		selector: selector,
		lock:     lock,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

// dataTypeFor partitions ledger entries into export categories by the process
// that generated them.
func dataTypeFor(ref ledger.ReferenceType) DataType {
	switch ref {
	case ledger.RefApInvoice, ledger.RefApInvoiceRetainage:
		return DataAPInvoices
	case ledger.RefProjectBilling, ledger.RefProjectBillingRetainage:
		return DataProjectBillings
	}
	return DataJournals
}

// Execute runs the export for a completed selection. Pushes for different
// projects run concurrently under a bounded pool; within a project, journals
// go before invoices. MarkExported applies only after every push resolved, so
// ledger readers never observe entries locked by a push that later failed.
func (s *Service) Execute(ctx context.Context, sel Selection) (*Result, error) {
	if sel.PeriodID == 0 {
		return nil, ErrPeriodRequired
	}
	if len(sel.ProjectIDs) == 0 {
		return nil, ErrProjectRequired
	}
	types := sel.SelectedTypes()
	if len(types) == 0 {
		return nil, ErrDataTypeRequired
	}

	release, err := s.lock.Acquire(ctx, sel.PeriodID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.refdata.GetPeriod(ctx, sel.PeriodID); err != nil {
		return nil, fmt.Errorf("export: period %d: %w", sel.PeriodID, err)
	}

	backend, status := s.selector.Pick(ctx)
	result := newResult(sel.PeriodID, status)
	s.logger.Info("export run starting",
		slog.Int64("period_id", sel.PeriodID),
		slog.Int("projects", len(sel.ProjectIDs)),
		slog.String("mode", string(status.Mode)),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)
	for _, projectID := range sel.ProjectIDs {
		projectID := projectID
		group.Go(func() error {
			s.exportProject(groupCtx, backend, sel, types, projectID, result)
			return nil
		})
	}
	// Worker funcs never return errors; failures land in the result.
	_ = group.Wait()

	exported := result.ExportedIDs()
	if err := s.ledger.MarkExported(ctx, exported); err != nil {
		return result, fmt.Errorf("export: mark exported: %w", err)
	}
	result.ExportedCount = len(exported)
	s.metrics.ObserveEntriesLocked(len(exported))
	s.logger.Info("export run finished",
		slog.Int64("period_id", sel.PeriodID),
		slog.Int("exported", len(exported)),
		slog.Int("failures", len(result.Failures)),
	)
	return result, nil
}

// exportProject pushes every selected data type for one project, in order.
// A failed pair is recorded and the remaining pairs still run.
func (s *Service) exportProject(ctx context.Context, backend adapter.Adapter, sel Selection, types []DataType, projectID int64, result *Result) {
	open, err := s.ledger.ListEntries(ctx, ledger.EntryFilter{
		PeriodID:  sel.PeriodID,
		ProjectID: &projectID,
		OnlyOpen:  true,
	})
	if err != nil {
		for _, dt := range types {
			result.fail(projectID, dt, err)
			s.metrics.ObservePush(string(dt), false)
		}
		return
	}
	byType := make(map[DataType][]ledger.JournalEntry)
	for _, entry := range open {
		dt := dataTypeFor(entry.ReferenceType)
		byType[dt] = append(byType[dt], entry)
	}
	for _, dt := range types {
		entries := byType[dt]
		if len(entries) == 0 {
			continue
		}
		push, err := s.pushOne(ctx, backend, sel.PeriodID, projectID, dt, entries)
		if err != nil {
			s.logger.Warn("adapter push failed",
				slog.Int64("project_id", projectID),
				slog.String("data_type", string(dt)),
				slog.Any("error", err),
			)
			result.fail(projectID, dt, err)
			s.metrics.ObservePush(string(dt), false)
			continue
		}
		result.record(dt, push)
		s.metrics.ObservePush(string(dt), true)
	}
}

func (s *Service) pushOne(ctx context.Context, backend adapter.Adapter, periodID, projectID int64, dt DataType, entries []ledger.JournalEntry) (adapter.PushResult, error) {
	pushCtx, cancel := context.WithTimeout(ctx, s.opts.PushTimeout)
	defer cancel()
	switch dt {
	case DataJournals:
		return backend.PushJournalEntries(pushCtx, periodID, projectID, entries)
	case DataAPInvoices:
		return backend.PushInvoices(pushCtx, periodID, projectID, adapter.InvoiceAP, entries)
	case DataProjectBillings:
		return backend.PushInvoices(pushCtx, periodID, projectID, adapter.InvoiceAR, entries)
	}
	return adapter.PushResult{}, fmt.Errorf("export: unknown data type %q", dt)
}
