package trace

import (
	"context"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

// Status classifies a preview outcome.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNotPreviewable Status = "not_previewable"
	StatusFetchFailed    Status = "source_fetch_failed"
)

// Preview is the discriminated payload returned for an entry. Exactly one of
// the detail pointers is set when Status is ok, matching the reference type.
type Preview struct {
	Entry     ledger.JournalEntry `json:"journal_entry"`
	Status    Status              `json:"status"`
	ApInvoice *ApInvoiceDetail    `json:"ap_invoice,omitempty"`
	Billing   *BillingDetail      `json:"project_billing,omitempty"`
	LaborCost *LaborCostDetail    `json:"labor_cost,omitempty"`
	Expense   *ExpenseDetail      `json:"project_expense,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}

type fetchFunc func(ctx context.Context, r *Resolver, entry ledger.JournalEntry, preview *Preview) error

// Resolver dispatches reference types through a single lookup table instead
// of branching at every caller.
type Resolver struct {
	sources Sources
	lookup  map[ledger.ReferenceType]fetchFunc
}

// NewResolver constructs the resolver over the given collaborators.
func NewResolver(sources Sources) *Resolver {
	r := &Resolver{sources: sources}
	r.lookup = map[ledger.ReferenceType]fetchFunc{
		ledger.RefApInvoice:               fetchApInvoice,
		ledger.RefApInvoiceRetainage:      fetchApInvoice,
		ledger.RefProjectBilling:          fetchBilling,
		ledger.RefProjectBillingRetainage: fetchBilling,
		ledger.RefLaborCost:               fetchLaborCost,
		ledger.RefProjectExpense:          fetchExpense,
	}
	return r
}

// Resolve renders the preview for one entry. Non-previewable reference types
// and collaborator failures come back as typed statuses, never as an error.
func (r *Resolver) Resolve(ctx context.Context, entry ledger.JournalEntry) Preview {
	preview := Preview{Entry: entry}
	fetch, ok := r.lookup[entry.ReferenceType]
	if !ok || !entry.ReferenceType.Previewable() {
		preview.Status = StatusNotPreviewable
		return preview
	}
	if err := fetch(ctx, r, entry, &preview); err != nil {
		return Preview{Entry: entry, Status: StatusFetchFailed, Reason: err.Error()}
	}
	preview.Status = StatusOK
	return preview
}

func fetchApInvoice(ctx context.Context, r *Resolver, entry ledger.JournalEntry, preview *Preview) error {
	detail, err := r.sources.ApInvoices.GetApInvoice(ctx, entry.ReferenceID)
	if err != nil {
		return err
	}
	preview.ApInvoice = &detail
	return nil
}

func fetchBilling(ctx context.Context, r *Resolver, entry ledger.JournalEntry, preview *Preview) error {
	detail, err := r.sources.Billings.GetProjectBilling(ctx, entry.ReferenceID)
	if err != nil {
		return err
	}
	preview.Billing = &detail
	return nil
}

func fetchLaborCost(ctx context.Context, r *Resolver, entry ledger.JournalEntry, preview *Preview) error {
	detail, err := r.sources.LaborCosts.GetLaborCost(ctx, entry.ReferenceID)
	if err != nil {
		return err
	}
	preview.LaborCost = &detail
	return nil
}

func fetchExpense(ctx context.Context, r *Resolver, entry ledger.JournalEntry, preview *Preview) error {
	detail, err := r.sources.Expenses.GetProjectExpense(ctx, entry.ReferenceID)
	if err != nil {
		return err
	}
	preview.Expense = &detail
	return nil
}
