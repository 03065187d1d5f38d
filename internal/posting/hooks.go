// Package posting turns domain events into journal entries. Upstream modules
// (AP, billing, payroll, expenses) call these hooks after committing their
// own records; the hooks derive a deterministic reference ID per document so
// a replayed event never books the same entry twice.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

// Ledger is the slice of the ledger service the hooks need.
type Ledger interface {
	CreateEntry(ctx context.Context, in ledger.CreateEntryInput) (ledger.JournalEntry, error)
}

// Accounts carries the control-account configuration every event posts
// against. IDs refer to rows in gl_accounts.
type Accounts struct {
	AccountsPayable     int64
	RetainagePayable    int64
	AccountsReceivable  int64
	RetainageReceivable int64
	ContractRevenue     int64
	JobCost             int64
	AccruedPayroll      int64
}

// Hooks posts ledger entries for upstream document events.
type Hooks struct {
	ledger   Ledger
	accounts Accounts
	logger   *slog.Logger
}

// NewHooks constructs the posting hooks.
func NewHooks(logger *slog.Logger, led Ledger, accounts Accounts) *Hooks {
	return &Hooks{ledger: led, accounts: accounts, logger: logger}
}

// retainageID derives the stable reference ID for the retainage split of a
// document. The same document always maps to the same ID.
func retainageID(docID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(docID, []byte("retainage"))
}

// post books one entry, treating an already-linked reference as success.
func (h *Hooks) post(ctx context.Context, in ledger.CreateEntryInput) error {
	_, err := h.ledger.CreateEntry(ctx, in)
	if errors.Is(err, ledger.ErrSourceAlreadyLinked) {
		h.logger.Info("posting: entry already booked",
			slog.String("reference_type", string(in.ReferenceType)),
			slog.String("reference_id", in.ReferenceID.String()))
		return nil
	}
	return err
}

// APInvoiceEvent describes a committed accounts-payable invoice.
type APInvoiceEvent struct {
	InvoiceID     uuid.UUID
	PeriodID      int64
	ProjectID     *int64
	InvoiceDate   time.Time
	VendorName    string
	InvoiceNumber string
	CostAccountID int64
	Total         decimal.Decimal
	Retainage     decimal.Decimal
}

// PostAPInvoice books the expense entry for an AP invoice and, when the
// invoice holds back retainage, a second entry moving the withheld portion
// from accounts payable to retainage payable.
func (h *Hooks) PostAPInvoice(ctx context.Context, ev APInvoiceEvent) error {
	memo := fmt.Sprintf("AP invoice %s - %s", ev.InvoiceNumber, ev.VendorName)
	err := h.post(ctx, ledger.CreateEntryInput{
		PeriodID:      ev.PeriodID,
		ProjectID:     ev.ProjectID,
		Date:          ev.InvoiceDate,
		Description:   memo,
		ReferenceType: ledger.RefApInvoice,
		ReferenceID:   ev.InvoiceID,
		Lines: []ledger.LineInput{
			{AccountID: ev.CostAccountID, Description: memo, Debit: ev.Total},
			{AccountID: h.accounts.AccountsPayable, Description: memo, Credit: ev.Total},
		},
	})
	if err != nil {
		return err
	}
	if !ev.Retainage.IsPositive() {
		return nil
	}
	retMemo := fmt.Sprintf("Retainage held on AP invoice %s", ev.InvoiceNumber)
	return h.post(ctx, ledger.CreateEntryInput{
		PeriodID:      ev.PeriodID,
		ProjectID:     ev.ProjectID,
		Date:          ev.InvoiceDate,
		Description:   retMemo,
		ReferenceType: ledger.RefApInvoiceRetainage,
		ReferenceID:   retainageID(ev.InvoiceID),
		Lines: []ledger.LineInput{
			{AccountID: h.accounts.AccountsPayable, Description: retMemo, Debit: ev.Retainage},
			{AccountID: h.accounts.RetainagePayable, Description: retMemo, Credit: ev.Retainage},
		},
	})
}

// BillingEvent describes a committed project billing.
type BillingEvent struct {
	BillingID     uuid.UUID
	PeriodID      int64
	ProjectID     *int64
	BillingDate   time.Time
	CustomerName  string
	BillingNumber string
	Total         decimal.Decimal
	Retainage     decimal.Decimal
}

// PostProjectBilling books revenue for a billing plus the receivable-side
// retainage split when the customer withholds part of it.
func (h *Hooks) PostProjectBilling(ctx context.Context, ev BillingEvent) error {
	memo := fmt.Sprintf("Billing %s - %s", ev.BillingNumber, ev.CustomerName)
	err := h.post(ctx, ledger.CreateEntryInput{
		PeriodID:      ev.PeriodID,
		ProjectID:     ev.ProjectID,
		Date:          ev.BillingDate,
		Description:   memo,
		ReferenceType: ledger.RefProjectBilling,
		ReferenceID:   ev.BillingID,
		Lines: []ledger.LineInput{
			{AccountID: h.accounts.AccountsReceivable, Description: memo, Debit: ev.Total},
			{AccountID: h.accounts.ContractRevenue, Description: memo, Credit: ev.Total},
		},
	})
	if err != nil {
		return err
	}
	if !ev.Retainage.IsPositive() {
		return nil
	}
	retMemo := fmt.Sprintf("Retainage withheld on billing %s", ev.BillingNumber)
	return h.post(ctx, ledger.CreateEntryInput{
		PeriodID:      ev.PeriodID,
		ProjectID:     ev.ProjectID,
		Date:          ev.BillingDate,
		Description:   retMemo,
		ReferenceType: ledger.RefProjectBillingRetainage,
		ReferenceID:   retainageID(ev.BillingID),
		Lines: []ledger.LineInput{
			{AccountID: h.accounts.RetainageReceivable, Description: retMemo, Debit: ev.Retainage},
			{AccountID: h.accounts.AccountsReceivable, Description: retMemo, Credit: ev.Retainage},
		},
	})
}

// LaborCostEvent describes a payroll allocation against a project.
type LaborCostEvent struct {
	LaborCostID   uuid.UUID
	PeriodID      int64
	ProjectID     *int64
	WorkDate      time.Time
	EmployeeName  string
	CostAccountID int64
	Amount        decimal.Decimal
}

// PostLaborCost books a labor allocation against accrued payroll.
func (h *Hooks) PostLaborCost(ctx context.Context, ev LaborCostEvent) error {
	memo := fmt.Sprintf("Labor - %s", ev.EmployeeName)
	return h.post(ctx, ledger.CreateEntryInput{
		PeriodID:      ev.PeriodID,
		ProjectID:     ev.ProjectID,
		Date:          ev.WorkDate,
		Description:   memo,
		ReferenceType: ledger.RefLaborCost,
		ReferenceID:   ev.LaborCostID,
		Lines: []ledger.LineInput{
			{AccountID: ev.CostAccountID, Description: memo, Debit: ev.Amount},
			{AccountID: h.accounts.AccruedPayroll, Description: memo, Credit: ev.Amount},
		},
	})
}

// ExpenseEvent describes a direct project expense.
type ExpenseEvent struct {
	ExpenseID       uuid.UUID
	PeriodID        int64
	ProjectID       *int64
	ExpenseDate     time.Time
	Description     string
	CostAccountID   int64
	OffsetAccountID int64
	Amount          decimal.Decimal
}

// PostProjectExpense books a direct expense against its offset account.
func (h *Hooks) PostProjectExpense(ctx context.Context, ev ExpenseEvent) error {
	return h.post(ctx, ledger.CreateEntryInput{
		PeriodID:      ev.PeriodID,
		ProjectID:     ev.ProjectID,
		Date:          ev.ExpenseDate,
		Description:   ev.Description,
		ReferenceType: ledger.RefProjectExpense,
		ReferenceID:   ev.ExpenseID,
		Lines: []ledger.LineInput{
			{AccountID: ev.CostAccountID, Description: ev.Description, Debit: ev.Amount},
			{AccountID: ev.OffsetAccountID, Description: ev.Description, Credit: ev.Amount},
		},
	})
}
