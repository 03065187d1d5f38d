package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceType tags the domain process that generated a journal entry.
type ReferenceType string

const (
	RefApInvoice               ReferenceType = "ap_invoice"
	RefApInvoiceRetainage      ReferenceType = "ap_invoice_retainage"
	RefProjectBilling          ReferenceType = "project_billing"
	RefProjectBillingRetainage ReferenceType = "project_billing_retainage"
	RefLaborCost               ReferenceType = "labor_cost"
	RefProjectExpense          ReferenceType = "project_expense"
	RefOverBilling             ReferenceType = "over_billing"
	RefUnderBilling            ReferenceType = "under_billing"
	RefReversal                ReferenceType = "reversal"
)

var referenceLabels = map[ReferenceType]string{
	RefApInvoice:               "AP Invoice",
	RefApInvoiceRetainage:      "AP Invoice Retainage",
	RefProjectBilling:          "Project Billing",
	RefProjectBillingRetainage: "Project Billing Retainage",
	RefLaborCost:               "Labor Cost",
	RefProjectExpense:          "Project Expense",
	RefOverBilling:             "Over Billing",
	RefUnderBilling:            "Under Billing",
	RefReversal:                "Reversal",
}

// Valid reports whether the reference type is a known value.
func (t ReferenceType) Valid() bool {
	_, ok := referenceLabels[t]
	return ok
}

// Label returns the human-readable reference-type label.
func (t ReferenceType) Label() string {
	if label, ok := referenceLabels[t]; ok {
		return label
	}
	return string(t)
}

// Previewable reports whether the originating source document can be fetched.
// Over/under-billing and reversals are system-generated adjustments with no
// external source document.
func (t ReferenceType) Previewable() bool {
	switch t {
	case RefApInvoice, RefApInvoiceRetainage, RefProjectBilling, RefProjectBillingRetainage, RefLaborCost, RefProjectExpense:
		return true
	}
	return false
}

// JournalEntry is a balanced set of debit/credit postings to the general ledger.
type JournalEntry struct {
	ID                   uuid.UUID
	Number               int64
	PeriodID             int64
	ProjectID            *int64
	Date                 time.Time
	Description          string
	ReferenceType        ReferenceType
	ReferenceID          uuid.UUID
	ExportedToAccounting bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Lines                []JournalLineItem
}

// TotalDebit sums the debit side of all lines.
func (e JournalEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// TotalCredit sums the credit side of all lines.
func (e JournalEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Credit)
	}
	return total
}

// JournalLineItem is one posting within a journal entry. Exactly one of
// Debit/Credit is non-zero at any time.
type JournalLineItem struct {
	ID          int64
	EntryID     uuid.UUID
	LineNumber  int
	AccountID   int64
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetDebit assigns the debit amount and zeroes the credit side.
func (l *JournalLineItem) SetDebit(amount decimal.Decimal) {
	l.Debit = amount
	l.Credit = decimal.Zero
}

// SetCredit assigns the credit amount and zeroes the debit side.
func (l *JournalLineItem) SetCredit(amount decimal.Decimal) {
	l.Credit = amount
	l.Debit = decimal.Zero
}

// BalanceTolerance is the maximum accepted drift between debit and credit
// totals, in currency units.
var BalanceTolerance = decimal.NewFromFloat(0.01)
