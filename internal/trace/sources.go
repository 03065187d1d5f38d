// Package trace maps a ledger entry back to the domain document that
// generated it.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApInvoiceDetail is the previewable shape of an accounts-payable invoice.
type ApInvoiceDetail struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	VendorName    string          `json:"vendor_name"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	Total         decimal.Decimal `json:"total"`
	Retainage     decimal.Decimal `json:"retainage"`
}

// BillingDetail is the previewable shape of a project billing.
type BillingDetail struct {
	ID            uuid.UUID       `json:"id"`
	BillingNumber string          `json:"billing_number"`
	CustomerName  string          `json:"customer_name"`
	BillingDate   time.Time       `json:"billing_date"`
	Total         decimal.Decimal `json:"total"`
	Retainage     decimal.Decimal `json:"retainage"`
}

// LaborCostDetail is the previewable shape of a labor-cost posting.
type LaborCostDetail struct {
	ID           uuid.UUID       `json:"id"`
	EmployeeName string          `json:"employee_name"`
	WorkDate     time.Time       `json:"work_date"`
	Hours        decimal.Decimal `json:"hours"`
	Amount       decimal.Decimal `json:"amount"`
}

// ExpenseDetail is the previewable shape of a project expense.
type ExpenseDetail struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	ExpenseDate time.Time       `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount"`
}

// Sources groups the domain collaborators the resolver fetches from. Each is
// consumed read-only; a failed fetch never affects the ledger entry.
type Sources struct {
	ApInvoices interface {
		GetApInvoice(ctx context.Context, id uuid.UUID) (ApInvoiceDetail, error)
	}
	Billings interface {
		GetProjectBilling(ctx context.Context, id uuid.UUID) (BillingDetail, error)
	}
	LaborCosts interface {
		GetLaborCost(ctx context.Context, id uuid.UUID) (LaborCostDetail, error)
	}
	Expenses interface {
		GetProjectExpense(ctx context.Context, id uuid.UUID) (ExpenseDetail, error)
	}
}
