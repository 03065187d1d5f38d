package trace

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSources reads source documents straight from their module tables. The
// resolver only previews them, so there is no write path here.
type PgSources struct {
	db *pgxpool.Pool
}

// NewPgSources constructs the postgres-backed source readers.
func NewPgSources(db *pgxpool.Pool) *PgSources {
	return &PgSources{db: db}
}

// Sources exposes the readers in the shape the resolver consumes.
func (p *PgSources) Sources() Sources {
	return Sources{ApInvoices: p, Billings: p, LaborCosts: p, Expenses: p}
}

func (p *PgSources) GetApInvoice(ctx context.Context, id uuid.UUID) (ApInvoiceDetail, error) {
	const query = `
		SELECT i.id, i.invoice_number, v.name, i.invoice_date, i.total, i.retainage
		FROM ap_invoices i
		JOIN vendors v ON v.id = i.vendor_id
		WHERE i.id = $1`
	var d ApInvoiceDetail
	err := p.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.InvoiceNumber, &d.VendorName, &d.InvoiceDate, &d.Total, &d.Retainage)
	return d, err
}

func (p *PgSources) GetProjectBilling(ctx context.Context, id uuid.UUID) (BillingDetail, error) {
	const query = `
		SELECT b.id, b.billing_number, c.name, b.billing_date, b.total, b.retainage
		FROM project_billings b
		JOIN customers c ON c.id = b.customer_id
		WHERE b.id = $1`
	var d BillingDetail
	err := p.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.BillingNumber, &d.CustomerName, &d.BillingDate, &d.Total, &d.Retainage)
	return d, err
}

func (p *PgSources) GetLaborCost(ctx context.Context, id uuid.UUID) (LaborCostDetail, error) {
	const query = `
		SELECT l.id, e.name, l.work_date, l.hours, l.amount
		FROM labor_costs l
		JOIN employees e ON e.id = l.employee_id
		WHERE l.id = $1`
	var d LaborCostDetail
	err := p.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.EmployeeName, &d.WorkDate, &d.Hours, &d.Amount)
	return d, err
}

func (p *PgSources) GetProjectExpense(ctx context.Context, id uuid.UUID) (ExpenseDetail, error) {
	const query = `
		SELECT id, description, expense_date, amount
		FROM project_expenses
		WHERE id = $1`
	var d ExpenseDetail
	err := p.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.Description, &d.ExpenseDate, &d.Amount)
	return d, err
}
