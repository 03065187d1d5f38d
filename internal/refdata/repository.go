package refdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPeriodNotFound indicates the requested period does not exist.
var ErrPeriodNotFound = errors.New("refdata: period not found")

// Repository provides read-only access to master data maintained elsewhere.
type Repository interface {
	GetProjects(ctx context.Context) ([]Project, error)
	GetAccountingPeriods(ctx context.Context) ([]Period, error)
	GetChartOfAccounts(ctx context.Context) ([]Account, error)
	GetPeriod(ctx context.Context, id int64) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetProjects(ctx context.Context) ([]Project, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, name, active, created_at, updated_at FROM projects ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Number, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *repository) GetAccountingPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, start_date, end_date, status, created_at, updated_at FROM accounting_periods ORDER BY start_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) GetChartOfAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, name, active, created_at, updated_at FROM gl_accounts ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Number, &a.Name, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	var p Period
	err := r.db.QueryRow(ctx, `SELECT id, code, start_date, end_date, status, created_at, updated_at FROM accounting_periods WHERE id=$1`, id).
		Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}
