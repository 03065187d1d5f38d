package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/girder-erp/girder-erp/internal/platform/db"
)

// Repository encapsulates DB operations for the ledger store.
type Repository interface {
	GetEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, error)
	ListUnbalanced(ctx context.Context, tolerance decimal.Decimal) ([]JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Row locks taken
// here are what make the lock check and the mutation atomic per entry.
type TxRepository interface {
	InsertEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID uuid.UUID, startNumber int, lines []LineInput) ([]JournalLineItem, error)
	GetEntryForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	GetLines(ctx context.Context, entryID uuid.UUID) ([]JournalLineItem, error)
	UpdateLine(ctx context.Context, line JournalLineItem) error
	DeleteLine(ctx context.Context, entryID uuid.UUID, lineID int64) error
	RenumberLines(ctx context.Context, entryID uuid.UUID) error
	UpdateHeader(ctx context.Context, entry JournalEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	CountExportedInPeriod(ctx context.Context, periodID int64) (int, error)
	DeleteAllInPeriod(ctx context.Context, periodID int64) (DeleteAllResult, error)
	MarkExported(ctx context.Context, ids []uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed ledger repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, number, period_id, project_id, date, description, reference_type, reference_id, exported_to_accounting, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var ref *string
	err := row.Scan(&e.ID, &e.Number, &e.PeriodID, &e.ProjectID, &e.Date, &e.Description, &ref, &e.ReferenceID, &e.ExportedToAccounting, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	if ref != nil {
		e.ReferenceType = ReferenceType(*ref)
	}
	return e, nil
}

func (r *repository) GetEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.db, id)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.PeriodID != 0 {
		query += fmt.Sprintf(` AND period_id=$%d`, idx)
		args = append(args, filter.PeriodID)
		idx++
	}
	if filter.ProjectID != nil {
		query += fmt.Sprintf(` AND project_id=$%d`, idx)
		args = append(args, *filter.ProjectID)
		idx++
	}
	if filter.ReferenceType != "" {
		query += fmt.Sprintf(` AND reference_type=$%d`, idx)
		args = append(args, string(filter.ReferenceType))
		idx++
	}
	if filter.OnlyOpen {
		query += ` AND exported_to_accounting=false`
	}
	query += ` ORDER BY number ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		ids := make([]uuid.UUID, len(entries))
		for i := range entries {
			ids[i] = entries[i].ID
		}
		byEntry, err := queryLinesForEntries(ctx, r.db, ids)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			entries[i].Lines = byEntry[entries[i].ID]
		}
	}
	return entries, nil
}

// ListUnbalanced surfaces entries whose persisted line sums drifted past the
// tolerance. Should never return rows unless the DB was edited out of band.
func (r *repository) ListUnbalanced(ctx context.Context, tolerance decimal.Decimal) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id FROM journal_entries e
JOIN journal_line_items l ON l.entry_id = e.id
GROUP BY e.id HAVING ABS(SUM(l.debit_amount) - SUM(l.credit_amount)) > $1`, tolerance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var entries []JournalEntry
	for _, id := range ids {
		entry, err := r.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, entryID uuid.UUID) ([]JournalLineItem, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_number, account_id, description, debit_amount, credit_amount, created_at, updated_at
FROM journal_line_items WHERE entry_id=$1 ORDER BY line_number ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLineItem
	for rows.Next() {
		var line JournalLineItem
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountID, &line.Description, &line.Debit, &line.Credit, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func queryLinesForEntries(ctx context.Context, q querier, entryIDs []uuid.UUID) (map[uuid.UUID][]JournalLineItem, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_number, account_id, description, debit_amount, credit_amount, created_at, updated_at
FROM journal_line_items WHERE entry_id = ANY($1) ORDER BY entry_id, line_number ASC`, entryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byEntry := make(map[uuid.UUID][]JournalLineItem, len(entryIDs))
	for rows.Next() {
		var line JournalLineItem
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountID, &line.Description, &line.Debit, &line.Credit, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		byEntry[line.EntryID] = append(byEntry[line.EntryID], line)
	}
	return byEntry, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	entry := JournalEntry{
		ID:            uuid.New(),
		PeriodID:      in.PeriodID,
		ProjectID:     in.ProjectID,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
	}
	var ref any
	if in.ReferenceType != "" {
		ref = string(in.ReferenceType)
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (id, number, period_id, project_id, date, description, reference_type, reference_id, exported_to_accounting)
VALUES ($1, nextval('journal_number_seq'), $2, $3, $4, $5, $6, $7, false)
RETURNING number, created_at, updated_at`,
		entry.ID, in.PeriodID, in.ProjectID, in.Date, in.Description, ref, in.ReferenceID)
	if err := row.Scan(&entry.Number, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_reference" {
			return JournalEntry{}, ErrSourceAlreadyLinked
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID uuid.UUID, startNumber int, lines []LineInput) ([]JournalLineItem, error) {
	out := make([]JournalLineItem, 0, len(lines))
	for i, line := range lines {
		item := JournalLineItem{
			EntryID:     entryID,
			LineNumber:  startNumber + i,
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		}
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_line_items (entry_id, line_number, account_id, description, debit_amount, credit_amount)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
			entryID, item.LineNumber, line.AccountID, line.Description, line.Debit, line.Credit)
		if err := row.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) GetLines(ctx context.Context, entryID uuid.UUID) ([]JournalLineItem, error) {
	return queryLines(ctx, r.tx, entryID)
}

func (r *txRepository) UpdateLine(ctx context.Context, line JournalLineItem) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_line_items SET account_id=$3, description=$4, debit_amount=$5, credit_amount=$6, updated_at=NOW()
WHERE entry_id=$1 AND id=$2`, line.EntryID, line.ID, line.AccountID, line.Description, line.Debit, line.Credit)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *txRepository) DeleteLine(ctx context.Context, entryID uuid.UUID, lineID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_line_items WHERE entry_id=$1 AND id=$2`, entryID, lineID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// RenumberLines closes the gap left by a removed line.
func (r *txRepository) RenumberLines(ctx context.Context, entryID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_line_items l SET line_number = ranked.rn, updated_at=NOW()
FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY line_number ASC) AS rn FROM journal_line_items WHERE entry_id=$1) ranked
WHERE l.id = ranked.id AND l.line_number <> ranked.rn`, entryID)
	return err
}

func (r *txRepository) UpdateHeader(ctx context.Context, entry JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET project_id=$2, date=$3, description=$4, updated_at=NOW() WHERE id=$1`,
		entry.ID, entry.ProjectID, entry.Date, entry.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_line_items WHERE entry_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// CountExportedInPeriod locks every entry row in the period so a concurrent
// export cannot flip the flag between this check and a following wipe.
func (r *txRepository) CountExportedInPeriod(ctx context.Context, periodID int64) (int, error) {
	rows, err := r.tx.Query(ctx, `SELECT exported_to_accounting FROM journal_entries WHERE period_id=$1 FOR UPDATE`, periodID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var exported bool
		if err := rows.Scan(&exported); err != nil {
			return 0, err
		}
		if exported {
			count++
		}
	}
	return count, rows.Err()
}

func (r *txRepository) DeleteAllInPeriod(ctx context.Context, periodID int64) (DeleteAllResult, error) {
	lineCmd, err := r.tx.Exec(ctx, `DELETE FROM journal_line_items WHERE entry_id IN (SELECT id FROM journal_entries WHERE period_id=$1)`, periodID)
	if err != nil {
		return DeleteAllResult{}, err
	}
	entryCmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE period_id=$1`, periodID)
	if err != nil {
		return DeleteAllResult{}, err
	}
	return DeleteAllResult{
		DeletedEntries: int(entryCmd.RowsAffected()),
		DeletedLines:   int(lineCmd.RowsAffected()),
	}, nil
}

// MarkExported is idempotent and only ever moves the flag false to true.
func (r *txRepository) MarkExported(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET exported_to_accounting=true, updated_at=NOW()
WHERE id = ANY($1) AND exported_to_accounting=false`, ids)
	return err
}
