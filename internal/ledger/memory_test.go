package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/girder-erp/girder-erp/internal/refdata"
)

// memoryRepo implements Repository and TxRepository over maps. The WithTx
// callback mutates the shared state directly; single-goroutine tests only.
type memoryRepo struct {
	entries    map[uuid.UUID]*JournalEntry
	references map[string]uuid.UUID
	nextNumber int64
	nextLineID int64
	now        time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries:    map[uuid.UUID]*JournalEntry{},
		references: map[string]uuid.UUID{},
		nextNumber: 1000,
		now:        time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func refKey(t ReferenceType, id uuid.UUID) string {
	return string(t) + "/" + id.String()
}

func (m *memoryRepo) GetEntry(_ context.Context, id uuid.UUID) (JournalEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return JournalEntry{}, ErrEntryNotFound
	}
	return cloneEntry(*e), nil
}

func (m *memoryRepo) ListEntries(_ context.Context, filter EntryFilter) ([]JournalEntry, error) {
	out := []JournalEntry{}
	for _, e := range m.entries {
		if filter.PeriodID != 0 && e.PeriodID != filter.PeriodID {
			continue
		}
		if filter.ProjectID != nil && (e.ProjectID == nil || *e.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.ReferenceType != "" && e.ReferenceType != filter.ReferenceType {
			continue
		}
		if filter.OnlyOpen && e.ExportedToAccounting {
			continue
		}
		out = append(out, cloneEntry(*e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memoryRepo) ListUnbalanced(_ context.Context, tolerance decimal.Decimal) ([]JournalEntry, error) {
	out := []JournalEntry{}
	for _, e := range m.entries {
		if e.TotalDebit().Sub(e.TotalCredit()).Abs().GreaterThan(tolerance) {
			out = append(out, cloneEntry(*e))
		}
	}
	return out, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) InsertEntry(_ context.Context, in CreateEntryInput) (JournalEntry, error) {
	if in.ReferenceType != "" {
		key := refKey(in.ReferenceType, in.ReferenceID)
		if _, exists := m.references[key]; exists {
			return JournalEntry{}, ErrSourceAlreadyLinked
		}
		m.references[key] = in.ReferenceID
	}
	m.nextNumber++
	entry := JournalEntry{
		ID:            uuid.New(),
		Number:        m.nextNumber,
		PeriodID:      in.PeriodID,
		ProjectID:     in.ProjectID,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedAt:     m.now,
		UpdatedAt:     m.now,
	}
	m.entries[entry.ID] = &entry
	return cloneEntry(entry), nil
}

func (m *memoryRepo) InsertLines(_ context.Context, entryID uuid.UUID, startNumber int, lines []LineInput) ([]JournalLineItem, error) {
	entry, ok := m.entries[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	out := make([]JournalLineItem, 0, len(lines))
	for i, in := range lines {
		m.nextLineID++
		item := JournalLineItem{
			ID:          m.nextLineID,
			EntryID:     entryID,
			LineNumber:  startNumber + i,
			AccountID:   in.AccountID,
			Description: in.Description,
			Debit:       in.Debit,
			Credit:      in.Credit,
		}
		entry.Lines = append(entry.Lines, item)
		out = append(out, item)
	}
	return out, nil
}

func (m *memoryRepo) GetEntryForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return m.GetEntry(ctx, id)
}

func (m *memoryRepo) GetLines(_ context.Context, entryID uuid.UUID) ([]JournalLineItem, error) {
	entry, ok := m.entries[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return append([]JournalLineItem{}, entry.Lines...), nil
}

func (m *memoryRepo) UpdateLine(_ context.Context, line JournalLineItem) error {
	entry, ok := m.entries[line.EntryID]
	if !ok {
		return ErrEntryNotFound
	}
	for i := range entry.Lines {
		if entry.Lines[i].ID == line.ID {
			entry.Lines[i] = line
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *memoryRepo) DeleteLine(_ context.Context, entryID uuid.UUID, lineID int64) error {
	entry, ok := m.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	for i := range entry.Lines {
		if entry.Lines[i].ID == lineID {
			entry.Lines = append(entry.Lines[:i], entry.Lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *memoryRepo) RenumberLines(_ context.Context, entryID uuid.UUID) error {
	entry, ok := m.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	for i := range entry.Lines {
		entry.Lines[i].LineNumber = i + 1
	}
	return nil
}

func (m *memoryRepo) UpdateHeader(_ context.Context, updated JournalEntry) error {
	entry, ok := m.entries[updated.ID]
	if !ok {
		return ErrEntryNotFound
	}
	entry.ProjectID = updated.ProjectID
	entry.Description = updated.Description
	entry.Date = updated.Date
	entry.UpdatedAt = m.now
	return nil
}

func (m *memoryRepo) DeleteEntry(_ context.Context, id uuid.UUID) error {
	entry, ok := m.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	if entry.ReferenceType != "" {
		delete(m.references, refKey(entry.ReferenceType, entry.ReferenceID))
	}
	delete(m.entries, id)
	return nil
}

func (m *memoryRepo) CountExportedInPeriod(_ context.Context, periodID int64) (int, error) {
	count := 0
	for _, e := range m.entries {
		if e.PeriodID == periodID && e.ExportedToAccounting {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) DeleteAllInPeriod(_ context.Context, periodID int64) (DeleteAllResult, error) {
	var result DeleteAllResult
	for id, e := range m.entries {
		if e.PeriodID != periodID {
			continue
		}
		result.DeletedEntries++
		result.DeletedLines += len(e.Lines)
		if e.ReferenceType != "" {
			delete(m.references, refKey(e.ReferenceType, e.ReferenceID))
		}
		delete(m.entries, id)
	}
	return result, nil
}

func (m *memoryRepo) MarkExported(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if e, ok := m.entries[id]; ok && !e.ExportedToAccounting {
			e.ExportedToAccounting = true
			e.UpdatedAt = m.now
		}
	}
	return nil
}

func cloneEntry(e JournalEntry) JournalEntry {
	e.Lines = append([]JournalLineItem{}, e.Lines...)
	return e
}

// stubRefData serves one open period and a fixed chart of accounts.
type stubRefData struct {
	period   refdata.Period
	accounts []refdata.Account
}

func newStubRefData() stubRefData {
	return stubRefData{
		period: refdata.Period{
			ID:        3,
			Code:      "2026-03",
			StartDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
			Status:    refdata.PeriodStatusOpen,
		},
		accounts: []refdata.Account{
			{ID: 120, Number: "1200", Name: "Accounts Receivable", Active: true},
			{ID: 200, Number: "2000", Name: "Accounts Payable", Active: true},
			{ID: 400, Number: "4000", Name: "Contract Revenue", Active: true},
			{ID: 500, Number: "5000", Name: "Job Cost", Active: true},
		},
	}
}

func (s stubRefData) GetPeriod(_ context.Context, id int64) (refdata.Period, error) {
	if id != s.period.ID {
		return refdata.Period{}, refdata.ErrPeriodNotFound
	}
	return s.period, nil
}

func (s stubRefData) GetChartOfAccounts(_ context.Context) ([]refdata.Account, error) {
	return s.accounts, nil
}
