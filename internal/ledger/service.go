package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/girder-erp/girder-erp/internal/refdata"
)

// ReferenceData is the subset of master-data reads the store validates against.
type ReferenceData interface {
	GetPeriod(ctx context.Context, id int64) (refdata.Period, error)
	GetChartOfAccounts(ctx context.Context) ([]refdata.Account, error)
}

// Service is the ledger store. Every mutation runs inside a transaction that
// first takes the entry row lock, so the exported check and the mutation are
// atomic per entry.
type Service struct {
	repo    Repository
	refdata ReferenceData
	now     func() time.Time
}

// NewService constructs the ledger store service.
func NewService(repo Repository, ref ReferenceData) *Service {
	return &Service{repo: repo, refdata: ref, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetEntry fetches one entry with its lines.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, id)
}

// ListEntries returns entries matching the filter, lines included.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// CreateEntry validates and persists header plus lines as a single unit. On
// success the entry carries the next sequential journal number.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	period, err := s.refdata.GetPeriod(ctx, in.PeriodID)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("%w: period %d", ErrInvalidPeriod, in.PeriodID)
	}
	if !period.Contains(in.Date) {
		return JournalEntry{}, fmt.Errorf("%w: %s not in %s", ErrInvalidPeriod, in.Date.Format("2006-01-02"), period.Code)
	}
	accounts, err := s.refdata.GetChartOfAccounts(ctx)
	if err != nil {
		return JournalEntry{}, err
	}
	known := make(map[int64]struct{}, len(accounts))
	for _, a := range accounts {
		known[a.ID] = struct{}{}
	}
	for idx, line := range in.Lines {
		if _, ok := known[line.AccountID]; !ok {
			return JournalEntry{}, fmt.Errorf("%w: line %d account %d", ErrInvalidAccount, idx+1, line.AccountID)
		}
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, in)
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, 1, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// AddLineItem appends one line to an open entry.
func (s *Service) AddLineItem(ctx context.Context, entryID uuid.UUID, line LineInput) (JournalLineItem, error) {
	if line.AccountID == 0 {
		return JournalLineItem{}, fmt.Errorf("%w: account required", ErrInvalidAccount)
	}
	if line.Debit.IsNegative() || line.Credit.IsNegative() {
		return JournalLineItem{}, fmt.Errorf("ledger: negative amount")
	}
	if line.Debit.IsPositive() && line.Credit.IsPositive() {
		return JournalLineItem{}, fmt.Errorf("ledger: line cannot be both debit and credit")
	}
	if !line.Debit.IsPositive() && !line.Credit.IsPositive() {
		return JournalLineItem{}, fmt.Errorf("ledger: line must carry a debit or a credit amount")
	}
	var item JournalLineItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ExportedToAccounting {
			return ErrEntryLocked
		}
		existing, err := tx.GetLines(ctx, entryID)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertLines(ctx, entryID, len(existing)+1, []LineInput{line})
		if err != nil {
			return err
		}
		item = inserted[0]
		return nil
	})
	if err != nil {
		return JournalLineItem{}, err
	}
	return item, nil
}

// UpdateLineItem applies a patch to one line of an open entry. Setting one
// side of the amount zeroes the other.
func (s *Service) UpdateLineItem(ctx context.Context, entryID uuid.UUID, lineID int64, patch LinePatch) (JournalLineItem, error) {
	if err := patch.Validate(); err != nil {
		return JournalLineItem{}, err
	}
	var updated JournalLineItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ExportedToAccounting {
			return ErrEntryLocked
		}
		lines, err := tx.GetLines(ctx, entryID)
		if err != nil {
			return err
		}
		var line *JournalLineItem
		for i := range lines {
			if lines[i].ID == lineID {
				line = &lines[i]
				break
			}
		}
		if line == nil {
			return ErrLineNotFound
		}
		applyLinePatch(line, patch)
		if err := tx.UpdateLine(ctx, *line); err != nil {
			return err
		}
		updated = *line
		return nil
	})
	if err != nil {
		return JournalLineItem{}, err
	}
	return updated, nil
}

func applyLinePatch(line *JournalLineItem, patch LinePatch) {
	if patch.AccountID != nil {
		line.AccountID = *patch.AccountID
	}
	if patch.Description != nil {
		line.Description = *patch.Description
	}
	if patch.Debit != nil && patch.Debit.IsPositive() {
		line.SetDebit(*patch.Debit)
	}
	if patch.Credit != nil && patch.Credit.IsPositive() {
		line.SetCredit(*patch.Credit)
	}
}

// RemoveLineItem deletes one line and renumbers the remainder.
func (s *Service) RemoveLineItem(ctx context.Context, entryID uuid.UUID, lineID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ExportedToAccounting {
			return ErrEntryLocked
		}
		if err := tx.DeleteLine(ctx, entryID, lineID); err != nil {
			return err
		}
		return tx.RenumberLines(ctx, entryID)
	})
}

// UpdateHeader applies a patch to an open entry's header fields. A patched
// date must still fall within the entry's period.
func (s *Service) UpdateHeader(ctx context.Context, entryID uuid.UUID, patch HeaderPatch) (JournalEntry, error) {
	var updated JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ExportedToAccounting {
			return ErrEntryLocked
		}
		if patch.ProjectID != nil {
			entry.ProjectID = patch.ProjectID
		}
		if patch.Description != nil {
			entry.Description = *patch.Description
		}
		if patch.Date != nil {
			period, err := s.refdata.GetPeriod(ctx, entry.PeriodID)
			if err != nil {
				return fmt.Errorf("%w: period %d", ErrInvalidPeriod, entry.PeriodID)
			}
			if !period.Contains(*patch.Date) {
				return fmt.Errorf("%w: %s not in %s", ErrInvalidPeriod, patch.Date.Format("2006-01-02"), period.Code)
			}
			entry.Date = *patch.Date
		}
		if err := tx.UpdateHeader(ctx, entry); err != nil {
			return err
		}
		lines, err := tx.GetLines(ctx, entryID)
		if err != nil {
			return err
		}
		entry.Lines = lines
		updated = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return updated, nil
}

// DeleteEntry removes an open entry and its lines.
func (s *Service) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ExportedToAccounting {
			return ErrEntryLocked
		}
		return tx.DeleteEntry(ctx, entryID)
	})
}

// DeleteAllInPeriod wipes every entry in a period, or nothing at all. The
// exported scan and the deletion happen in one transaction with the entry
// rows locked, so a concurrent export cannot lock an entry mid-wipe.
func (s *Service) DeleteAllInPeriod(ctx context.Context, periodID int64) (DeleteAllResult, error) {
	var result DeleteAllResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		blocking, err := tx.CountExportedInPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if blocking > 0 {
			return &ExportBlockedError{PeriodID: periodID, Blocking: blocking}
		}
		result, err = tx.DeleteAllInPeriod(ctx, periodID)
		return err
	})
	if err != nil {
		return DeleteAllResult{}, err
	}
	return result, nil
}

// MarkExported transitions the given entries to the locked state. Idempotent;
// entries already locked are left untouched and the flag never moves back.
func (s *Service) MarkExported(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.MarkExported(ctx, ids)
	})
}

// PeriodDeletionBlocked reports whether any entry in the period is locked.
func (s *Service) PeriodDeletionBlocked(ctx context.Context, periodID int64) (bool, int, error) {
	entries, err := s.repo.ListEntries(ctx, EntryFilter{PeriodID: periodID})
	if err != nil {
		return false, 0, err
	}
	locked := 0
	for _, e := range entries {
		if e.ExportedToAccounting {
			locked++
		}
	}
	return locked > 0, locked, nil
}

// ReverseEntry creates a new entry mirroring the original with debits and
// credits swapped. The original is never touched, so even a locked entry may
// be reversed.
func (s *Service) ReverseEntry(ctx context.Context, entryID uuid.UUID, date time.Time, memo string) (JournalEntry, error) {
	original, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	lines := make([]LineInput, 0, len(original.Lines))
	for _, line := range original.Lines {
		lines = append(lines, LineInput{
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
		})
	}
	if memo == "" {
		memo = fmt.Sprintf("Reversal of JE %d", original.Number)
	}
	if date.IsZero() {
		date = original.Date
	}
	return s.CreateEntry(ctx, CreateEntryInput{
		PeriodID:      original.PeriodID,
		ProjectID:     original.ProjectID,
		Date:          date,
		Description:   memo,
		ReferenceType: RefReversal,
		ReferenceID:   uuid.New(),
		Lines:         lines,
	})
}

// Balanced reports whether the entry's persisted lines are within tolerance.
func Balanced(entry JournalEntry) bool {
	diff := entry.TotalDebit().Sub(entry.TotalCredit()).Abs()
	return !diff.GreaterThan(BalanceTolerance)
}
