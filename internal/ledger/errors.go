package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbalanced indicates debit and credit totals differ beyond tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrInvalidPeriod indicates a missing period or an entry date outside its range.
	ErrInvalidPeriod = errors.New("ledger: entry date outside accounting period")
	// ErrInvalidAccount indicates a line references an unknown GL account.
	ErrInvalidAccount = errors.New("ledger: unknown GL account")
	// ErrEntryLocked indicates an attempted mutation of an exported entry.
	ErrEntryLocked = errors.New("ledger: entry exported and locked")
	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrLineNotFound indicates a missing line item.
	ErrLineNotFound = errors.New("ledger: line item not found")
	// ErrPeriodHasExportedEntries blocks bulk deletion of a period.
	ErrPeriodHasExportedEntries = errors.New("ledger: period contains exported entries")
)

// ExportBlockedError reports how many exported entries blocked a period wipe.
type ExportBlockedError struct {
	PeriodID int64
	Blocking int
}

func (e *ExportBlockedError) Error() string {
	return fmt.Sprintf("ledger: period %d has %d exported entries", e.PeriodID, e.Blocking)
}

func (e *ExportBlockedError) Unwrap() error {
	return ErrPeriodHasExportedEntries
}

// ErrSourceAlreadyLinked indicates the source document already generated an
// entry; programmatic posting treats this as an idempotent no-op.
var ErrSourceAlreadyLinked = errors.New("ledger: source document already posted")
