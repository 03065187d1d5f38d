package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput describes a single line for entry creation.
type LineInput struct {
	AccountID   int64
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateEntryInput groups fields required to create a journal entry.
type CreateEntryInput struct {
	PeriodID      int64
	ProjectID     *int64
	Date          time.Time
	Description   string
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	Lines         []LineInput
}

// Validate ensures the input meets the balance invariant before it is ever
// handed to the store. Foreign-key checks happen against reference data in
// the service.
func (in CreateEntryInput) Validate() error {
	if in.PeriodID == 0 {
		return errors.New("ledger: period required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if in.ReferenceType != "" && !in.ReferenceType.Valid() {
		return fmt.Errorf("ledger: unknown reference type %q", in.ReferenceType)
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx+1)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx+1)
		}
		if !line.Debit.IsPositive() && !line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d must carry a debit or a credit amount", idx+1)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if debit.Sub(credit).Abs().GreaterThan(BalanceTolerance) {
		return ErrUnbalanced
	}
	return nil
}

// LinePatch carries optional line mutations. Nil fields are left untouched.
// Setting Debit zeroes the credit side and vice versa; supplying both is
// rejected.
type LinePatch struct {
	AccountID   *int64
	Description *string
	Debit       *decimal.Decimal
	Credit      *decimal.Decimal
}

// Validate rejects contradictory or negative amounts.
func (p LinePatch) Validate() error {
	if p.Debit != nil && p.Credit != nil && p.Debit.IsPositive() && p.Credit.IsPositive() {
		return errors.New("ledger: line cannot be both debit and credit")
	}
	if p.Debit != nil && p.Debit.IsNegative() {
		return errors.New("ledger: negative debit amount")
	}
	if p.Credit != nil && p.Credit.IsNegative() {
		return errors.New("ledger: negative credit amount")
	}
	if p.AccountID != nil && *p.AccountID == 0 {
		return errors.New("ledger: account required")
	}
	return nil
}

// HeaderPatch carries optional header mutations. Period and exported state are
// not patchable; the export flag moves false to true only via MarkExported.
type HeaderPatch struct {
	ProjectID   *int64
	Date        *time.Time
	Description *string
}

// EntryFilter narrows entry listings for the CSV exporter and read endpoints.
type EntryFilter struct {
	PeriodID      int64
	ProjectID     *int64
	ReferenceType ReferenceType
	OnlyOpen      bool
}

// DeleteAllResult reports the rows removed by a period wipe.
type DeleteAllResult struct {
	DeletedEntries int
	DeletedLines   int
}
