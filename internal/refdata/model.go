package refdata

import "time"

// Project identifies a construction project that journal entries may post against.
type Project struct {
	ID        int64
	Number    string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PeriodStatus enumerates valid accounting period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period represents an accounting period window.
type Period struct {
	ID        int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the period range, inclusive.
func (p Period) Contains(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	return !day.Before(p.StartDate.Truncate(24*time.Hour)) && !day.After(p.EndDate.Truncate(24*time.Hour))
}

// Account is one chart-of-accounts entry.
type Account struct {
	ID        int64
	Number    string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
