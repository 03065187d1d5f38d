package adapter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

// Simulated is the offline adapter implementation. It fabricates external
// document numbers and never leaves the process.
type Simulated struct {
	counter atomic.Int64

	mu       sync.Mutex
	failFor  map[int64]error
	received []PushResult
}

// NewSimulated constructs the simulated backend.
func NewSimulated() *Simulated {
	return &Simulated{failFor: make(map[int64]error)}
}

// FailProject forces pushes for the given project to fail, for tests and
// dry-run rehearsals of partial failure handling.
func (s *Simulated) FailProject(projectID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[projectID] = err
}

// TestConnection always reports a connected simulated backend.
func (s *Simulated) TestConnection(ctx context.Context) (ConnectionStatus, error) {
	return ConnectionStatus{Connected: true, CompanyLabel: "Girder Simulation", Mode: ModeSimulated}, nil
}

func (s *Simulated) settings() IntegrationSettings {
	return IntegrationSettings{CompanyLabel: "Girder Simulation", APAsInvoices: true, ARAsInvoices: true}
}

func (s *Simulated) push(projectID int64, kind string, entries []ledger.JournalEntry) (PushResult, error) {
	s.mu.Lock()
	err := s.failFor[projectID]
	s.mu.Unlock()
	if err != nil {
		return PushResult{}, err
	}
	result := PushResult{Settings: s.settings(), EntryIDs: entryIDs(entries)}
	for _, entry := range entries {
		result.Docs = append(result.Docs, ExternalDoc{
			ExternalID:  fmt.Sprintf("SIM-%06d", s.counter.Add(1)),
			DocNumber:   fmt.Sprintf("JE-%d", entry.Number),
			Kind:        kind,
			Amount:      entry.TotalDebit(),
			Description: entry.Description,
		})
	}
	s.mu.Lock()
	s.received = append(s.received, result)
	s.mu.Unlock()
	return result, nil
}

// PushJournalEntries simulates a journal push.
func (s *Simulated) PushJournalEntries(ctx context.Context, periodID int64, projectID int64, entries []ledger.JournalEntry) (PushResult, error) {
	return s.push(projectID, "journal_entry", entries)
}

// PushInvoices simulates an invoice push.
func (s *Simulated) PushInvoices(ctx context.Context, periodID int64, projectID int64, kind InvoiceKind, entries []ledger.JournalEntry) (PushResult, error) {
	return s.push(projectID, "invoice_"+string(kind), entries)
}

// Received returns all pushes accepted so far, for assertions.
func (s *Simulated) Received() []PushResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PushResult, len(s.received))
	copy(out, s.received)
	return out
}
