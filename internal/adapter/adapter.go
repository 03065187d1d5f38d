// Package adapter abstracts the external accounting system used for export.
package adapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

// Mode identifies which backend the probe reached. An explicit flag, not a
// company-label substring convention.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

// InvoiceKind selects the receivable or payable side of an invoice push.
type InvoiceKind string

const (
	InvoiceAP InvoiceKind = "ap"
	InvoiceAR InvoiceKind = "ar"
)

// ConnectionStatus is the result of probing the external system.
type ConnectionStatus struct {
	Connected    bool
	CompanyLabel string
	Mode         Mode
}

// IntegrationSettings reports how the external system represents pushed data,
// e.g. whether AP/AR arrive as invoices or as raw journal entries.
type IntegrationSettings struct {
	CompanyLabel string `json:"company_label"`
	APAsInvoices bool   `json:"ap_as_invoices"`
	ARAsInvoices bool   `json:"ar_as_invoices"`
}

// ExternalDoc is the external system's representation of a pushed document.
type ExternalDoc struct {
	ExternalID  string          `json:"external_id"`
	DocNumber   string          `json:"doc_number"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// PushResult carries the created documents, the settings in effect, and the
// ledger entries the push covered (successful pushes lock exactly these).
type PushResult struct {
	Docs     []ExternalDoc
	Settings IntegrationSettings
	EntryIDs []uuid.UUID
}

// Adapter is the uniform push/test contract with a Live and a Simulated
// implementation. The orchestrator selects one per export run from the probe.
type Adapter interface {
	TestConnection(ctx context.Context) (ConnectionStatus, error)
	PushJournalEntries(ctx context.Context, periodID int64, projectID int64, entries []ledger.JournalEntry) (PushResult, error)
	PushInvoices(ctx context.Context, periodID int64, projectID int64, kind InvoiceKind, entries []ledger.JournalEntry) (PushResult, error)
}

func entryIDs(entries []ledger.JournalEntry) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
