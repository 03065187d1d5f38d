package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

// LiveConfig holds connection settings for the external accounting API.
type LiveConfig struct {
	BaseURL string
	APIKey  string
	Company string
	Timeout time.Duration
}

// Live talks to the real external accounting system over HTTP.
type Live struct {
	cfg    LiveConfig
	client *http.Client
}

// NewLive constructs the live adapter.
func NewLive(cfg LiveConfig) *Live {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Live{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

// Configured reports whether a base URL is present. An unconfigured live
// adapter can never win the probe.
func (l *Live) Configured() bool {
	return l != nil && l.cfg.BaseURL != ""
}

func (l *Live) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("adapter: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, l.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("adapter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	if l.cfg.Company != "" {
		req.Header.Set("X-Company", l.cfg.Company)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("adapter: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("adapter: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("adapter: decode response: %w", err)
	}
	return nil
}

type companyResponse struct {
	Connected    bool   `json:"connected"`
	CompanyLabel string `json:"company_label"`
	Simulated    bool   `json:"simulated"`
}

// TestConnection probes the external system. The backend reports its own mode
// explicitly rather than encoding it in the company label.
func (l *Live) TestConnection(ctx context.Context) (ConnectionStatus, error) {
	if !l.Configured() {
		return ConnectionStatus{Connected: false, Mode: ModeLive}, nil
	}
	var resp companyResponse
	if err := l.do(ctx, http.MethodGet, "/v1/company", nil, &resp); err != nil {
		return ConnectionStatus{Connected: false, Mode: ModeLive}, err
	}
	mode := ModeLive
	if resp.Simulated {
		mode = ModeSimulated
	}
	return ConnectionStatus{Connected: resp.Connected, CompanyLabel: resp.CompanyLabel, Mode: mode}, nil
}

type pushEntryPayload struct {
	Number      int64             `json:"number"`
	Date        string            `json:"date"`
	Description string            `json:"description"`
	Lines       []pushLinePayload `json:"lines"`
}

type pushLinePayload struct {
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type pushRequest struct {
	PeriodID  int64              `json:"period_id"`
	ProjectID int64              `json:"project_id"`
	Kind      string             `json:"kind,omitempty"`
	Entries   []pushEntryPayload `json:"entries"`
}

type pushResponse struct {
	Docs     []ExternalDoc       `json:"docs"`
	Settings IntegrationSettings `json:"integration_settings"`
}

func toPayload(entries []ledger.JournalEntry) []pushEntryPayload {
	out := make([]pushEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload := pushEntryPayload{
			Number:      entry.Number,
			Date:        entry.Date.Format("2006-01-02"),
			Description: entry.Description,
		}
		for _, line := range entry.Lines {
			payload.Lines = append(payload.Lines, pushLinePayload{
				AccountID:   line.AccountID,
				Description: line.Description,
				Debit:       line.Debit,
				Credit:      line.Credit,
			})
		}
		out = append(out, payload)
	}
	return out
}

// PushJournalEntries transmits journal entries for one period and project.
func (l *Live) PushJournalEntries(ctx context.Context, periodID int64, projectID int64, entries []ledger.JournalEntry) (PushResult, error) {
	req := pushRequest{PeriodID: periodID, ProjectID: projectID, Entries: toPayload(entries)}
	var resp pushResponse
	if err := l.do(ctx, http.MethodPost, "/v1/journal-entries", req, &resp); err != nil {
		return PushResult{}, err
	}
	return PushResult{Docs: resp.Docs, Settings: resp.Settings, EntryIDs: entryIDs(entries)}, nil
}

// PushInvoices transmits AP or AR invoices for one period and project.
func (l *Live) PushInvoices(ctx context.Context, periodID int64, projectID int64, kind InvoiceKind, entries []ledger.JournalEntry) (PushResult, error) {
	req := pushRequest{PeriodID: periodID, ProjectID: projectID, Kind: string(kind), Entries: toPayload(entries)}
	var resp pushResponse
	if err := l.do(ctx, http.MethodPost, "/v1/invoices", req, &resp); err != nil {
		return PushResult{}, err
	}
	return PushResult{Docs: resp.Docs, Settings: resp.Settings, EntryIDs: entryIDs(entries)}, nil
}
