package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

func TestLiveUnconfiguredNeverConnects(t *testing.T) {
	live := NewLive(LiveConfig{})
	require.False(t, live.Configured())

	status, err := live.TestConnection(context.Background())
	require.NoError(t, err)
	require.False(t, status.Connected)
	require.Equal(t, ModeLive, status.Mode)
}

func TestLiveTestConnection(t *testing.T) {
	var gotAuth, gotCompany string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/company", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotCompany = r.Header.Get("X-Company")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"connected":     true,
			"company_label": "Girder Construction Co",
			"simulated":     false,
		})
	}))
	defer srv.Close()

	live := NewLive(LiveConfig{BaseURL: srv.URL, APIKey: "key-1", Company: "girder", Timeout: time.Second})
	status, err := live.TestConnection(context.Background())
	require.NoError(t, err)
	require.True(t, status.Connected)
	require.Equal(t, ModeLive, status.Mode)
	require.Equal(t, "Girder Construction Co", status.CompanyLabel)
	require.Equal(t, "Bearer key-1", gotAuth)
	require.Equal(t, "girder", gotCompany)
}

func TestLiveTestConnectionSimulatedFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"connected":     true,
			"company_label": "Anything At All",
			"simulated":     true,
		})
	}))
	defer srv.Close()

	live := NewLive(LiveConfig{BaseURL: srv.URL})
	status, err := live.TestConnection(context.Background())
	require.NoError(t, err)
	require.True(t, status.Connected)
	require.Equal(t, ModeSimulated, status.Mode)
}

func TestLivePushJournalEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/journal-entries", r.URL.Path)
		var req struct {
			PeriodID int64 `json:"period_id"`
			Entries  []struct {
				Number int64  `json:"number"`
				Date   string `json:"date"`
			} `json:"entries"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(3), req.PeriodID)
		require.Len(t, req.Entries, 1)
		require.Equal(t, "2026-03-10", req.Entries[0].Date)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"docs": []map[string]any{
				{"external_id": "ACCT-9001", "doc_number": "JE-1001", "kind": "journal_entry"},
			},
			"integration_settings": map[string]any{"company_label": "Girder Construction Co", "ap_as_invoices": true},
		})
	}))
	defer srv.Close()

	entry := ledger.JournalEntry{
		ID:     uuid.New(),
		Number: 1001,
		Date:   time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Lines: []ledger.JournalLineItem{
			{AccountID: 500, Debit: decimal.RequireFromString("100.00")},
		},
	}
	live := NewLive(LiveConfig{BaseURL: srv.URL})
	result, err := live.PushJournalEntries(context.Background(), 3, 7, []ledger.JournalEntry{entry})
	require.NoError(t, err)
	require.Len(t, result.Docs, 1)
	require.Equal(t, "ACCT-9001", result.Docs[0].ExternalID)
	require.True(t, result.Settings.APAsInvoices)
	require.Equal(t, []uuid.UUID{entry.ID}, result.EntryIDs)
}

func TestLivePushErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "document number already used", http.StatusConflict)
	}))
	defer srv.Close()

	live := NewLive(LiveConfig{BaseURL: srv.URL})
	_, err := live.PushInvoices(context.Background(), 3, 7, InvoiceAP, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 409")
}
