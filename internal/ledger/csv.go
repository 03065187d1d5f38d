package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/girder-erp/girder-erp/internal/refdata"
)

// CSVMode selects the serialization shape.
type CSVMode string

const (
	CSVSummary  CSVMode = "summary"
	CSVDetailed CSVMode = "detailed"
)

var summaryHeader = []string{
	"Journal Number", "Entry Date", "Description", "Project Number", "Project Name",
	"Reference Type", "Total Debit", "Total Credit", "Line Count",
}

var detailedHeader = []string{
	"Journal Number", "Entry Date", "Description", "Project Number", "Project Name",
	"Reference Type", "Line Number", "Account Number", "Account Name",
	"Line Description", "Debit Amount", "Credit Amount",
}

// CSVExporter serializes a filtered entry set. Project and account names come
// from a reference-data snapshot so rows are deterministic for a given input.
type CSVExporter struct {
	snapshot *refdata.Snapshot
}

// NewCSVExporter constructs an exporter over the given snapshot.
func NewCSVExporter(snapshot *refdata.Snapshot) *CSVExporter {
	return &CSVExporter{snapshot: snapshot}
}

// Export renders the entries in the requested mode.
func (x *CSVExporter) Export(entries []JournalEntry, mode CSVMode) ([]byte, error) {
	switch mode {
	case CSVSummary:
		return x.summary(entries)
	case CSVDetailed:
		return x.detailed(entries)
	default:
		return nil, fmt.Errorf("ledger: unknown csv mode %q", mode)
	}
}

func (x *CSVExporter) summary(entries []JournalEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(summaryHeader); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		number, name := x.projectLabels(entry.ProjectID)
		row := []string{
			strconv.FormatInt(entry.Number, 10),
			entry.Date.Format("2006-01-02"),
			entry.Description,
			number,
			name,
			entry.ReferenceType.Label(),
			entry.TotalDebit().StringFixed(2),
			entry.TotalCredit().StringFixed(2),
			strconv.Itoa(len(entry.Lines)),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (x *CSVExporter) detailed(entries []JournalEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(detailedHeader); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		number, name := x.projectLabels(entry.ProjectID)
		prefix := []string{
			strconv.FormatInt(entry.Number, 10),
			entry.Date.Format("2006-01-02"),
			entry.Description,
			number,
			name,
			entry.ReferenceType.Label(),
		}
		if len(entry.Lines) == 0 {
			// Entries without lines still emit one row with blank line fields.
			row := append(append([]string{}, prefix...), "", "", "", "", "", "")
			if err := w.Write(row); err != nil {
				return nil, err
			}
			continue
		}
		for _, line := range entry.Lines {
			acctNumber, acctName := x.accountLabels(line.AccountID)
			row := append(append([]string{}, prefix...),
				strconv.Itoa(line.LineNumber),
				acctNumber,
				acctName,
				line.Description,
				line.Debit.StringFixed(2),
				line.Credit.StringFixed(2),
			)
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (x *CSVExporter) projectLabels(projectID *int64) (string, string) {
	if projectID == nil || x.snapshot == nil {
		return "", ""
	}
	project, ok := x.snapshot.Projects[*projectID]
	if !ok {
		return strconv.FormatInt(*projectID, 10), ""
	}
	return project.Number, project.Name
}

func (x *CSVExporter) accountLabels(accountID int64) (string, string) {
	if x.snapshot == nil {
		return strconv.FormatInt(accountID, 10), ""
	}
	account, ok := x.snapshot.Accounts[accountID]
	if !ok {
		return strconv.FormatInt(accountID, 10), ""
	}
	return account.Number, account.Name
}
