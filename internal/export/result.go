package export

import (
	"sync"

	"github.com/google/uuid"

	"github.com/girder-erp/girder-erp/internal/adapter"
)

// Failure records one rejected (project, data-type) push. Failures are
// isolated; the rest of the run continues.
type Failure struct {
	ProjectID int64    `json:"project_id"`
	DataType  DataType `json:"data_type"`
	Reason    string   `json:"reason"`
}

// Result aggregates one export run for a single accounting period.
type Result struct {
	PeriodID      int64                        `json:"period_id"`
	CompanyLabel  string                       `json:"company_label"`
	Mode          adapter.Mode                 `json:"mode"`
	Settings      *adapter.IntegrationSettings `json:"integration_settings,omitempty"`
	Journals      []adapter.ExternalDoc        `json:"journals"`
	Invoices      []adapter.ExternalDoc        `json:"invoices"`
	Failures      []Failure                    `json:"failures"`
	ExportedCount int                          `json:"exported_count"`
	exportedIDs   []uuid.UUID
	mu            sync.Mutex
}

func newResult(periodID int64, status adapter.ConnectionStatus) *Result {
	return &Result{PeriodID: periodID, CompanyLabel: status.CompanyLabel, Mode: status.Mode}
}

// record folds one successful push into the aggregate. The first non-nil
// integration settings observed win and are shared across the run.
func (r *Result) record(dt DataType, push adapter.PushResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Settings == nil {
		settings := push.Settings
		r.Settings = &settings
	}
	if dt == DataJournals {
		r.Journals = append(r.Journals, push.Docs...)
	} else {
		r.Invoices = append(r.Invoices, push.Docs...)
	}
	r.exportedIDs = append(r.exportedIDs, push.EntryIDs...)
}

func (r *Result) fail(projectID int64, dt DataType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, Failure{ProjectID: projectID, DataType: dt, Reason: err.Error()})
}

// ExportedIDs returns the entries covered by successful pushes.
func (r *Result) ExportedIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, len(r.exportedIDs))
	copy(out, r.exportedIDs)
	return out
}
