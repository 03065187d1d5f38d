package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExportRun replays an accounting export for a period without the
	// interactive wizard.
	TaskExportRun = "export:run"
	// TaskLedgerIntegrity scans persisted entries for balance drift.
	TaskLedgerIntegrity = "ledger:integrity"
)

// ExportRunPayload selects what a scheduled export run pushes.
type ExportRunPayload struct {
	PeriodID        int64   `json:"period_id"`
	ProjectIDs      []int64 `json:"project_ids,omitempty"`
	Journals        bool    `json:"journals"`
	APInvoices      bool    `json:"ap_invoices"`
	ProjectBillings bool    `json:"project_billings"`
}

// NewExportRunTask constructs an Asynq task for a scheduled export run.
func NewExportRunTask(payload ExportRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportRun, data), nil
}

// NewLedgerIntegrityTask constructs the nightly integrity-scan task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}
