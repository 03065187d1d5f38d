package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/girder-erp/girder-erp/internal/export"
)

// NewExportRunHandler processes TaskExportRun tasks. A run already in
// progress for the period is left alone; asynq retries it later.
func NewExportRunHandler(logger *slog.Logger, svc *export.Service, projects func(ctx context.Context) ([]int64, error)) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExportRunPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		ids := payload.ProjectIDs
		if len(ids) == 0 {
			all, err := projects(ctx)
			if err != nil {
				return err
			}
			ids = all
		}
		sel := export.Selection{
			PeriodID:   payload.PeriodID,
			ProjectIDs: ids,
			DataTypes: map[export.DataType]bool{
				export.DataJournals:        payload.Journals,
				export.DataAPInvoices:      payload.APInvoices,
				export.DataProjectBillings: payload.ProjectBillings,
			},
		}
		result, err := svc.Execute(ctx, sel)
		if err != nil {
			if errors.Is(err, export.ErrRunInProgress) {
				logger.Warn("export run already in progress", slog.Int64("period_id", payload.PeriodID))
			}
			return err
		}
		logger.Info("scheduled export run finished",
			slog.Int64("period_id", payload.PeriodID),
			slog.Int("exported", result.ExportedCount),
			slog.Int("failures", len(result.Failures)))
		return nil
	}
}
