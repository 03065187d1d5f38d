package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/girder-erp/girder-erp/internal/ledger"
)

// NewLedgerIntegrityHandler scans for entries whose persisted line sums no
// longer balance. Drift means something wrote lines outside the service
// layer, so it is logged loudly rather than repaired.
func NewLedgerIntegrityHandler(logger *slog.Logger, repo ledger.Repository) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		entries, err := repo.ListUnbalanced(ctx, ledger.BalanceTolerance)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			logger.Info("ledger integrity scan clean")
			return nil
		}
		for _, e := range entries {
			logger.Error("unbalanced journal entry",
				slog.Int64("journal_number", e.Number),
				slog.String("entry_id", e.ID.String()),
				slog.String("debit", e.TotalDebit().StringFixed(2)),
				slog.String("credit", e.TotalCredit().StringFixed(2)))
		}
		return nil
	}
}
