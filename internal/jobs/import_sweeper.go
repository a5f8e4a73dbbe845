package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
)

const expireBatchesQuery = `
		UPDATE acq.import_batch
		SET status = 'EXPIRED'
		WHERE status IN ('STAGED', 'VALIDATED')
		  AND created_at < $1;
	`

const flagOverdueTasksQuery = `
		UPDATE serv.outcome_task t
		SET overdue = TRUE
		FROM serv.outcome o
		WHERE t.outcome_id = o.id
		  AND o.status = 'OPEN'
		  AND t.completed_at IS NULL
		  AND t.due < NOW()
		  AND NOT t.overdue;
	`

// ImportSweeper periodically expires stale staged import batches and flags
// overdue outcome tasks.
type ImportSweeper struct {
	db       DBExecutor
	logger   *zap.Logger
	interval time.Duration
	ttl      time.Duration
}

// NewImportSweeper creates the background sweep job. ttl is how long a
// staged or validated batch may sit uncommitted.
func NewImportSweeper(db DBExecutor, logger *zap.Logger, interval, ttl time.Duration) *ImportSweeper {
	return &ImportSweeper{
		db:       db,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
	}
}

// Start runs the sweep loop until context cancellation.
func (j *ImportSweeper) Start(ctx context.Context) {
	j.logger.Info("import_sweeper.start",
		zap.Duration("interval", j.interval),
		zap.Duration("ttl", j.ttl),
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.sweep(ctx); err != nil {
				j.logger.Warn("import_sweeper.sweep_failed", zap.Error(err))
				metrics.IncError("import_sweeper", "sweep_failed")
			}
		case <-ctx.Done():
			j.logger.Info("import_sweeper.stopped")
			return
		}
	}
}

func (j *ImportSweeper) sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.ttl)

	tag, err := j.db.Exec(ctx, expireBatchesQuery, cutoff)
	if err != nil {
		return err
	}
	expired := tag.RowsAffected()

	tag, err = j.db.Exec(ctx, flagOverdueTasksQuery)
	if err != nil {
		return err
	}
	flagged := tag.RowsAffected()

	metrics.SetLastJob("import_sweeper", time.Now())
	j.logger.Info("import_sweeper.sweep_complete",
		zap.Int64("expired_batches", expired),
		zap.Int64("overdue_tasks_flagged", flagged),
	)
	return nil
}
