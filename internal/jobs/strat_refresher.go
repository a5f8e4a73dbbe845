package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DBExecutor is the minimal subset of pgxpool.Pool the jobs need.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventPublisher publishes canonical events for completed job runs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, sellerID, tradeID int64, payload any) error
}

// StratRefresher periodically refreshes the portfolio-wide stratification
// materialized view and emits an event when it lands.
type StratRefresher struct {
	logger   *zap.Logger
	db       DBExecutor
	events   EventPublisher
	interval time.Duration
	stopCh   chan struct{}
}

// NewStratRefresher constructs the nightly refresh job.
func NewStratRefresher(logger *zap.Logger, db DBExecutor, events EventPublisher, interval time.Duration) *StratRefresher {
	return &StratRefresher{
		logger:   logger,
		db:       db,
		events:   events,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the refresh loop (typically every 24 h).
func (r *StratRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("strat_refresher.started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("strat_refresher.stopped (manual stop)")
			return
		case <-ctx.Done():
			r.logger.Info("strat_refresher.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the refresher.
func (r *StratRefresher) Stop() {
	close(r.stopCh)
}

// runOnce executes one refresh cycle.
func (r *StratRefresher) runOnce(ctx context.Context) {
	start := time.Now()
	r.logger.Info("strat_refresher.running")

	_, err := r.db.Exec(ctx, `SELECT reporting.fn_refresh_strat_summary()`)
	if err != nil {
		r.logger.Error("strat_refresher.refresh_failed", zap.Error(err))
		metrics.IncError("strat_refresher", "refresh_failed")
		return
	}

	payload := map[string]any{
		"timestamp":   time.Now().UTC(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err := r.events.PublishEvent(ctx, model.EventStratRefreshed, 0, 0, payload); err != nil {
		r.logger.Warn("strat_refresher.publish_failed", zap.Error(err))
	}

	metrics.SetLastJob("strat_refresher", time.Now())
	r.logger.Info("strat_refresher.success", zap.Duration("duration", time.Since(start)))
}
