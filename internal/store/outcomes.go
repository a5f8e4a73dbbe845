package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

func (s *HybridStore) ListOutcomes(ctx context.Context, hubID string) ([]model.Outcome, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, hub_id, path, status, opened_at, closed_at
		FROM serv.outcome
		WHERE hub_id = $1
		ORDER BY opened_at DESC;
	`, hubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []model.Outcome
	for rows.Next() {
		var o model.Outcome
		if err := rows.Scan(&o.ID, &o.HubID, &o.Path, &o.Status, &o.OpenedAt, &o.ClosedAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (s *HybridStore) GetOutcome(ctx context.Context, id int64) (*model.Outcome, error) {
	var o model.Outcome
	err := s.PG.QueryRow(ctx, `
		SELECT id, hub_id, path, status, opened_at, closed_at
		FROM serv.outcome WHERE id = $1;
	`, id).Scan(&o.ID, &o.HubID, &o.Path, &o.Status, &o.OpenedAt, &o.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("outcome %d: %w", id, err)
		}
		return nil, fmt.Errorf("GetOutcome scan failed: %w", err)
	}
	return &o, nil
}

// OpenOutcome switches the asset onto a new disposition path. In one
// transaction: the prior open outcome is abandoned and its incomplete tasks
// retired, then the new outcome and its template checklist are created.
func (s *HybridStore) OpenOutcome(ctx context.Context, hubID, path string) (*model.Outcome, error) {
	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("OpenOutcome begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	// Retire the prior open outcome and its open tasks.
	var priorID *int64
	err = tx.QueryRow(ctx, `
		UPDATE serv.outcome
		SET status = 'ABANDONED', closed_at = $2
		WHERE hub_id = $1 AND status = 'OPEN'
		RETURNING id;
	`, hubID, now).Scan(&priorID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("retire prior outcome failed: %w", err)
	}
	if priorID != nil {
		if _, err := tx.Exec(ctx, `
			DELETE FROM serv.outcome_task
			WHERE outcome_id = $1 AND completed_at IS NULL;
		`, *priorID); err != nil {
			return nil, fmt.Errorf("retire prior tasks failed: %w", err)
		}
	}

	o := model.Outcome{HubID: hubID, Path: path, Status: model.OutcomeStatusOpen, OpenedAt: now}
	err = tx.QueryRow(ctx, `
		INSERT INTO serv.outcome (hub_id, path, status, opened_at)
		VALUES ($1, $2, 'OPEN', $3)
		RETURNING id;
	`, hubID, path, now).Scan(&o.ID)
	if err != nil {
		return nil, fmt.Errorf("insert outcome failed: %w", err)
	}

	for i, tpl := range model.TaskTemplates[path] {
		due := now.AddDate(0, 0, tpl.DueDays)
		if _, err := tx.Exec(ctx, `
			INSERT INTO serv.outcome_task (outcome_id, name, sequence, due)
			VALUES ($1, $2, $3, $4);
		`, o.ID, tpl.Name, i+1, due); err != nil {
			return nil, fmt.Errorf("insert task failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("OpenOutcome commit failed: %w", err)
	}

	s.invalidateHubSilo(ctx, hubID)
	return &o, nil
}

func (s *HybridStore) UpdateOutcomeStatus(ctx context.Context, id int64, status string) (*model.Outcome, error) {
	var closedAt *time.Time
	if status != model.OutcomeStatusOpen {
		now := time.Now().UTC()
		closedAt = &now
	}

	var o model.Outcome
	err := s.PG.QueryRow(ctx, `
		UPDATE serv.outcome
		SET status = $2, closed_at = $3
		WHERE id = $1
		RETURNING id, hub_id, path, status, opened_at, closed_at;
	`, id, status, closedAt).Scan(&o.ID, &o.HubID, &o.Path, &o.Status, &o.OpenedAt, &o.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("outcome %d: %w", id, err)
		}
		return nil, fmt.Errorf("UpdateOutcomeStatus failed: %w", err)
	}

	s.invalidateHubSilo(ctx, o.HubID)
	return &o, nil
}

func (s *HybridStore) ListTasks(ctx context.Context, outcomeID int64) ([]model.OutcomeTask, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, outcome_id, name, sequence, due, completed_at, overdue
		FROM serv.outcome_task
		WHERE outcome_id = $1
		ORDER BY sequence;
	`, outcomeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.OutcomeTask
	for rows.Next() {
		var t model.OutcomeTask
		if err := rows.Scan(&t.ID, &t.OutcomeID, &t.Name, &t.Sequence, &t.Due, &t.CompletedAt, &t.Overdue); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetTaskCompleted completes a task (or reopens it when completed is nil).
// Completing always clears the overdue flag.
func (s *HybridStore) SetTaskCompleted(ctx context.Context, taskID int64, completed *time.Time) (*model.OutcomeTask, error) {
	var t model.OutcomeTask
	err := s.PG.QueryRow(ctx, `
		UPDATE serv.outcome_task
		SET completed_at = $2,
		    overdue = CASE WHEN $2::timestamptz IS NULL THEN overdue ELSE FALSE END
		WHERE id = $1
		RETURNING id, outcome_id, name, sequence, due, completed_at, overdue;
	`, taskID, completed).Scan(&t.ID, &t.OutcomeID, &t.Name, &t.Sequence, &t.Due, &t.CompletedAt, &t.Overdue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", taskID, err)
		}
		return nil, fmt.Errorf("SetTaskCompleted failed: %w", err)
	}
	return &t, nil
}
