package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// CreateImportBatch stages a tape upload. In one transaction any prior
// STAGED/VALIDATED batch for the silo is expired (a newer upload supersedes),
// then the batch header and its rows are inserted.
func (s *HybridStore) CreateImportBatch(ctx context.Context, b *model.ImportBatch, rows []model.ImportRow) error {
	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return fmt.Errorf("CreateImportBatch begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE acq.import_batch
		SET status = 'EXPIRED'
		WHERE seller_id = $1 AND trade_id = $2 AND status IN ('STAGED', 'VALIDATED');
	`, b.SellerID, b.TradeID); err != nil {
		return fmt.Errorf("supersede prior batch failed: %w", err)
	}

	b.Status = model.ImportStatusStaged
	b.CreatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO acq.import_batch (
			id, seller_id, trade_id, filename, status, row_count, error_count,
			created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`, b.ID, b.SellerID, b.TradeID, b.Filename, b.Status, b.RowCount, b.ErrorCount,
		b.CreatedBy, b.CreatedAt); err != nil {
		return fmt.Errorf("insert batch failed: %w", err)
	}

	for _, r := range rows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO acq.import_row (batch_id, row_num, raw, errors)
			VALUES ($1, $2, $3, $4);
		`, b.ID, r.RowNum, r.Raw, r.Errors); err != nil {
			return fmt.Errorf("insert row %d failed: %w", r.RowNum, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("CreateImportBatch commit failed: %w", err)
	}

	if err := s.InvalidateSilo(ctx, b.SellerID, b.TradeID); err != nil {
		s.logger.Warn("store.import_invalidate_failed")
	}
	return nil
}

func (s *HybridStore) GetImportBatch(ctx context.Context, id string) (*model.ImportBatch, error) {
	var b model.ImportBatch
	err := s.PG.QueryRow(ctx, `
		SELECT id, seller_id, trade_id, filename, status, row_count,
		       error_count, created_by, created_at, committed_at
		FROM acq.import_batch
		WHERE id = $1;
	`, id).Scan(&b.ID, &b.SellerID, &b.TradeID, &b.Filename, &b.Status,
		&b.RowCount, &b.ErrorCount, &b.CreatedBy, &b.CreatedAt, &b.CommittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("import batch %s: %w", id, err)
		}
		return nil, fmt.Errorf("GetImportBatch scan failed: %w", err)
	}
	return &b, nil
}

func (s *HybridStore) ListImportRows(ctx context.Context, batchID string) ([]model.ImportRow, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT batch_id, row_num, raw, COALESCE(hub_id, ''), errors
		FROM acq.import_row
		WHERE batch_id = $1
		ORDER BY row_num;
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ImportRow
	for rows.Next() {
		var r model.ImportRow
		if err := rows.Scan(&r.BatchID, &r.RowNum, &r.Raw, &r.HubID, &r.Errors); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *HybridStore) SetImportStatus(ctx context.Context, id, status string) error {
	tag, err := s.PG.Exec(ctx, `
		UPDATE acq.import_batch SET status = $2 WHERE id = $1;
	`, id, status)
	if err != nil {
		return fmt.Errorf("SetImportStatus failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import batch %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// CommitImportBatch boards every clean row as an asset in one transaction:
// inserts the acquisition rows, stamps hub IDs back on the import rows, and
// marks the batch COMMITTED. Error rows stay behind unboarded.
func (s *HybridStore) CommitImportBatch(ctx context.Context, batchID string, boarded []BoardedRow) error {
	b, err := s.GetImportBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if b.Status != model.ImportStatusValidated {
		return fmt.Errorf("import batch %s is %s, not VALIDATED", batchID, b.Status)
	}

	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return fmt.Errorf("CommitImportBatch begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, row := range boarded {
		a := row.Asset
		if _, err := tx.Exec(ctx, `
			INSERT INTO acq.asset (
				hub_id, seller_id, trade_id, loan_number, street, city, state, zip,
				property_type, lien_position, current_balance, total_debt,
				coupon_rate, next_due_date, fc_stage, status, boarded_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW());
		`, a.HubID, a.SellerID, a.TradeID, a.LoanNumber, a.Street, a.City, a.State, a.Zip,
			a.PropertyType, a.LienPosition, a.CurrentBalance, a.TotalDebt,
			a.CouponRate, a.NextDueDate, a.FCStage, a.Status); err != nil {
			return fmt.Errorf("board row %d failed: %w", row.RowNum, err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE acq.import_row SET hub_id = $3
			WHERE batch_id = $1 AND row_num = $2;
		`, batchID, row.RowNum, a.HubID); err != nil {
			return fmt.Errorf("stamp row %d failed: %w", row.RowNum, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE acq.import_batch
		SET status = 'COMMITTED', committed_at = NOW()
		WHERE id = $1;
	`, batchID); err != nil {
		return fmt.Errorf("mark committed failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("CommitImportBatch commit failed: %w", err)
	}

	if err := s.InvalidateSilo(ctx, b.SellerID, b.TradeID); err != nil {
		s.logger.Warn("store.commit_invalidate_failed")
	}
	return nil
}

// RecordServicerEvent stores one feed frame against the asset's servicing
// history.
func (s *HybridStore) RecordServicerEvent(ctx context.Context, hubID string, ev model.ServicerEvent) error {
	_, err := s.PG.Exec(ctx, `
		INSERT INTO serv.servicer_event (hub_id, loan_number, event_type, payload, occurred_at, received_at)
		VALUES ($1, $2, $3, $4, $5, NOW());
	`, hubID, ev.LoanNumber, ev.Type, ev.Payload, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("RecordServicerEvent failed: %w", err)
	}
	return nil
}

// GetUserAccount fetches a back-office user row for token auth.
func (s *HybridStore) GetUserAccount(ctx context.Context, username string) (*model.UserAccount, error) {
	var u model.UserAccount
	err := s.PG.QueryRow(ctx, `
		SELECT id, username, password_hash, active, created_at
		FROM auth.user_account
		WHERE username = $1;
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, err)
		}
		return nil, fmt.Errorf("GetUserAccount scan failed: %w", err)
	}
	return &u, nil
}
