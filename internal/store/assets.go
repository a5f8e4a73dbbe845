package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

const assetColumns = `
	hub_id, seller_id, trade_id, loan_number, street, city, state, zip,
	property_type, lien_position, current_balance, total_debt, coupon_rate,
	next_due_date, fc_stage, status, boarded_at`

func scanAsset(row pgx.Row) (*model.Asset, error) {
	var a model.Asset
	err := row.Scan(&a.HubID, &a.SellerID, &a.TradeID, &a.LoanNumber,
		&a.Street, &a.City, &a.State, &a.Zip,
		&a.PropertyType, &a.LienPosition, &a.CurrentBalance, &a.TotalDebt,
		&a.CouponRate, &a.NextDueDate, &a.FCStage, &a.Status, &a.BoardedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssets returns the acquisition rows of a silo, read through the cache.
func (s *HybridStore) ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error) {
	return cachedList(ctx, s, "assets", sellerID, tradeID, func(ctx context.Context) ([]model.Asset, error) {
		rows, err := s.PG.Query(ctx, `
			SELECT `+assetColumns+`
			FROM acq.asset
			WHERE seller_id = $1 AND trade_id = $2
			ORDER BY loan_number;
		`, sellerID, tradeID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var assets []model.Asset
		for rows.Next() {
			a, err := scanAsset(rows)
			if err != nil {
				return nil, err
			}
			assets = append(assets, *a)
		}
		return assets, rows.Err()
	})
}

func (s *HybridStore) GetAsset(ctx context.Context, hubID string) (*model.Asset, error) {
	a, err := scanAsset(s.PG.QueryRow(ctx, `
		SELECT `+assetColumns+` FROM acq.asset WHERE hub_id = $1;
	`, hubID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", hubID, err)
		}
		return nil, fmt.Errorf("GetAsset scan failed: %w", err)
	}
	return a, nil
}

func (s *HybridStore) GetAssetByLoanNumber(ctx context.Context, loanNumber string) (*model.Asset, error) {
	a, err := scanAsset(s.PG.QueryRow(ctx, `
		SELECT `+assetColumns+` FROM acq.asset WHERE loan_number = $1;
	`, loanNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset loan %s: %w", loanNumber, err)
		}
		return nil, fmt.Errorf("GetAssetByLoanNumber scan failed: %w", err)
	}
	return a, nil
}

// GetAssetDetail joins the acquisition row with current servicing/AM state:
// the open outcome, the best valuation, open task count and ledger net.
func (s *HybridStore) GetAssetDetail(ctx context.Context, hubID string) (*model.AssetDetail, error) {
	asset, err := s.GetAsset(ctx, hubID)
	if err != nil {
		return nil, err
	}

	detail := &model.AssetDetail{Asset: *asset}

	outcomes, err := s.ListOutcomes(ctx, hubID)
	if err != nil {
		return nil, err
	}
	for i := range outcomes {
		if outcomes[i].Status == model.OutcomeStatusOpen {
			detail.ActiveOutcome = &outcomes[i]
			break
		}
	}

	if v, err := s.LatestValuation(ctx, hubID); err == nil {
		detail.LatestValuation = v
	}

	if detail.ActiveOutcome != nil {
		err = s.PG.QueryRow(ctx, `
			SELECT COUNT(*) FROM serv.outcome_task
			WHERE outcome_id = $1 AND completed_at IS NULL;
		`, detail.ActiveOutcome.ID).Scan(&detail.OpenTasks)
		if err != nil {
			return nil, fmt.Errorf("open task count failed: %w", err)
		}
	}

	err = s.PG.QueryRow(ctx, `
		SELECT COALESCE(SUM(debit - credit), 0) FROM gl.ledger_entry WHERE hub_id = $1;
	`, hubID).Scan(&detail.LedgerNet)
	if err != nil {
		return nil, fmt.Errorf("ledger net failed: %w", err)
	}

	return detail, nil
}

// UpdateAsset patches status and/or FC stage and invalidates the silo cache.
func (s *HybridStore) UpdateAsset(ctx context.Context, hubID string, patch AssetPatch) (*model.Asset, error) {
	a, err := scanAsset(s.PG.QueryRow(ctx, `
		UPDATE acq.asset SET
			status = COALESCE($2, status),
			fc_stage = COALESCE($3, fc_stage)
		WHERE hub_id = $1
		RETURNING `+assetColumns+`;
	`, hubID, patch.Status, patch.FCStage))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", hubID, err)
		}
		return nil, fmt.Errorf("UpdateAsset failed: %w", err)
	}

	if err := s.InvalidateSilo(ctx, a.SellerID, a.TradeID); err != nil {
		s.logger.Warn("store.asset_invalidate_failed", zap.Error(err))
	}
	return a, nil
}
