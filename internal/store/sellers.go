package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

func (s *HybridStore) ListSellers(ctx context.Context) ([]model.Seller, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, name, short_code, active, created_at
		FROM acq.seller
		ORDER BY name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sellers []model.Seller
	for rows.Next() {
		var sl model.Seller
		if err := rows.Scan(&sl.ID, &sl.Name, &sl.ShortCode, &sl.Active, &sl.CreatedAt); err != nil {
			return nil, err
		}
		sellers = append(sellers, sl)
	}
	return sellers, rows.Err()
}

func (s *HybridStore) GetSeller(ctx context.Context, id int64) (*model.Seller, error) {
	var sl model.Seller
	err := s.PG.QueryRow(ctx, `
		SELECT id, name, short_code, active, created_at
		FROM acq.seller
		WHERE id = $1;
	`, id).Scan(&sl.ID, &sl.Name, &sl.ShortCode, &sl.Active, &sl.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("seller %d: %w", id, err)
		}
		return nil, fmt.Errorf("GetSeller scan failed: %w", err)
	}
	return &sl, nil
}

func (s *HybridStore) CreateSeller(ctx context.Context, sl *model.Seller) error {
	return s.PG.QueryRow(ctx, `
		INSERT INTO acq.seller (name, short_code, active, created_at)
		VALUES ($1, $2, TRUE, NOW())
		RETURNING id, active, created_at;
	`, sl.Name, sl.ShortCode).Scan(&sl.ID, &sl.Active, &sl.CreatedAt)
}

func (s *HybridStore) ListTrades(ctx context.Context, sellerID int64) ([]model.Trade, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, seller_id, name, status, bid_date, settlement_date, created_at
		FROM acq.trade
		WHERE ($1 = 0 OR seller_id = $1)
		ORDER BY created_at DESC;
	`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.SellerID, &t.Name, &t.Status,
			&t.BidDate, &t.SettlementDate, &t.CreatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *HybridStore) GetTrade(ctx context.Context, id int64) (*model.Trade, error) {
	var t model.Trade
	err := s.PG.QueryRow(ctx, `
		SELECT id, seller_id, name, status, bid_date, settlement_date, created_at
		FROM acq.trade
		WHERE id = $1;
	`, id).Scan(&t.ID, &t.SellerID, &t.Name, &t.Status, &t.BidDate, &t.SettlementDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trade %d: %w", id, err)
		}
		return nil, fmt.Errorf("GetTrade scan failed: %w", err)
	}
	return &t, nil
}

func (s *HybridStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	if t.Status == "" {
		t.Status = model.TradeStatusPipeline
	}
	return s.PG.QueryRow(ctx, `
		INSERT INTO acq.trade (seller_id, name, status, bid_date, settlement_date, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at;
	`, t.SellerID, t.Name, t.Status, t.BidDate, t.SettlementDate).Scan(&t.ID, &t.CreatedAt)
}

func (s *HybridStore) UpdateTrade(ctx context.Context, id int64, patch TradePatch) (*model.Trade, error) {
	var t model.Trade
	err := s.PG.QueryRow(ctx, `
		UPDATE acq.trade SET
			status = COALESCE($2, status),
			bid_date = COALESCE($3, bid_date),
			settlement_date = COALESCE($4, settlement_date)
		WHERE id = $1
		RETURNING id, seller_id, name, status, bid_date, settlement_date, created_at;
	`, id, patch.Status, patch.BidDate, patch.SettlementDate).
		Scan(&t.ID, &t.SellerID, &t.Name, &t.Status, &t.BidDate, &t.SettlementDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trade %d: %w", id, err)
		}
		return nil, fmt.Errorf("UpdateTrade failed: %w", err)
	}
	return &t, nil
}

func (s *HybridStore) GetTradeAssumptions(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error) {
	var a model.TradeAssumptions
	err := s.PG.QueryRow(ctx, `
		SELECT trade_id, discount_rate, servicing_fee_monthly, legal_fee_budget,
		       trashout_cost, renovation_budget, marketing_cost, sale_cost_pct, updated_at
		FROM acq.trade_assumptions
		WHERE trade_id = $1;
	`, tradeID).Scan(&a.TradeID, &a.DiscountRate, &a.ServicingFeeMonthly, &a.LegalFeeBudget,
		&a.TrashoutCost, &a.RenovationBudget, &a.MarketingCost, &a.SaleCostPct, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trade assumptions %d: %w", tradeID, err)
		}
		return nil, fmt.Errorf("GetTradeAssumptions scan failed: %w", err)
	}
	return &a, nil
}

// PutTradeAssumptions upserts the single assumptions row per trade.
func (s *HybridStore) PutTradeAssumptions(ctx context.Context, a *model.TradeAssumptions) error {
	a.UpdatedAt = time.Now().UTC()
	_, err := s.PG.Exec(ctx, `
		INSERT INTO acq.trade_assumptions (
			trade_id, discount_rate, servicing_fee_monthly, legal_fee_budget,
			trashout_cost, renovation_budget, marketing_cost, sale_cost_pct, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (trade_id)
		DO UPDATE SET
			discount_rate = EXCLUDED.discount_rate,
			servicing_fee_monthly = EXCLUDED.servicing_fee_monthly,
			legal_fee_budget = EXCLUDED.legal_fee_budget,
			trashout_cost = EXCLUDED.trashout_cost,
			renovation_budget = EXCLUDED.renovation_budget,
			marketing_cost = EXCLUDED.marketing_cost,
			sale_cost_pct = EXCLUDED.sale_cost_pct,
			updated_at = EXCLUDED.updated_at;
	`, a.TradeID, a.DiscountRate, a.ServicingFeeMonthly, a.LegalFeeBudget,
		a.TrashoutCost, a.RenovationBudget, a.MarketingCost, a.SaleCostPct, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("PutTradeAssumptions failed: %w", err)
	}
	return nil
}

func (s *HybridStore) ListTradeDates(ctx context.Context, tradeID int64) ([]model.TradeDate, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, trade_id, label, due, completed
		FROM acq.trade_date
		WHERE trade_id = $1
		ORDER BY due, id;
	`, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []model.TradeDate
	for rows.Next() {
		var d model.TradeDate
		if err := rows.Scan(&d.ID, &d.TradeID, &d.Label, &d.Due, &d.Completed); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *HybridStore) CreateTradeDate(ctx context.Context, d *model.TradeDate) error {
	return s.PG.QueryRow(ctx, `
		INSERT INTO acq.trade_date (trade_id, label, due)
		VALUES ($1, $2, $3)
		RETURNING id;
	`, d.TradeID, d.Label, d.Due).Scan(&d.ID)
}

// CompleteTradeDate marks (or clears) the completion timestamp of a milestone.
func (s *HybridStore) CompleteTradeDate(ctx context.Context, tradeID, dateID int64, completed *time.Time) (*model.TradeDate, error) {
	var d model.TradeDate
	err := s.PG.QueryRow(ctx, `
		UPDATE acq.trade_date
		SET completed = $3
		WHERE id = $2 AND trade_id = $1
		RETURNING id, trade_id, label, due, completed;
	`, tradeID, dateID, completed).Scan(&d.ID, &d.TradeID, &d.Label, &d.Due, &d.Completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trade date %d: %w", dateID, err)
		}
		return nil, fmt.Errorf("CompleteTradeDate failed: %w", err)
	}
	return &d, nil
}

func (s *HybridStore) DeleteTradeDate(ctx context.Context, tradeID, dateID int64) error {
	tag, err := s.PG.Exec(ctx, `
		DELETE FROM acq.trade_date WHERE id = $2 AND trade_id = $1;
	`, tradeID, dateID)
	if err != nil {
		return fmt.Errorf("DeleteTradeDate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade date %d: %w", dateID, pgx.ErrNoRows)
	}
	return nil
}
