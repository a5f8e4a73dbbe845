package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

const valuationColumns = `
	id, hub_id, kind, value, as_is_value, arv_value, effective_date,
	source, ordered_by, pending, created_at`

func scanValuation(row pgx.Row) (*model.Valuation, error) {
	var v model.Valuation
	err := row.Scan(&v.ID, &v.HubID, &v.Kind, &v.Value, &v.AsIsValue, &v.ARVValue,
		&v.EffectiveDate, &v.Source, &v.OrderedBy, &v.Pending, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *HybridStore) ListValuationsByHub(ctx context.Context, hubID string) ([]model.Valuation, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT `+valuationColumns+`
		FROM serv.valuation
		WHERE hub_id = $1
		ORDER BY effective_date DESC, id DESC;
	`, hubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vals []model.Valuation
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, err
		}
		vals = append(vals, *v)
	}
	return vals, rows.Err()
}

func (s *HybridStore) ListValuationsBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.Valuation, error) {
	return cachedList(ctx, s, "valuations", sellerID, tradeID, func(ctx context.Context) ([]model.Valuation, error) {
		rows, err := s.PG.Query(ctx, `
			SELECT `+valuationColumns+`
			FROM serv.valuation v
			WHERE EXISTS (
				SELECT 1 FROM acq.asset a
				WHERE a.hub_id = v.hub_id AND a.seller_id = $1 AND a.trade_id = $2
			)
			ORDER BY effective_date DESC, id DESC;
		`, sellerID, tradeID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var vals []model.Valuation
		for rows.Next() {
			v, err := scanValuation(rows)
			if err != nil {
				return nil, err
			}
			vals = append(vals, *v)
		}
		return vals, rows.Err()
	})
}

func (s *HybridStore) CreateValuation(ctx context.Context, v *model.Valuation) error {
	err := s.PG.QueryRow(ctx, `
		INSERT INTO serv.valuation (
			hub_id, kind, value, as_is_value, arv_value, effective_date,
			source, ordered_by, pending, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at;
	`, v.HubID, v.Kind, v.Value, v.AsIsValue, v.ARVValue, v.EffectiveDate,
		v.Source, v.OrderedBy, v.Pending).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateValuation failed: %w", err)
	}
	s.invalidateHubSilo(ctx, v.HubID)
	return nil
}

func (s *HybridStore) DeleteValuation(ctx context.Context, id int64) error {
	var hubID string
	err := s.PG.QueryRow(ctx, `
		DELETE FROM serv.valuation WHERE id = $1 RETURNING hub_id;
	`, id).Scan(&hubID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("valuation %d: %w", id, err)
		}
		return fmt.Errorf("DeleteValuation failed: %w", err)
	}
	s.invalidateHubSilo(ctx, hubID)
	return nil
}

// LatestValuation returns the most recent non-pending valuation, preferring
// kinds in the fixed priority order BPO > appraisal > AVM > desktop.
func (s *HybridStore) LatestValuation(ctx context.Context, hubID string) (*model.Valuation, error) {
	v, err := scanValuation(s.PG.QueryRow(ctx, `
		SELECT `+valuationColumns+`
		FROM serv.valuation
		WHERE hub_id = $1 AND NOT pending
		ORDER BY
			CASE kind
				WHEN 'BPO' THEN 0
				WHEN 'APPRAISAL' THEN 1
				WHEN 'AVM' THEN 2
				ELSE 3
			END,
			effective_date DESC
		LIMIT 1;
	`, hubID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("valuation for %s: %w", hubID, err)
		}
		return nil, fmt.Errorf("LatestValuation scan failed: %w", err)
	}
	return v, nil
}

// invalidateHubSilo drops the silo cache owning hubID; best effort.
func (s *HybridStore) invalidateHubSilo(ctx context.Context, hubID string) {
	var sellerID, tradeID int64
	err := s.PG.QueryRow(ctx, `
		SELECT seller_id, trade_id FROM acq.asset WHERE hub_id = $1;
	`, hubID).Scan(&sellerID, &tradeID)
	if err != nil {
		return
	}
	_ = s.InvalidateSilo(ctx, sellerID, tradeID)
}
