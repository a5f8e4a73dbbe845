package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

const ledgerColumns = `
	id, hub_id, trade_id, account, sub_account, debit, credit, memo,
	effective_date, posted_at, posted_by, reversal_of, reversal_reason`

func scanLedgerEntry(row pgx.Row) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(&e.ID, &e.HubID, &e.TradeID, &e.Account, &e.SubAccount,
		&e.Debit, &e.Credit, &e.Memo, &e.EffectiveDate, &e.PostedAt,
		&e.PostedBy, &e.ReversalOf, &e.ReversalReason)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *HybridStore) ListLedgerBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.LedgerEntry, error) {
	return cachedList(ctx, s, "ledger", sellerID, tradeID, func(ctx context.Context) ([]model.LedgerEntry, error) {
		rows, err := s.PG.Query(ctx, `
			SELECT `+ledgerColumns+`
			FROM gl.ledger_entry
			WHERE trade_id = $2
			  AND EXISTS (SELECT 1 FROM acq.trade t WHERE t.id = $2 AND t.seller_id = $1)
			ORDER BY effective_date DESC, id DESC;
		`, sellerID, tradeID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var entries []model.LedgerEntry
		for rows.Next() {
			e, err := scanLedgerEntry(rows)
			if err != nil {
				return nil, err
			}
			entries = append(entries, *e)
		}
		return entries, rows.Err()
	})
}

func (s *HybridStore) ListLedgerByHub(ctx context.Context, hubID string) ([]model.LedgerEntry, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM gl.ledger_entry
		WHERE hub_id = $1
		ORDER BY effective_date DESC, id DESC;
	`, hubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *HybridStore) GetLedgerEntry(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	e, err := scanLedgerEntry(s.PG.QueryRow(ctx, `
		SELECT `+ledgerColumns+` FROM gl.ledger_entry WHERE id = $1;
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ledger entry %d: %w", id, err)
		}
		return nil, fmt.Errorf("GetLedgerEntry scan failed: %w", err)
	}
	return e, nil
}

// PostLedgerEntry appends an immutable GL row.
func (s *HybridStore) PostLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	e.PostedAt = time.Now().UTC()
	err := s.PG.QueryRow(ctx, `
		INSERT INTO gl.ledger_entry (
			hub_id, trade_id, account, sub_account, debit, credit, memo,
			effective_date, posted_at, posted_by, reversal_of, reversal_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id;
	`, e.HubID, e.TradeID, e.Account, e.SubAccount, e.Debit, e.Credit, e.Memo,
		e.EffectiveDate, e.PostedAt, e.PostedBy, e.ReversalOf, e.ReversalReason).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("PostLedgerEntry failed: %w", err)
	}
	s.invalidateHubSilo(ctx, e.HubID)
	return nil
}

// ReverseLedgerEntry posts a compensating entry with debit and credit
// swapped. The original row is never updated in place; a second reversal of
// the same entry is rejected.
func (s *HybridStore) ReverseLedgerEntry(ctx context.Context, id int64, reason, postedBy string) (*model.LedgerEntry, error) {
	orig, err := s.GetLedgerEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.PG.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM gl.ledger_entry WHERE reversal_of = $1);
	`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("reversal check failed: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("ledger entry %d already reversed", id)
	}

	rev := &model.LedgerEntry{
		HubID:          orig.HubID,
		TradeID:        orig.TradeID,
		Account:        orig.Account,
		SubAccount:     orig.SubAccount,
		Debit:          orig.Credit,
		Credit:         orig.Debit,
		Memo:           "Reversal of entry " + fmt.Sprint(id) + ": " + reason,
		EffectiveDate:  orig.EffectiveDate,
		PostedBy:       postedBy,
		ReversalOf:     &orig.ID,
		ReversalReason: reason,
	}
	if err := s.PostLedgerEntry(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}
