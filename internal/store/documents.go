package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

const documentColumns = `
	id, hub_id, trade_id, name, content_type, size_bytes, storage_path,
	uploaded_by, uploaded_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var hubID *string
	err := row.Scan(&d.ID, &hubID, &d.TradeID, &d.Name, &d.ContentType,
		&d.SizeBytes, &d.StoragePath, &d.UploadedBy, &d.UploadedAt)
	if err != nil {
		return nil, err
	}
	if hubID != nil {
		d.HubID = *hubID
	}
	return &d, nil
}

func (s *HybridStore) CreateDocument(ctx context.Context, d *model.Document) error {
	var hubID *string
	if d.HubID != "" {
		hubID = &d.HubID
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO docs.document (
			id, hub_id, trade_id, name, content_type, size_bytes,
			storage_path, uploaded_by, uploaded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`, d.ID, hubID, d.TradeID, d.Name, d.ContentType, d.SizeBytes,
		d.StoragePath, d.UploadedBy, d.UploadedAt)
	if err != nil {
		return fmt.Errorf("CreateDocument failed: %w", err)
	}
	return nil
}

func (s *HybridStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	d, err := scanDocument(s.PG.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM docs.document WHERE id = $1;
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		return nil, fmt.Errorf("GetDocument scan failed: %w", err)
	}
	return d, nil
}

func (s *HybridStore) ListDocumentsByHub(ctx context.Context, hubID string) ([]model.Document, error) {
	return s.listDocuments(ctx, `
		SELECT `+documentColumns+` FROM docs.document
		WHERE hub_id = $1 ORDER BY uploaded_at DESC;
	`, hubID)
}

func (s *HybridStore) ListDocumentsByTrade(ctx context.Context, tradeID int64) ([]model.Document, error) {
	return s.listDocuments(ctx, `
		SELECT `+documentColumns+` FROM docs.document
		WHERE trade_id = $1 ORDER BY uploaded_at DESC;
	`, tradeID)
}

func (s *HybridStore) listDocuments(ctx context.Context, query string, arg any) ([]model.Document, error) {
	rows, err := s.PG.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *HybridStore) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.PG.Exec(ctx, `DELETE FROM docs.document WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("DeleteDocument failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}
