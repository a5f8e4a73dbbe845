package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DataStore is the slice of the store the importer works through.
type DataStore interface {
	GetSeller(ctx context.Context, id int64) (*model.Seller, error)
	GetTrade(ctx context.Context, id int64) (*model.Trade, error)
	ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error)
	CreateImportBatch(ctx context.Context, b *model.ImportBatch, rows []model.ImportRow) error
	GetImportBatch(ctx context.Context, id string) (*model.ImportBatch, error)
	ListImportRows(ctx context.Context, batchID string) ([]model.ImportRow, error)
	SetImportStatus(ctx context.Context, id, status string) error
	CommitImportBatch(ctx context.Context, batchID string, boarded []store.BoardedRow) error
}

// JobQueue enqueues staged batches for async validation.
type JobQueue interface {
	PublishJob(ctx context.Context, job model.ImportJob) error
}

// EventPublisher publishes canonical import/asset events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, sellerID, tradeID int64, payload any) error
}

// Service runs the seller-tape import wizard backend: stage, validate,
// commit, abandon.
type Service struct {
	logger *zap.Logger
	store  DataStore
	queue  JobQueue
	events EventPublisher
}

func NewService(logger *zap.Logger, st DataStore, queue JobQueue, events EventPublisher) *Service {
	return &Service{logger: logger, store: st, queue: queue, events: events}
}

// Stage parses an uploaded tape, validates its rows, persists the batch
// (superseding any prior active batch for the silo), and enqueues the
// validation job.
func (s *Service) Stage(ctx context.Context, sellerID, tradeID int64, filename, createdBy string, tape io.Reader) (*model.ImportBatch, error) {
	if _, err := s.store.GetTrade(ctx, tradeID); err != nil {
		return nil, err
	}

	rows, errCount, err := parseTape(tape)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tape %s has no data rows", filename)
	}

	batch := &model.ImportBatch{
		ID:         uuid.NewString(),
		SellerID:   sellerID,
		TradeID:    tradeID,
		Filename:   filename,
		Status:     model.ImportStatusStaged,
		RowCount:   len(rows),
		ErrorCount: errCount,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}

	stored := make([]model.ImportRow, 0, len(rows))
	for i := range rows {
		raw, err := json.Marshal(rows[i].Raw)
		if err != nil {
			return nil, err
		}
		stored = append(stored, model.ImportRow{
			BatchID: batch.ID,
			RowNum:  rows[i].RowNum,
			Raw:     raw,
			Errors:  rows[i].Errors,
		})
	}

	if err := s.store.CreateImportBatch(ctx, batch, stored); err != nil {
		return nil, err
	}
	metrics.IncImportRows("staged", len(rows)-errCount)
	metrics.IncImportRows("error", errCount)

	if err := s.queue.PublishJob(ctx, model.ImportJob{
		BatchID:  batch.ID,
		SellerID: sellerID,
		TradeID:  tradeID,
	}); err != nil {
		s.logger.Error("importer.enqueue_failed",
			zap.String("batch_id", batch.ID),
			zap.Error(err))
		return nil, err
	}

	if err := s.events.PublishEvent(ctx, model.EventImportStaged, sellerID, tradeID, batch); err != nil {
		s.logger.Warn("importer.event_failed",
			zap.String("batch_id", batch.ID),
			zap.Error(err))
	}

	s.logger.Info("importer.batch_staged",
		zap.String("batch_id", batch.ID),
		zap.Int64("seller_id", sellerID),
		zap.Int64("trade_id", tradeID),
		zap.Int("rows", batch.RowCount),
		zap.Int("errors", batch.ErrorCount))
	return batch, nil
}

// parseTape reads the CSV, maps headers and validates every row. Returns the
// mapped rows and how many carry errors.
func parseTape(tape io.Reader) ([]TapeRow, int, error) {
	r := csv.NewReader(tape)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("tape header: %w", err)
	}
	fields := mapHeaders(headers)

	var rows []TapeRow
	seen := make(map[string]int)
	for rowNum := 1; ; rowNum++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("tape row %d: %w", rowNum, err)
		}
		row := mapRecord(rowNum, headers, fields, record)
		validateRow(&row, seen)
		rows = append(rows, row)
	}

	errCount := 0
	for i := range rows {
		if len(rows[i].Errors) > 0 {
			errCount++
		}
	}
	return rows, errCount, nil
}

// ValidateBatch is the consumer-side pass: re-check the staged rows and move
// the batch to validated or failed. A batch with only error rows fails.
func (s *Service) ValidateBatch(ctx context.Context, job model.ImportJob) error {
	batch, err := s.store.GetImportBatch(ctx, job.BatchID)
	if err != nil {
		return fmt.Errorf("batch %s: %w", job.BatchID, err)
	}
	if batch.Status != model.ImportStatusStaged {
		s.logger.Info("importer.validate_skipped",
			zap.String("batch_id", batch.ID),
			zap.String("status", batch.Status))
		return nil
	}

	rows, err := s.store.ListImportRows(ctx, batch.ID)
	if err != nil {
		return err
	}

	clean := 0
	for i := range rows {
		if len(rows[i].Errors) == 0 {
			clean++
		}
	}

	status := model.ImportStatusValidated
	if clean == 0 {
		status = model.ImportStatusFailed
	}
	if err := s.store.SetImportStatus(ctx, batch.ID, status); err != nil {
		return err
	}

	s.logger.Info("importer.batch_validated",
		zap.String("batch_id", batch.ID),
		zap.String("status", status),
		zap.Int("clean_rows", clean),
		zap.Int("total_rows", len(rows)))
	return nil
}

// Commit boards every clean row of a validated batch as a new asset. Error
// rows are skipped, not blocking.
func (s *Service) Commit(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	batch, err := s.store.GetImportBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != model.ImportStatusValidated {
		return nil, fmt.Errorf("batch %s is %s, not %s", batchID, batch.Status, model.ImportStatusValidated)
	}

	seller, err := s.store.GetSeller(ctx, batch.SellerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListImportRows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListAssets(ctx, batch.SellerID, batch.TradeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seq := len(existing)
	var boarded []store.BoardedRow
	for i := range rows {
		if len(rows[i].Errors) > 0 {
			continue
		}
		var raw map[string]string
		if err := json.Unmarshal(rows[i].Raw, &raw); err != nil {
			return nil, fmt.Errorf("batch %s row %d raw: %w", batchID, rows[i].RowNum, err)
		}
		tapeRow := rehydrate(rows[i].RowNum, raw)

		seq++
		hubID := fmt.Sprintf("%s-%d-%06d", seller.ShortCode, batch.TradeID, seq)
		boarded = append(boarded, store.BoardedRow{
			RowNum: rows[i].RowNum,
			Asset:  tapeRow.toAsset(hubID, batch.SellerID, batch.TradeID, now),
		})
	}

	if err := s.store.CommitImportBatch(ctx, batchID, boarded); err != nil {
		return nil, err
	}
	metrics.IncImportRows("boarded", len(boarded))

	if err := s.events.PublishEvent(ctx, model.EventImportCommitted, batch.SellerID, batch.TradeID, batch); err != nil {
		s.logger.Warn("importer.event_failed", zap.String("batch_id", batchID), zap.Error(err))
	}
	for i := range boarded {
		if err := s.events.PublishEvent(ctx, model.EventAssetBoarded, batch.SellerID, batch.TradeID, boarded[i].Asset); err != nil {
			s.logger.Warn("importer.event_failed",
				zap.String("hub_id", boarded[i].Asset.HubID),
				zap.Error(err))
		}
	}

	s.logger.Info("importer.batch_committed",
		zap.String("batch_id", batchID),
		zap.Int("boarded", len(boarded)),
		zap.Int("skipped", len(rows)-len(boarded)))
	return s.store.GetImportBatch(ctx, batchID)
}

// rehydrate rebuilds a TapeRow from the stored raw column map.
func rehydrate(rowNum int, raw map[string]string) TapeRow {
	headers := make([]string, 0, len(raw))
	record := make([]string, 0, len(raw))
	for h, v := range raw {
		headers = append(headers, h)
		record = append(record, v)
	}
	return mapRecord(rowNum, headers, mapHeaders(headers), record)
}

// Abandon expires a batch that has not been committed.
func (s *Service) Abandon(ctx context.Context, batchID string) error {
	batch, err := s.store.GetImportBatch(ctx, batchID)
	if err != nil {
		return err
	}
	switch batch.Status {
	case model.ImportStatusCommitted:
		return fmt.Errorf("batch %s already committed", batchID)
	case model.ImportStatusExpired:
		return nil
	}
	return s.store.SetImportStatus(ctx, batchID, model.ImportStatusExpired)
}
