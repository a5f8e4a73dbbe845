package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// Store is the persistence and caching contract for the whole service.
// Postgres is authoritative; Redis holds silo-scoped list/report caches and
// auth tokens. Every mutation in a (seller, trade) silo invalidates that
// silo's cached keys.
type Store interface {
	// Sellers / trades
	ListSellers(ctx context.Context) ([]model.Seller, error)
	GetSeller(ctx context.Context, id int64) (*model.Seller, error)
	CreateSeller(ctx context.Context, s *model.Seller) error
	ListTrades(ctx context.Context, sellerID int64) ([]model.Trade, error)
	GetTrade(ctx context.Context, id int64) (*model.Trade, error)
	CreateTrade(ctx context.Context, t *model.Trade) error
	UpdateTrade(ctx context.Context, id int64, patch TradePatch) (*model.Trade, error)
	GetTradeAssumptions(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error)
	PutTradeAssumptions(ctx context.Context, a *model.TradeAssumptions) error
	ListTradeDates(ctx context.Context, tradeID int64) ([]model.TradeDate, error)
	CreateTradeDate(ctx context.Context, d *model.TradeDate) error
	CompleteTradeDate(ctx context.Context, tradeID, dateID int64, completed *time.Time) (*model.TradeDate, error)
	DeleteTradeDate(ctx context.Context, tradeID, dateID int64) error

	// Assets
	ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error)
	GetAsset(ctx context.Context, hubID string) (*model.Asset, error)
	GetAssetByLoanNumber(ctx context.Context, loanNumber string) (*model.Asset, error)
	GetAssetDetail(ctx context.Context, hubID string) (*model.AssetDetail, error)
	UpdateAsset(ctx context.Context, hubID string, patch AssetPatch) (*model.Asset, error)

	// Valuations
	ListValuationsByHub(ctx context.Context, hubID string) ([]model.Valuation, error)
	ListValuationsBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.Valuation, error)
	CreateValuation(ctx context.Context, v *model.Valuation) error
	DeleteValuation(ctx context.Context, id int64) error
	LatestValuation(ctx context.Context, hubID string) (*model.Valuation, error)

	// Outcomes
	ListOutcomes(ctx context.Context, hubID string) ([]model.Outcome, error)
	GetOutcome(ctx context.Context, id int64) (*model.Outcome, error)
	OpenOutcome(ctx context.Context, hubID, path string) (*model.Outcome, error)
	UpdateOutcomeStatus(ctx context.Context, id int64, status string) (*model.Outcome, error)
	ListTasks(ctx context.Context, outcomeID int64) ([]model.OutcomeTask, error)
	SetTaskCompleted(ctx context.Context, taskID int64, completed *time.Time) (*model.OutcomeTask, error)

	// Ledger
	ListLedgerBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.LedgerEntry, error)
	ListLedgerByHub(ctx context.Context, hubID string) ([]model.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, id int64) (*model.LedgerEntry, error)
	PostLedgerEntry(ctx context.Context, e *model.LedgerEntry) error
	ReverseLedgerEntry(ctx context.Context, id int64, reason, postedBy string) (*model.LedgerEntry, error)

	// CRM directories
	ListBrokers(ctx context.Context) ([]model.Broker, error)
	CreateBroker(ctx context.Context, b *model.Broker) error
	UpdateBroker(ctx context.Context, b *model.Broker) error
	DeactivateBroker(ctx context.Context, id int64) error
	ListInvestors(ctx context.Context) ([]model.Investor, error)
	CreateInvestor(ctx context.Context, i *model.Investor) error
	UpdateInvestor(ctx context.Context, i *model.Investor) error
	DeactivateInvestor(ctx context.Context, id int64) error
	ListLegalContacts(ctx context.Context) ([]model.LegalContact, error)
	CreateLegalContact(ctx context.Context, l *model.LegalContact) error
	UpdateLegalContact(ctx context.Context, l *model.LegalContact) error
	DeactivateLegalContact(ctx context.Context, id int64) error
	ListTradingPartners(ctx context.Context) ([]model.TradingPartner, error)
	CreateTradingPartner(ctx context.Context, p *model.TradingPartner) error
	UpdateTradingPartner(ctx context.Context, p *model.TradingPartner) error
	DeactivateTradingPartner(ctx context.Context, id int64) error

	// Documents
	CreateDocument(ctx context.Context, d *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocumentsByHub(ctx context.Context, hubID string) ([]model.Document, error)
	ListDocumentsByTrade(ctx context.Context, tradeID int64) ([]model.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// Seller-tape imports
	CreateImportBatch(ctx context.Context, b *model.ImportBatch, rows []model.ImportRow) error
	GetImportBatch(ctx context.Context, id string) (*model.ImportBatch, error)
	ListImportRows(ctx context.Context, batchID string) ([]model.ImportRow, error)
	SetImportStatus(ctx context.Context, id, status string) error
	CommitImportBatch(ctx context.Context, batchID string, boarded []BoardedRow) error

	// Servicer feed
	RecordServicerEvent(ctx context.Context, hubID string, ev model.ServicerEvent) error

	// Auth
	GetUserAccount(ctx context.Context, username string) (*model.UserAccount, error)

	// Raw cache access (tokens, reports)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	DeleteKeys(ctx context.Context, keys ...string) error
	SetSiloJSON(ctx context.Context, sellerID, tradeID int64, key string, value any, ttl time.Duration) error
	InvalidateSilo(ctx context.Context, sellerID, tradeID int64) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// TradePatch carries the PATCH /trades/:id fields; nil means untouched.
type TradePatch struct {
	Status         *string
	BidDate        *time.Time
	SettlementDate *time.Time
}

// AssetPatch carries the PATCH /assets/:hubId fields; nil means untouched.
type AssetPatch struct {
	Status  *string
	FCStage *string
}

// BoardedRow pairs a clean import row with the asset it boards.
type BoardedRow struct {
	RowNum int
	Asset  model.Asset
}

type HybridStore struct {
	redis    *redis.Client
	PG       *pgxpool.Pool
	logger   *zap.Logger
	cacheTTL time.Duration
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, cacheTTL time.Duration, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger, cacheTTL: cacheTTL}, nil
}

// SiloKey builds the composite cache key for an entity list within a silo.
func SiloKey(entity string, sellerID, tradeID int64) string {
	return fmt.Sprintf("%s:%d:%d", entity, sellerID, tradeID)
}

func siloSetKey(sellerID, tradeID int64) string {
	return fmt.Sprintf("silokeys:%d:%d", sellerID, tradeID)
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) DeleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.redis.Del(ctx, keys...).Err()
}

// SetSiloJSON caches value under key and records key in the silo's key set so
// InvalidateSilo can DEL exact keys instead of scanning.
func (s *HybridStore) SetSiloJSON(ctx context.Context, sellerID, tradeID int64, key string, value any, ttl time.Duration) error {
	if err := s.SetJSON(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := s.redis.SAdd(ctx, siloSetKey(sellerID, tradeID), key).Err(); err != nil {
		s.logger.Warn("store.silo_key_track_failed",
			zap.String("key", key),
			zap.Error(err))
	}
	return nil
}

// InvalidateSilo drops every cached key recorded for the (seller, trade) silo.
func (s *HybridStore) InvalidateSilo(ctx context.Context, sellerID, tradeID int64) error {
	setKey := siloSetKey(sellerID, tradeID)
	keys, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("silo key set read failed: %w", err)
	}
	keys = append(keys, setKey)
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("silo invalidation failed: %w", err)
	}
	s.logger.Debug("store.silo_invalidated",
		zap.Int64("seller_id", sellerID),
		zap.Int64("trade_id", tradeID),
		zap.Int("keys", len(keys)-1))
	return nil
}

// cachedList reads a silo-scoped list through the cache. A cache unmarshal
// failure falls back to Postgres and overwrites the bad key.
func cachedList[T any](ctx context.Context, s *HybridStore, entity string, sellerID, tradeID int64, query func(context.Context) ([]T, error)) ([]T, error) {
	key := SiloKey(entity, sellerID, tradeID)
	var cached []T
	if err := s.GetJSON(ctx, key, &cached); err == nil {
		metrics.IncCacheAccess(entity, "hit")
		return cached, nil
	}
	metrics.IncCacheAccess(entity, "miss")

	rows, err := query(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.SetSiloJSON(ctx, sellerID, tradeID, key, rows, s.cacheTTL); err != nil {
		s.logger.Warn("store.cache_set_failed",
			zap.String("key", key),
			zap.Error(err))
	}
	return rows, nil
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
