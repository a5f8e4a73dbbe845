package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/api"
	"github.com/Ridgeline-Capital/assethub/internal/auth"
	"github.com/Ridgeline-Capital/assethub/internal/cashflow"
	"github.com/Ridgeline-Capital/assethub/internal/httpclient"
	"github.com/Ridgeline-Capital/assethub/internal/importer"
	"github.com/Ridgeline-Capital/assethub/internal/jobs"
	"github.com/Ridgeline-Capital/assethub/internal/publisher"
	"github.com/Ridgeline-Capital/assethub/internal/rate"
	internalsecrets "github.com/Ridgeline-Capital/assethub/internal/secrets"
	"github.com/Ridgeline-Capital/assethub/internal/servicerfeed"
	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/internal/strat"
	"github.com/Ridgeline-Capital/assethub/internal/vendor"
	"github.com/Ridgeline-Capital/assethub/pkg/config"
	"github.com/Ridgeline-Capital/assethub/pkg/logger"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
	"github.com/Ridgeline-Capital/assethub/pkg/secrets"
	"github.com/Ridgeline-Capital/assethub/pkg/utils"
)

const valuationVendor = "clearval"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [assethub]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- AWS Secrets Manager provider ---
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
	}

	// --- Password pepper ---
	pepper := ""
	if pepperMap, err := awsProvider.GetSecret(ctx, cfg.PepperSecretName); err == nil {
		pepper = pepperMap["pepper"]
	} else if cfg.Env == "dev" {
		logg.Warnw("pepper secret unavailable, using AUTH_PEPPER env fallback", "error", err)
		pepper = config.GetEnv("AUTH_PEPPER", "dev-pepper")
	} else {
		logg.Fatalw("failed to fetch password pepper", "secret", cfg.PepperSecretName, "error", err)
	}
	if pepper == "" {
		logg.Fatalw("empty password pepper", "secret", cfg.PepperSecretName)
	}

	// --- Vendor API key cache (secrets cached in-memory) ---
	vendorKeys := secrets.NewCache[string](cfg.SecretCacheTTL)
	stopCleaner := make(chan struct{})
	go vendorKeys.StartCleaner(cfg.SecretCacheTTL, stopCleaner)

	vendorCreds := func(ctx context.Context) (string, error) {
		if key, ok := vendorKeys.Get(valuationVendor); ok {
			return key, nil
		}
		secretMap, err := awsProvider.GetSecret(ctx, cfg.VendorSecretName)
		if err != nil {
			return "", fmt.Errorf("fetch vendor credentials: %w", err)
		}
		key := secretMap["api_key"]
		if key == "" {
			return "", fmt.Errorf("secret %q has no api_key", cfg.VendorSecretName)
		}
		vendorKeys.Put(valuationVendor, key)
		return key, nil
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter (per auth token inbound, per vendor outbound) ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		Cooldown:          1 * time.Second,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, cfg.CacheTTL, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Auth manager ---
	authMgr := auth.NewManager(logg.Desugar(), st, pepper, cfg.TokenTTL)

	// --- Cash-flow timing policy (hot-reloaded on file change) ---
	policy, err := cashflow.NewPolicyProvider(logg.Desugar(), cfg.TimingPolicyPath)
	if err != nil {
		logg.Fatalw("failed to load timing policy", "path", cfg.TimingPolicyPath, "error", err)
	}
	watchDone := make(chan struct{})
	if err := policy.Watch(watchDone); err != nil {
		logg.Warnw("timing policy watch disabled", "error", err)
	}

	// --- Report services ---
	cashflowSvc := cashflow.NewService(logg.Desugar(), st, policy, cfg.CacheTTL)
	stratSvc := strat.NewService(logg.Desugar(), st, cfg.CacheTTL)

	// --- Seller tape import pipeline (RabbitMQ) ---
	queue, err := importer.NewQueue(cfg.AMQPURL, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to connect import job queue", "error", err)
	}
	importSvc := importer.NewService(logg.Desugar(), st, queue, pub)
	consumer, err := importer.NewConsumer(cfg.AMQPURL, importSvc, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init import consumer", "error", err)
	}
	if err := consumer.Start(ctx); err != nil {
		logg.Fatalw("failed to start import consumer", "error", err)
	}

	// --- Valuation vendor client ---
	exec := httpclient.New(
		logg.Desugar(),
		rateMgr,
		&http.Client{Timeout: 15 * time.Second},
		2,
		valuationVendor,
		vendor.ErrorHandler,
	)
	vendorClient := vendor.NewClient(logg.Desugar(), exec, st, vendorCreds, cfg.VendorBaseURL, valuationVendor)

	// --- Background jobs ---
	pool := st.(*store.HybridStore).PG
	refresher := jobs.NewStratRefresher(logg.Desugar(), pool, pub, cfg.StratRefresh)
	go refresher.Start(ctx)
	sweeper := jobs.NewImportSweeper(pool, logg.Desugar(), cfg.SweepInterval, cfg.ImportTTL)
	go sweeper.Start(ctx)

	// --- Servicer push feed (websocket) ---
	var feed *servicerfeed.Client
	if cfg.ServicerFeedEnabled && cfg.ServicerFeedURL != "" {
		feedTokens := internalsecrets.NewAWSResolver(
			logg.Desugar(),
			cfg.Env,
			awsProvider,
			secrets.NewCache[string](cfg.SecretCacheTTL),
		)
		feedToken, err := feedTokens.Resolve(ctx, "servicer-feed", func(m map[string]string) (string, error) {
			if m["token"] == "" {
				return "", fmt.Errorf("servicer feed secret has no token")
			}
			return m["token"], nil
		})
		if err != nil {
			logg.Warnw("servicer feed disabled, token unavailable", "error", err)
		} else {
			applier := servicerfeed.NewApplier(logg.Desugar(), st, pub)
			feed = servicerfeed.NewClient(cfg.ServicerFeedURL, feedToken, applier, logg.Desugar())
			if err := feed.Connect(ctx); err != nil {
				logg.Warnw("servicer feed connect failed, will retry in background", "error", err)
			}
			subscribeActiveTrades(ctx, st, feed, logg)
		}
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		BodyLimit: 32 << 20, // seller tapes and collateral documents
	})

	handlers := api.Handlers{
		Auth:      api.NewAuthHandler(logg.Desugar(), authMgr),
		Trades:    api.NewTradeHandler(logg.Desugar(), st, stratSvc, cashflowSvc),
		Assets:    api.NewAssetHandler(logg.Desugar(), st, pub, stratSvc, cashflowSvc),
		Imports:   api.NewImportHandler(logg.Desugar(), importSvc, st),
		Valuation: api.NewValuationHandler(logg.Desugar(), st, vendorClient, pub, stratSvc, cashflowSvc),
		Outcomes:  api.NewOutcomeHandler(logg.Desugar(), st, pub, stratSvc, cashflowSvc),
		Ledger:    api.NewLedgerHandler(logg.Desugar(), st, pub),
		Directory: api.NewDirectoryHandler(logg.Desugar(), st),
		Reports:   api.NewReportHandler(logg.Desugar(), stratSvc, cashflowSvc),
		Documents: api.NewDocumentHandler(logg.Desugar(), st, cfg.DocumentRoot),
	}
	api.RegisterRoutes(app, nc, st, handlers, auth.Middleware(logg.Desugar(), authMgr, rateMgr))

	// Start HTTP server
	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("[assethub] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"strat_refresh", cfg.StratRefresh,
		"servicer_feed", cfg.ServicerFeedEnabled,
	)

	<-ctx.Done()
	logg.Info("shutting down [assethub]...")

	close(stopCleaner)
	close(watchDone)
	refresher.Stop()
	if feed != nil {
		if err := feed.Close(); err != nil {
			logg.Warnw("servicerfeed.close_failed", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := consumer.Close(); err != nil {
		logg.Warnw("importer.consumer_close_failed", "error", err)
	}
	if err := queue.Close(); err != nil {
		logg.Warnw("importer.queue_close_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}

// subscribeActiveTrades registers the servicer feed for every trade that is
// still in flight. Dead and closed trades get no feed traffic.
func subscribeActiveTrades(ctx context.Context, st store.Store, feed *servicerfeed.Client, logg *zap.SugaredLogger) {
	sellers, err := st.ListSellers(ctx)
	if err != nil {
		logg.Warnw("servicer feed subscription skipped, seller list failed", "error", err)
		return
	}
	for _, seller := range sellers {
		trades, err := st.ListTrades(ctx, seller.ID)
		if err != nil {
			logg.Warnw("servicer feed subscription skipped for seller", "seller_id", seller.ID, "error", err)
			continue
		}
		for _, trade := range trades {
			if trade.Status == model.TradeStatusClosed || trade.Status == model.TradeStatusDead {
				continue
			}
			if err := feed.Subscribe(trade.ID); err != nil {
				logg.Warnw("servicer feed subscribe failed", "trade_id", trade.ID, "error", err)
			}
		}
	}
}
