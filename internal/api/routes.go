package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ridgeline-Capital/assethub/internal/store"
)

// Handlers bundles every route handler RegisterRoutes wires up.
type Handlers struct {
	Auth      *AuthHandler
	Trades    *TradeHandler
	Assets    *AssetHandler
	Imports   *ImportHandler
	Valuation *ValuationHandler
	Outcomes  *OutcomeHandler
	Ledger    *LedgerHandler
	Directory *DirectoryHandler
	Reports   *ReportHandler
	Documents *DocumentHandler
}

// RegisterRoutes wires the public endpoints (health, metrics, token auth)
// and the authenticated /api/v1 surface.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, st store.Store, h Handlers, authMiddleware fiber.Handler) {
	app.Use(MetricsMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc == nil || !nc.IsConnected() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
			checks["nats"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	app.Post("/api-token-auth", h.Auth.Login)

	v1 := app.Group("/api/v1", authMiddleware)
	v1.Post("/logout", h.Auth.Logout)

	// Sellers / trades
	v1.Get("/sellers", h.Trades.ListSellers)
	v1.Post("/sellers", h.Trades.CreateSeller)
	v1.Get("/sellers/:id", h.Trades.GetSeller)
	v1.Get("/trades", h.Trades.ListTrades)
	v1.Post("/trades", h.Trades.CreateTrade)
	v1.Get("/trades/:id", h.Trades.GetTrade)
	v1.Patch("/trades/:id", h.Trades.PatchTrade)
	v1.Get("/trades/:id/assumptions", h.Trades.GetAssumptions)
	v1.Put("/trades/:id/assumptions", h.Trades.PutAssumptions)
	v1.Get("/trades/:id/dates", h.Trades.ListDates)
	v1.Post("/trades/:id/dates", h.Trades.CreateDate)
	v1.Patch("/trades/:id/dates/:dateId", h.Trades.PatchDate)
	v1.Delete("/trades/:id/dates/:dateId", h.Trades.DeleteDate)
	v1.Get("/trades/:id/cashflows", h.Reports.TradeCashFlows)

	// Assets
	v1.Get("/assets", h.Assets.List)
	v1.Get("/assets/:hubId", h.Assets.Get)
	v1.Patch("/assets/:hubId", h.Assets.Patch)
	v1.Get("/assets/:hubId/outcomes", h.Outcomes.List)
	v1.Post("/assets/:hubId/outcomes", h.Outcomes.Open)
	v1.Get("/assets/:hubId/cashflows", h.Reports.AssetCashFlows)

	// Seller-tape imports
	v1.Post("/imports", h.Imports.Upload)
	v1.Get("/imports/:id", h.Imports.Get)
	v1.Post("/imports/:id/commit", h.Imports.Commit)
	v1.Delete("/imports/:id", h.Imports.Abandon)

	// Valuations
	v1.Get("/valuations", h.Valuation.List)
	v1.Post("/valuations", h.Valuation.Create)
	v1.Post("/valuations/order", h.Valuation.Order)
	v1.Delete("/valuations/:id", h.Valuation.Delete)

	// Outcomes / tasks
	v1.Get("/outcomes/:id/tasks", h.Outcomes.ListTasks)
	v1.Patch("/outcomes/:id", h.Outcomes.Patch)
	v1.Patch("/tasks/:id", h.Outcomes.PatchTask)

	// General ledger
	v1.Get("/ledger", h.Ledger.List)
	v1.Post("/ledger", h.Ledger.Post)
	v1.Post("/ledger/:id/reverse", h.Ledger.Reverse)

	// CRM directories
	v1.Get("/directory/brokers", h.Directory.ListBrokers)
	v1.Post("/directory/brokers", h.Directory.CreateBroker)
	v1.Patch("/directory/brokers/:id", h.Directory.UpdateBroker)
	v1.Delete("/directory/brokers/:id", h.Directory.DeleteBroker)
	v1.Get("/directory/investors", h.Directory.ListInvestors)
	v1.Post("/directory/investors", h.Directory.CreateInvestor)
	v1.Patch("/directory/investors/:id", h.Directory.UpdateInvestor)
	v1.Delete("/directory/investors/:id", h.Directory.DeleteInvestor)
	v1.Get("/directory/legal", h.Directory.ListLegal)
	v1.Post("/directory/legal", h.Directory.CreateLegal)
	v1.Patch("/directory/legal/:id", h.Directory.UpdateLegal)
	v1.Delete("/directory/legal/:id", h.Directory.DeleteLegal)
	v1.Get("/directory/partners", h.Directory.ListPartners)
	v1.Post("/directory/partners", h.Directory.CreatePartner)
	v1.Patch("/directory/partners/:id", h.Directory.UpdatePartner)
	v1.Delete("/directory/partners/:id", h.Directory.DeletePartner)

	// Reporting
	v1.Get("/strat", h.Reports.Strat)

	// Documents
	v1.Post("/documents", h.Documents.Upload)
	v1.Get("/documents", h.Documents.List)
	v1.Get("/documents/:id/content", h.Documents.Content)
	v1.Delete("/documents/:id", h.Documents.Delete)
}
