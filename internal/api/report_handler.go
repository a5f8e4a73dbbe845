package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// StratService computes silo stratification reports.
type StratService interface {
	Report(ctx context.Context, sellerID, tradeID int64, dimension string) (*model.StratReport, error)
}

// CashFlowService projects asset and trade cash-flow schedules.
type CashFlowService interface {
	AssetSchedule(ctx context.Context, hubID, pathParam string) (*model.CashFlowSchedule, error)
	TradeSchedule(ctx context.Context, tradeID int64) (*model.TradeCashFlow, error)
}

// ReportHandler serves the computed reporting surface: stratifications and
// cash-flow projections.
type ReportHandler struct {
	logger   *zap.Logger
	strat    StratService
	cashflow CashFlowService
}

func NewReportHandler(logger *zap.Logger, strat StratService, cashflow CashFlowService) *ReportHandler {
	return &ReportHandler{logger: logger, strat: strat, cashflow: cashflow}
}

// reportErr maps computation failures: missing rows are 404s, a flight
// superseded past its retry is a 409, anything else is the caller's 400.
func reportErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return errJSON(c, fiber.StatusConflict, "report superseded by a newer request")
	default:
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
}

// Strat handles GET /strat?sellerId=&tradeId=&by=.
func (h *ReportHandler) Strat(c *fiber.Ctx) error {
	sellerID, err := queryInt64(c, "sellerId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "sellerId is required")
	}
	tradeID, err := queryInt64(c, "tradeId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "tradeId is required")
	}

	dimension := c.Query("by", model.StratByCurrentBalance)
	valid := false
	for _, d := range model.StratDimensions {
		if d == dimension {
			valid = true
			break
		}
	}
	if !valid {
		return errJSON(c, fiber.StatusBadRequest, "by must be one of current_balance, coupon, state, property_type")
	}

	report, err := h.strat.Report(c.Context(), sellerID, tradeID, dimension)
	if err != nil {
		return reportErr(c, err)
	}
	return c.JSON(report)
}

// AssetCashFlows handles GET /assets/:hubId/cashflows?outcome=.
func (h *ReportHandler) AssetCashFlows(c *fiber.Ctx) error {
	schedule, err := h.cashflow.AssetSchedule(c.Context(), c.Params("hubId"), c.Query("outcome"))
	if err != nil {
		return reportErr(c, err)
	}
	return c.JSON(schedule)
}

// TradeCashFlows handles GET /trades/:id/cashflows.
func (h *ReportHandler) TradeCashFlows(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}
	flow, err := h.cashflow.TradeSchedule(c.Context(), int64(id))
	if err != nil {
		return reportErr(c, err)
	}
	return c.JSON(flow)
}
