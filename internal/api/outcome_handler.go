package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// OutcomeStore is the slice of the store the outcome handler needs.
type OutcomeStore interface {
	GetAsset(ctx context.Context, hubID string) (*model.Asset, error)
	ListOutcomes(ctx context.Context, hubID string) ([]model.Outcome, error)
	GetOutcome(ctx context.Context, id int64) (*model.Outcome, error)
	OpenOutcome(ctx context.Context, hubID, path string) (*model.Outcome, error)
	UpdateOutcomeStatus(ctx context.Context, id int64, status string) (*model.Outcome, error)
	ListTasks(ctx context.Context, outcomeID int64) ([]model.OutcomeTask, error)
	SetTaskCompleted(ctx context.Context, taskID int64, completed *time.Time) (*model.OutcomeTask, error)
}

// OutcomeHandler serves disposition paths and their checklists.
type OutcomeHandler struct {
	logger       *zap.Logger
	store        OutcomeStore
	events       EventPublisher
	invalidators []ReportInvalidator
}

func NewOutcomeHandler(logger *zap.Logger, st OutcomeStore, events EventPublisher, invalidators ...ReportInvalidator) *OutcomeHandler {
	return &OutcomeHandler{logger: logger, store: st, events: events, invalidators: invalidators}
}

func (h *OutcomeHandler) List(c *fiber.Ctx) error {
	outcomes, err := h.store.ListOutcomes(c.Context(), c.Params("hubId"))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(outcomes)
}

// Open handles POST /assets/:hubId/outcomes. The store retires any prior
// open outcome and its unfinished tasks; the new path changes the projected
// cash flows, so silo report caches are dropped.
func (h *OutcomeHandler) Open(c *fiber.Ctx) error {
	hubID := c.Params("hubId")

	var req OutcomeOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	asset, err := h.store.GetAsset(c.Context(), hubID)
	if err != nil {
		return storeErr(c, err)
	}

	outcome, err := h.store.OpenOutcome(c.Context(), hubID, req.Path)
	if err != nil {
		return storeErr(c, err)
	}

	for _, inv := range h.invalidators {
		inv.Invalidate(asset.SellerID, asset.TradeID)
	}
	if err := h.events.PublishEvent(c.Context(), model.EventOutcomeChanged, asset.SellerID, asset.TradeID, outcome); err != nil {
		h.logger.Warn("api.outcome_event_failed", zap.String("hub_id", hubID), zap.Error(err))
	}

	h.logger.Info("api.outcome_opened",
		zap.String("hub_id", hubID),
		zap.String("path", outcome.Path))
	return c.Status(fiber.StatusCreated).JSON(outcome)
}

// Patch handles PATCH /outcomes/:id (status transitions).
func (h *OutcomeHandler) Patch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid outcome id")
	}

	var req OutcomePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	outcome, err := h.store.UpdateOutcomeStatus(c.Context(), int64(id), req.Status)
	if err != nil {
		return storeErr(c, err)
	}

	if asset, err := h.store.GetAsset(c.Context(), outcome.HubID); err == nil {
		for _, inv := range h.invalidators {
			inv.Invalidate(asset.SellerID, asset.TradeID)
		}
		if err := h.events.PublishEvent(c.Context(), model.EventOutcomeChanged, asset.SellerID, asset.TradeID, outcome); err != nil {
			h.logger.Warn("api.outcome_event_failed", zap.String("hub_id", outcome.HubID), zap.Error(err))
		}
	}

	return c.JSON(outcome)
}

func (h *OutcomeHandler) ListTasks(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid outcome id")
	}
	tasks, err := h.store.ListTasks(c.Context(), int64(id))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(tasks)
}

// PatchTask handles PATCH /tasks/:id (complete / uncomplete).
func (h *OutcomeHandler) PatchTask(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid task id")
	}

	var req TaskPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	var completed *time.Time
	if req.Completed {
		now := time.Now().UTC()
		completed = &now
	}
	task, err := h.store.SetTaskCompleted(c.Context(), int64(id), completed)
	if err != nil {
		return storeErr(c, err)
	}

	if req.Completed {
		if outcome, err := h.store.GetOutcome(c.Context(), task.OutcomeID); err == nil {
			if asset, err := h.store.GetAsset(c.Context(), outcome.HubID); err == nil {
				if err := h.events.PublishEvent(c.Context(), model.EventTaskCompleted, asset.SellerID, asset.TradeID, task); err != nil {
					h.logger.Warn("api.task_event_failed", zap.Int64("task_id", task.ID), zap.Error(err))
				}
			}
		}
	}

	return c.JSON(task)
}
