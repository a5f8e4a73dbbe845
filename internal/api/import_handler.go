package api

import (
	"context"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/auth"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// ImportService is the importer surface the upload wizard drives.
type ImportService interface {
	Stage(ctx context.Context, sellerID, tradeID int64, filename, createdBy string, tape io.Reader) (*model.ImportBatch, error)
	Commit(ctx context.Context, batchID string) (*model.ImportBatch, error)
	Abandon(ctx context.Context, batchID string) error
}

// ImportStore reads batch status and row errors for the review screen.
type ImportStore interface {
	GetImportBatch(ctx context.Context, id string) (*model.ImportBatch, error)
	ListImportRows(ctx context.Context, batchID string) ([]model.ImportRow, error)
}

// ImportHandler serves the seller-tape import wizard endpoints.
type ImportHandler struct {
	logger  *zap.Logger
	service ImportService
	store   ImportStore
}

func NewImportHandler(logger *zap.Logger, svc ImportService, st ImportStore) *ImportHandler {
	return &ImportHandler{logger: logger, service: svc, store: st}
}

// Upload handles POST /imports: a multipart tape upload staged for review.
func (h *ImportHandler) Upload(c *fiber.Ctx) error {
	sellerID, err := strconv.ParseInt(c.FormValue("sellerId"), 10, 64)
	if err != nil || sellerID <= 0 {
		return errJSON(c, fiber.StatusBadRequest, "sellerId is required")
	}
	tradeID, err := strconv.ParseInt(c.FormValue("tradeId"), 10, 64)
	if err != nil || tradeID <= 0 {
		return errJSON(c, fiber.StatusBadRequest, "tradeId is required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	defer file.Close()

	createdBy := ""
	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		createdBy = user.Username
	}

	batch, err := h.service.Stage(c.Context(), sellerID, tradeID, fileHeader.Filename, createdBy, file)
	if err != nil {
		h.logger.Error("api.import_stage_failed",
			zap.Int64("seller_id", sellerID),
			zap.Int64("trade_id", tradeID),
			zap.Error(err))
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(batch)
}

// Get handles GET /imports/:id: batch status plus per-row errors.
func (h *ImportHandler) Get(c *fiber.Ctx) error {
	batch, err := h.store.GetImportBatch(c.Context(), c.Params("id"))
	if err != nil {
		return storeErr(c, err)
	}
	rows, err := h.store.ListImportRows(c.Context(), batch.ID)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(fiber.Map{"batch": batch, "rows": rows})
}

// Commit handles POST /imports/:id/commit: boards every clean row.
func (h *ImportHandler) Commit(c *fiber.Ctx) error {
	batch, err := h.service.Commit(c.Context(), c.Params("id"))
	if err != nil {
		return errJSON(c, fiber.StatusConflict, err.Error())
	}
	return c.JSON(batch)
}

// Abandon handles DELETE /imports/:id.
func (h *ImportHandler) Abandon(c *fiber.Ctx) error {
	if err := h.service.Abandon(c.Context(), c.Params("id")); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
