package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/auth"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DocumentStore is the slice of the store the document handler needs.
type DocumentStore interface {
	CreateDocument(ctx context.Context, d *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocumentsByHub(ctx context.Context, hubID string) ([]model.Document, error)
	ListDocumentsByTrade(ctx context.Context, tradeID int64) ([]model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// DocumentHandler serves collateral and trade document uploads. Metadata
// lives in Postgres; content lands under docRoot keyed by the document id.
type DocumentHandler struct {
	logger  *zap.Logger
	store   DocumentStore
	docRoot string
}

func NewDocumentHandler(logger *zap.Logger, st DocumentStore, docRoot string) *DocumentHandler {
	return &DocumentHandler{logger: logger, store: st, docRoot: docRoot}
}

// Upload handles POST /documents (multipart: file + hubId and/or tradeId).
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	hubID := c.FormValue("hubId")
	var tradeID *int64
	if v := c.FormValue("tradeId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errJSON(c, fiber.StatusBadRequest, "invalid tradeId")
		}
		tradeID = &id
	}
	if hubID == "" && tradeID == nil {
		return errJSON(c, fiber.StatusBadRequest, "hubId or tradeId is required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "file is required")
	}

	id := uuid.New().String()
	storagePath := filepath.Join(h.docRoot, id)
	if err := h.writeContent(fileHeader, storagePath); err != nil {
		h.logger.Error("api.document_write_failed", zap.String("id", id), zap.Error(err))
		return errJSON(c, fiber.StatusInternalServerError, "document write failed")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}

	doc := &model.Document{
		ID:          id,
		HubID:       hubID,
		TradeID:     tradeID,
		Name:        fileHeader.Filename,
		ContentType: contentType,
		SizeBytes:   fileHeader.Size,
		StoragePath: storagePath,
		UploadedAt:  time.Now().UTC(),
	}
	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		doc.UploadedBy = user.Username
	}

	if err := h.store.CreateDocument(c.Context(), doc); err != nil {
		_ = os.Remove(storagePath)
		return storeErr(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *DocumentHandler) writeContent(fileHeader *multipart.FileHeader, storagePath string) error {
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(h.docRoot, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(storagePath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("content copy failed: %w", err)
	}
	return nil
}

// List handles GET /documents?hubId= or ?tradeId=.
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	if hubID := c.Query("hubId"); hubID != "" {
		docs, err := h.store.ListDocumentsByHub(c.Context(), hubID)
		if err != nil {
			return storeErr(c, err)
		}
		return c.JSON(docs)
	}
	tradeID, err := queryInt64(c, "tradeId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "hubId or tradeId is required")
	}
	docs, err := h.store.ListDocumentsByTrade(c.Context(), tradeID)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(docs)
}

// Content handles GET /documents/:id/content, streaming the stored file.
func (h *DocumentHandler) Content(c *fiber.Ctx) error {
	doc, err := h.store.GetDocument(c.Context(), c.Params("id"))
	if err != nil {
		return storeErr(c, err)
	}

	f, err := os.Open(doc.StoragePath)
	if err != nil {
		h.logger.Error("api.document_content_missing",
			zap.String("id", doc.ID),
			zap.Error(err))
		return errJSON(c, fiber.StatusNotFound, "document content missing")
	}

	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.Name+`"`)
	return c.SendStream(f, int(doc.SizeBytes))
}

// Delete handles DELETE /documents/:id: drops the row, then the content.
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	doc, err := h.store.GetDocument(c.Context(), c.Params("id"))
	if err != nil {
		return storeErr(c, err)
	}
	if err := h.store.DeleteDocument(c.Context(), doc.ID); err != nil {
		return storeErr(c, err)
	}
	if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("api.document_content_remove_failed",
			zap.String("id", doc.ID),
			zap.Error(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
