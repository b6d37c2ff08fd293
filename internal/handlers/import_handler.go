package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"category-import-backend/internal/apperror"
	"category-import-backend/internal/models"
	"category-import-backend/internal/repository"
	"category-import-backend/internal/services/ingest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ImportService interface {
	CreateImport(ctx context.Context, filename string, r io.Reader) (*models.CategoryImport, error)
	GetImport(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error)
	ListBatches(ctx context.Context, id uuid.UUID) ([]models.ImportBatch, error)
	Skips(ctx context.Context, id uuid.UUID) ([]models.SkipRecord, error)
	Run(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error)
	Reset(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error)
	RebuildTree(ctx context.Context) error
}

type CategoryTree interface {
	ListTree(ctx context.Context) ([]models.Category, error)
}

type ImportHandler struct {
	service    ImportService
	categories CategoryTree
	queue      ingest.Queue
	maxBytes   int64
	timeout    time.Duration
}

func NewImportHandler(s ImportService, categories CategoryTree, queue ingest.Queue, maxBytes int64) *ImportHandler {
	return &ImportHandler{
		service:    s,
		categories: categories,
		queue:      queue,
		maxBytes:   maxBytes,
		timeout:    10 * time.Minute,
	}
}

// Upload stores the file as an import and either runs it inline or queues
// it when async=true.
func (h *ImportHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(apperror.BadRequest("file required", err))
		return
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		_ = c.Error(apperror.New(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", h.maxBytes), nil))
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(apperror.Internal(err))
		return
	}
	defer file.Close()

	zap.L().Info("Received category file",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	imp, err := h.service.CreateImport(c.Request.Context(), header.Filename, file)
	if err != nil {
		_ = c.Error(mapError(err))
		return
	}

	h.dispatch(c, imp, http.StatusCreated)
}

func (h *ImportHandler) GetImport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	imp, err := h.service.GetImport(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(mapError(err))
		return
	}
	c.JSON(http.StatusOK, imp)
}

func (h *ImportHandler) ListBatches(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	batches, err := h.service.ListBatches(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": batches})
}

// ListErrors returns the skip records of every processed batch.
func (h *ImportHandler) ListErrors(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	skips, err := h.service.Skips(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": skips, "total": len(skips)})
}

// Rerun resets the import and runs it again from the first row.
func (h *ImportHandler) Rerun(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	imp, err := h.service.Reset(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(mapError(err))
		return
	}
	h.dispatch(c, imp, http.StatusOK)
}

func (h *ImportHandler) dispatch(c *gin.Context, imp *models.CategoryImport, status int) {
	async := strings.ToLower(strings.TrimSpace(c.Query("async"))) == "true"
	if async {
		if err := h.queue.Enqueue(c.Request.Context(), imp.ID); err != nil {
			_ = c.Error(apperror.New(http.StatusInternalServerError, "failed to queue import", err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"import":  imp,
			"message": "Import queued for processing",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Run(ctx, imp.ID)
	if err != nil {
		_ = c.Error(apperror.New(http.StatusInternalServerError, "import failed", err))
		return
	}
	c.JSON(status, gin.H{"import": result})
}

// ListCategories returns the tree in nested-set order.
func (h *ImportHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.ListTree(c.Request.Context())
	if err != nil {
		_ = c.Error(apperror.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": categories})
}

func (h *ImportHandler) RebuildTree(c *gin.Context) {
	if err := h.service.RebuildTree(c.Request.Context()); err != nil {
		_ = c.Error(apperror.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category tree rebuilt"})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.BadRequest("invalid import ID", err))
		return uuid.Nil, false
	}
	return id, true
}

func mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrImportNotFound):
		return apperror.NotFound("import not found")
	case errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrMissingHeader),
		errors.Is(err, ingest.ErrNoRows),
		errors.Is(err, ingest.ErrDuplicateColumn),
		errors.Is(err, ingest.ErrMalformedFile):
		return apperror.BadRequest(err.Error(), err)
	}
	return err
}
