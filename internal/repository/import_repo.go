package repository

import (
	"context"
	"encoding/json"
	"errors"

	"category-import-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrImportNotFound = errors.New("import not found")

type ImportRepository struct {
	db *gorm.DB
}

func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Expose DB if needed
func (r *ImportRepository) DB() *gorm.DB {
	return r.db
}

// CreateImport stores the import and all of its batches together.
func (r *ImportRepository) CreateImport(ctx context.Context, imp *models.CategoryImport, batches []models.ImportBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(imp).Error; err != nil {
			return err
		}
		if len(batches) == 0 {
			return nil
		}
		return tx.CreateInBatches(batches, 100).Error
	})
}

func (r *ImportRepository) GetImport(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error) {
	var imp models.CategoryImport
	err := r.db.WithContext(ctx).First(&imp, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *ImportRepository) ListImports(ctx context.Context, limit int) ([]models.CategoryImport, error) {
	var imports []models.CategoryImport
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&imports).Error
	return imports, err
}

func (r *ImportRepository) SaveImport(ctx context.Context, imp *models.CategoryImport) error {
	return r.db.WithContext(ctx).Save(imp).Error
}

// ListBatches returns the import's batches in source order, optionally
// filtered by state.
func (r *ImportRepository) ListBatches(ctx context.Context, importID uuid.UUID, states ...string) ([]models.ImportBatch, error) {
	var batches []models.ImportBatch
	q := r.db.WithContext(ctx).Where("import_id = ?", importID)
	if len(states) > 0 {
		q = q.Where("state IN ?", states)
	}
	err := q.Order("start_row ASC").Find(&batches).Error
	return batches, err
}

func (r *ImportRepository) SetBatchState(ctx context.Context, id uuid.UUID, state string) error {
	return r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Update("state", state).
		Error
}

func (r *ImportRepository) UpdateBatch(ctx context.Context, id uuid.UUID, update models.BatchUpdate) error {
	values := map[string]interface{}{"state": update.State}
	if update.Summary != nil {
		summary, err := json.Marshal(update.Summary)
		if err != nil {
			return err
		}
		values["summary"] = datatypes.JSON(summary)
	}
	if update.Errors != nil {
		errs, err := json.Marshal(update.Errors)
		if err != nil {
			return err
		}
		values["errors"] = datatypes.JSON(errs)
	}
	return r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(values).
		Error
}

// ResetImport puts an import and every batch back to pending so it can run
// again from the first row.
func (r *ImportRepository) ResetImport(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ImportBatch{}).
			Where("import_id = ?", id).
			Updates(map[string]interface{}{
				"state":   models.BatchStatePending,
				"summary": nil,
				"errors":  nil,
			}).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.CategoryImport{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"state":         models.ImportStatePending,
				"processed":     0,
				"created":       0,
				"updated":       0,
				"skipped":       0,
				"error_message": nil,
				"started_at":    nil,
				"completed_at":  nil,
			}).Error
	})
}
