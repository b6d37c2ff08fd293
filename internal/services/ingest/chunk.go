package ingest

import (
	"encoding/json"
	"fmt"

	"category-import-backend/internal/models"
	"category-import-backend/internal/services/importer"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NewBatches splits rows into pending batches of at most size rows. Row
// numbers are 1-based over the data records of the file.
func NewBatches(importID uuid.UUID, rows []importer.Row, size int) ([]models.ImportBatch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}

	batches := make([]models.ImportBatch, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		data, err := json.Marshal(rows[start:end])
		if err != nil {
			return nil, fmt.Errorf("encode rows %d-%d: %w", start+1, end, err)
		}
		batches = append(batches, models.ImportBatch{
			ID:       uuid.New(),
			ImportID: importID,
			StartRow: start + 1,
			Data:     datatypes.JSON(data),
			State:    models.BatchStatePending,
		})
	}
	return batches, nil
}
