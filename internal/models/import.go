package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportStatePending    = "pending"
	ImportStateProcessing = "processing"
	ImportStateCompleted  = "completed"
	ImportStateFailed     = "failed"
)

// CategoryImport is one uploaded file, split into ImportBatch chunks.
type CategoryImport struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename     string     `json:"filename"`
	State        string     `gorm:"index" json:"state"`
	TotalRows    int        `json:"total_rows"`
	TotalBatches int        `json:"total_batches"`
	Processed    int        `json:"processed_batches"`
	Created      int        `json:"created_count"`
	Updated      int        `json:"updated_count"`
	Skipped      int        `json:"skipped_count"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
