package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BatchStatePending    = "pending"
	BatchStateProcessing = "processing"
	BatchStateProcessed  = "processed"
	BatchStateFailed     = "failed"
)

type ImportBatch struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ImportID uuid.UUID      `gorm:"type:uuid;index" json:"import_id"`
	StartRow int            `json:"start_row"` // source row number of Data[0]
	Data     datatypes.JSON `json:"-"`
	State    string         `gorm:"index" json:"state"`
	Summary  datatypes.JSON `json:"summary"`
	Errors   datatypes.JSON `json:"errors"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BatchSummary is the persisted shape of ImportBatch.Summary.
type BatchSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Rows decodes the raw column maps stored in Data.
func (b *ImportBatch) Rows() ([]map[string]string, error) {
	if len(b.Data) == 0 {
		return nil, nil
	}
	var rows []map[string]string
	if err := json.Unmarshal(b.Data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (b *ImportBatch) DecodeSummary() (BatchSummary, error) {
	var s BatchSummary
	if len(b.Summary) == 0 {
		return s, nil
	}
	err := json.Unmarshal(b.Summary, &s)
	return s, err
}

func (b *ImportBatch) DecodeErrors() ([]SkipRecord, error) {
	var skips []SkipRecord
	if len(b.Errors) == 0 {
		return skips, nil
	}
	err := json.Unmarshal(b.Errors, &skips)
	return skips, err
}
