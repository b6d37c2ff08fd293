package models

// SkipRecord describes one row that was not applied.
type SkipRecord struct {
	RowNumber  int    `json:"row_number"`
	ErrorCode  string `json:"error_code"`
	ColumnName string `json:"column_name"`
	Message    string `json:"message"`
}

// BatchUpdate is the final write the importer makes to a batch.
type BatchUpdate struct {
	State   string
	Summary *BatchSummary
	Errors  []SkipRecord
}
