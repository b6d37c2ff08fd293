package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"category-import-backend/internal/models"
	"category-import-backend/internal/services/importer"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var errNotFound = errors.New("import not found")

type memImportStore struct {
	mu      sync.Mutex
	imports map[uuid.UUID]models.CategoryImport
	batches map[uuid.UUID]*models.ImportBatch
	saves   int
	saveErr error
}

func newMemImportStore() *memImportStore {
	return &memImportStore{
		imports: map[uuid.UUID]models.CategoryImport{},
		batches: map[uuid.UUID]*models.ImportBatch{},
	}
}

func (s *memImportStore) CreateImport(_ context.Context, imp *models.CategoryImport, batches []models.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports[imp.ID] = *imp
	for i := range batches {
		b := batches[i]
		s.batches[b.ID] = &b
	}
	return nil
}

func (s *memImportStore) GetImport(_ context.Context, id uuid.UUID) (*models.CategoryImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[id]
	if !ok {
		return nil, errNotFound
	}
	return &imp, nil
}

func (s *memImportStore) SaveImport(_ context.Context, imp *models.CategoryImport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.imports[imp.ID] = *imp
	return nil
}

func (s *memImportStore) ListBatches(_ context.Context, importID uuid.UUID, states ...string) ([]models.ImportBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ImportBatch
	for _, b := range s.batches {
		if b.ImportID != importID {
			continue
		}
		if len(states) > 0 && !contains(states, b.State) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartRow < out[j].StartRow })
	return out, nil
}

func (s *memImportStore) SetBatchState(_ context.Context, id uuid.UUID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[id].State = state
	return nil
}

func (s *memImportStore) ResetImport(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		if b.ImportID == id {
			b.State = models.BatchStatePending
			b.Summary = nil
			b.Errors = nil
		}
	}
	imp := s.imports[id]
	imp.State = models.ImportStatePending
	imp.Processed, imp.Created, imp.Updated, imp.Skipped = 0, 0, 0, 0
	imp.ErrorMessage, imp.StartedAt, imp.CompletedAt = nil, nil, nil
	s.imports[id] = imp
	return nil
}

// UpdateBatch lets the store double as the importer's BatchStore.
func (s *memImportStore) UpdateBatch(_ context.Context, id uuid.UUID, update models.BatchUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batches[id]
	b.State = update.State
	if update.Summary != nil {
		data, _ := json.Marshal(update.Summary)
		b.Summary = datatypes.JSON(data)
	}
	if update.Errors != nil {
		data, _ := json.Marshal(update.Errors)
		b.Errors = datatypes.JSON(data)
	}
	return nil
}

func (s *memImportStore) batchStates(importID uuid.UUID) []string {
	batches, _ := s.ListBatches(context.Background(), importID)
	states := make([]string, len(batches))
	for i, b := range batches {
		states[i] = b.State
	}
	return states
}

// scriptedImporter returns results per batch start row and can fail once
// on a given row.
type scriptedImporter struct {
	store   *memImportStore
	failOn  int
	failErr error
	seen    []int
}

func (f *scriptedImporter) ImportBatch(ctx context.Context, batch *models.ImportBatch) (*importer.Result, error) {
	f.seen = append(f.seen, batch.StartRow)
	if f.failOn == batch.StartRow && f.failErr != nil {
		err := f.failErr
		f.failErr = nil
		return nil, err
	}
	rows, err := batch.Rows()
	if err != nil {
		return nil, err
	}
	res := &importer.Result{Skips: []models.SkipRecord{}}
	for i, r := range rows {
		if r["slug"] == "" {
			res.Skips = append(res.Skips, models.SkipRecord{RowNumber: batch.StartRow + i, ErrorCode: importer.ErrCodeInvalidAttribute, ColumnName: "slug"})
			continue
		}
		res.Summary.Created++
	}
	summary := res.Summary
	if err := f.store.UpdateBatch(ctx, batch.ID, models.BatchUpdate{State: models.BatchStateProcessed, Summary: &summary, Errors: res.Skips}); err != nil {
		return nil, err
	}
	return res, nil
}

type countingTree struct {
	calls int
	err   error
}

func (c *countingTree) RebuildTree(context.Context) error {
	c.calls++
	return c.err
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
