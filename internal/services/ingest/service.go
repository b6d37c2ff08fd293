package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"category-import-backend/internal/models"
	"category-import-backend/internal/services/importer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNoRows = errors.New("file contains no data rows")

type ImportStore interface {
	CreateImport(ctx context.Context, imp *models.CategoryImport, batches []models.ImportBatch) error
	GetImport(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error)
	SaveImport(ctx context.Context, imp *models.CategoryImport) error
	ListBatches(ctx context.Context, importID uuid.UUID, states ...string) ([]models.ImportBatch, error)
	SetBatchState(ctx context.Context, id uuid.UUID, state string) error
	ResetImport(ctx context.Context, id uuid.UUID) error
}

type BatchImporter interface {
	ImportBatch(ctx context.Context, batch *models.ImportBatch) (*importer.Result, error)
}

type TreeRebuilder interface {
	RebuildTree(ctx context.Context) error
}

// Service turns uploaded files into imports and runs their batches.
type Service struct {
	imports   ImportStore
	importer  BatchImporter
	tree      TreeRebuilder
	batchSize int

	// Held for a whole run; batches of one tree never interleave.
	treeMu sync.Mutex
	// Extends treeMu to other processes sharing the database.
	lock TreeLock
}

func NewService(imports ImportStore, batchImporter BatchImporter, tree TreeRebuilder, batchSize int) *Service {
	return &Service{
		imports:   imports,
		importer:  batchImporter,
		tree:      tree,
		batchSize: batchSize,
	}
}

// SetTreeLock makes runs, resets and rebuilds also take l, for deployments
// where several processes write the same tree.
func (s *Service) SetTreeLock(l TreeLock) {
	s.lock = l
}

func (s *Service) lockTree(ctx context.Context) (func(), error) {
	s.treeMu.Lock()
	if s.lock == nil {
		return s.treeMu.Unlock, nil
	}
	release, err := s.lock.Lock(ctx)
	if err != nil {
		s.treeMu.Unlock()
		return nil, err
	}
	return func() {
		release()
		s.treeMu.Unlock()
	}, nil
}

// CreateImport parses the file and stores it as a pending import.
func (s *Service) CreateImport(ctx context.Context, filename string, r io.Reader) (*models.CategoryImport, error) {
	src, err := ReadSource(filename, r)
	if err != nil {
		return nil, err
	}
	if len(src.Rows) == 0 {
		return nil, ErrNoRows
	}

	imp := &models.CategoryImport{
		ID:        uuid.New(),
		Filename:  filename,
		State:     models.ImportStatePending,
		TotalRows: len(src.Rows),
	}
	batches, err := NewBatches(imp.ID, src.Rows, s.batchSize)
	if err != nil {
		return nil, err
	}
	imp.TotalBatches = len(batches)

	if err := s.imports.CreateImport(ctx, imp, batches); err != nil {
		return nil, fmt.Errorf("store import: %w", err)
	}

	zap.L().Info("Category import created",
		zap.String("import_id", imp.ID.String()),
		zap.String("filename", filename),
		zap.Int("rows", imp.TotalRows),
		zap.Int("batches", imp.TotalBatches),
	)
	return imp, nil
}

func (s *Service) GetImport(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error) {
	return s.imports.GetImport(ctx, id)
}

func (s *Service) ListBatches(ctx context.Context, id uuid.UUID) ([]models.ImportBatch, error) {
	if _, err := s.imports.GetImport(ctx, id); err != nil {
		return nil, err
	}
	return s.imports.ListBatches(ctx, id)
}

// Run processes every batch of the import that is not yet processed, in
// source order. A batch error stops the run and marks the import failed;
// the failing batch stays in processing and is retried by the next Run.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error) {
	unlock, err := s.lockTree(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	imp, err := s.imports.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	if imp.State == models.ImportStateCompleted {
		return imp, nil
	}

	now := time.Now()
	imp.State = models.ImportStateProcessing
	imp.ErrorMessage = nil
	if imp.StartedAt == nil {
		imp.StartedAt = &now
	}
	if err := s.imports.SaveImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("save import %s: %w", id, err)
	}

	batches, err := s.imports.ListBatches(ctx, id, models.BatchStatePending, models.BatchStateProcessing)
	if err != nil {
		return s.fail(ctx, imp, fmt.Errorf("list batches: %w", err))
	}

	for idx := range batches {
		batch := &batches[idx]
		if batch.State != models.BatchStateProcessing {
			if err := s.imports.SetBatchState(ctx, batch.ID, models.BatchStateProcessing); err != nil {
				return s.fail(ctx, imp, fmt.Errorf("claim batch %s: %w", batch.ID, err))
			}
			batch.State = models.BatchStateProcessing
		}

		result, err := s.importer.ImportBatch(ctx, batch)
		if err != nil {
			return s.fail(ctx, imp, err)
		}

		imp.Processed++
		imp.Created += result.Summary.Created
		imp.Updated += result.Summary.Updated
		imp.Skipped += len(result.Skips)
		if err := s.imports.SaveImport(ctx, imp); err != nil {
			return nil, fmt.Errorf("save import %s: %w", id, err)
		}
	}

	done := time.Now()
	imp.State = models.ImportStateCompleted
	imp.CompletedAt = &done
	if err := s.imports.SaveImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("save import %s: %w", id, err)
	}

	zap.L().Info("Category import completed",
		zap.String("import_id", imp.ID.String()),
		zap.Int("created", imp.Created),
		zap.Int("updated", imp.Updated),
		zap.Int("skipped", imp.Skipped),
	)
	return imp, nil
}

func (s *Service) fail(ctx context.Context, imp *models.CategoryImport, cause error) (*models.CategoryImport, error) {
	msg := cause.Error()
	imp.State = models.ImportStateFailed
	imp.ErrorMessage = &msg

	zap.L().Error("Category import failed",
		zap.String("import_id", imp.ID.String()),
		zap.Error(cause),
	)
	if err := s.imports.SaveImport(context.WithoutCancel(ctx), imp); err != nil {
		zap.L().Error("Failed to record import failure",
			zap.String("import_id", imp.ID.String()),
			zap.Error(err),
		)
	}
	return imp, cause
}

// Reset returns a finished or failed import to pending so the next Run
// starts again from the first row.
func (s *Service) Reset(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error) {
	unlock, err := s.lockTree(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.imports.GetImport(ctx, id); err != nil {
		return nil, err
	}
	if err := s.imports.ResetImport(ctx, id); err != nil {
		return nil, fmt.Errorf("reset import %s: %w", id, err)
	}
	return s.imports.GetImport(ctx, id)
}

// Skips collects the skip records of every processed batch in row order.
func (s *Service) Skips(ctx context.Context, id uuid.UUID) ([]models.SkipRecord, error) {
	batches, err := s.ListBatches(ctx, id)
	if err != nil {
		return nil, err
	}
	skips := []models.SkipRecord{}
	for idx := range batches {
		batchSkips, err := batches[idx].DecodeErrors()
		if err != nil {
			return nil, fmt.Errorf("decode errors of batch %s: %w", batches[idx].ID, err)
		}
		skips = append(skips, batchSkips...)
	}
	return skips, nil
}

// RebuildTree recomputes the nested-set encoding outside of an import.
func (s *Service) RebuildTree(ctx context.Context) error {
	unlock, err := s.lockTree(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	if err := s.tree.RebuildTree(ctx); err != nil {
		return fmt.Errorf("rebuild category tree: %w", err)
	}
	zap.L().Info("Category tree rebuilt", zap.Duration("took", time.Since(start)))
	return nil
}
