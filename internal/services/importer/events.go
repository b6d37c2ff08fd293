package importer

import (
	"context"

	"category-import-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventBatchImportBefore = "data_transfer.imports.batch.import.before"
	EventBatchImportAfter  = "data_transfer.imports.batch.import.after"
	EventBatchImportFailed = "data_transfer.imports.batch.import.failed"
)

// BatchEvent is a snapshot of a batch handed to listeners. Listeners get a
// copy and cannot change the batch being imported.
type BatchEvent struct {
	Name     string              `json:"event"`
	BatchID  uuid.UUID           `json:"batch_id"`
	ImportID uuid.UUID           `json:"import_id"`
	State    string              `json:"state"`
	Rows     int                 `json:"rows"`
	Summary  models.BatchSummary `json:"summary"`
	Skipped  int                 `json:"skipped"`
	Error    string              `json:"error,omitempty"`
}

func newBatchEvent(batch *models.ImportBatch, rows int, result *Result) BatchEvent {
	ev := BatchEvent{
		Name:     EventBatchImportBefore,
		BatchID:  batch.ID,
		ImportID: batch.ImportID,
		State:    batch.State,
		Rows:     rows,
	}
	if result != nil {
		ev.Name = EventBatchImportAfter
		ev.Summary = result.Summary
		ev.Skipped = len(result.Skips)
	}
	return ev
}

func newFailedEvent(batch *models.ImportBatch, rows int, cause error) BatchEvent {
	ev := newBatchEvent(batch, rows, nil)
	ev.Name = EventBatchImportFailed
	ev.Error = cause.Error()
	return ev
}

// Listener observes batch imports. Calls are synchronous and their outcome
// does not affect the import. Every BeforeBatchImport is followed by exactly
// one AfterBatchImport or BatchImportFailed.
type Listener interface {
	BeforeBatchImport(ctx context.Context, ev BatchEvent)
	AfterBatchImport(ctx context.Context, ev BatchEvent)
	BatchImportFailed(ctx context.Context, ev BatchEvent)
}

// Dispatcher fans events out to listeners in registration order.
type Dispatcher struct {
	listeners []Listener
}

func NewDispatcher(listeners ...Listener) *Dispatcher {
	return &Dispatcher{listeners: listeners}
}

func (d *Dispatcher) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Dispatcher) BeforeBatchImport(ctx context.Context, ev BatchEvent) {
	for _, l := range d.listeners {
		l.BeforeBatchImport(ctx, ev)
	}
}

func (d *Dispatcher) AfterBatchImport(ctx context.Context, ev BatchEvent) {
	for _, l := range d.listeners {
		l.AfterBatchImport(ctx, ev)
	}
}

func (d *Dispatcher) BatchImportFailed(ctx context.Context, ev BatchEvent) {
	for _, l := range d.listeners {
		l.BatchImportFailed(ctx, ev)
	}
}

// LogListener writes batch lifecycle events to the global zap logger.
type LogListener struct{}

func (LogListener) BeforeBatchImport(_ context.Context, ev BatchEvent) {
	zap.L().Debug("category batch import starting",
		zap.String("batch_id", ev.BatchID.String()),
		zap.String("import_id", ev.ImportID.String()),
		zap.Int("rows", ev.Rows),
	)
}

func (LogListener) AfterBatchImport(_ context.Context, ev BatchEvent) {
	zap.L().Debug("category batch import finished",
		zap.String("batch_id", ev.BatchID.String()),
		zap.String("state", ev.State),
		zap.Int("created", ev.Summary.Created),
		zap.Int("updated", ev.Summary.Updated),
		zap.Int("skipped", ev.Skipped),
	)
}

func (LogListener) BatchImportFailed(_ context.Context, ev BatchEvent) {
	zap.L().Warn("category batch import failed",
		zap.String("batch_id", ev.BatchID.String()),
		zap.String("import_id", ev.ImportID.String()),
		zap.String("error", ev.Error),
	)
}
