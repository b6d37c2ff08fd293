package ingest

import (
	"context"
	"errors"
	"time"

	"category-import-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context, id uuid.UUID) (*models.CategoryImport, error)
}

// Worker drains the queue, running one import at a time.
type Worker struct {
	queue   Queue
	runner  Runner
	backoff time.Duration
}

func NewWorker(queue Queue, runner Runner) *Worker {
	return &Worker{queue: queue, runner: runner, backoff: 500 * time.Millisecond}
}

// Start blocks until ctx is cancelled or the queue is closed.
func (w *Worker) Start(ctx context.Context) {
	zap.L().Info("category import worker started")
	for {
		id, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				zap.L().Info("category import worker stopping")
				return
			}
			zap.L().Error("dequeue failed", zap.Error(err))
			select {
			case <-time.After(w.backoff):
				continue
			case <-ctx.Done():
				zap.L().Info("category import worker stopping")
				return
			}
		}

		imp, err := w.runner.Run(ctx, id)
		if err != nil {
			zap.L().Error("category import run failed",
				zap.String("import_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("category import run finished",
			zap.String("import_id", id.String()),
			zap.String("state", imp.State),
		)
	}
}
