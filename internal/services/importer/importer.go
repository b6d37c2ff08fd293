package importer

import (
	"context"
	"fmt"
	"strconv"

	"category-import-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryStore is the persistence the importer writes through.
//
// RebuildTree recomputes the nested-set bounds of the whole tree. It is not
// safe to run two imports against the same tree at once: parent checks and
// rebuilds of concurrent batches interleave, so callers must serialize
// batches per tree.
type CategoryStore interface {
	FindByID(ctx context.Context, id uint) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, fields models.CategoryFields) (*models.Category, error)
	Update(ctx context.Context, id uint, fields models.CategoryFields) (*models.Category, error)
	ListAll(ctx context.Context, columns ...string) ([]models.Category, error)
	ListBySlugs(ctx context.Context, slugs []string, columns ...string) ([]models.Category, error)
	RebuildTree(ctx context.Context) error
}

type BatchStore interface {
	UpdateBatch(ctx context.Context, id uuid.UUID, update models.BatchUpdate) error
}

// Settings supplies the channel root category and the application locale.
type Settings interface {
	ChannelRootID(ctx context.Context) (uint, error)
	Locale(ctx context.Context) string
}

type Result struct {
	Summary models.BatchSummary `json:"summary"`
	Skips   []models.SkipRecord `json:"skips"`
}

type Importer struct {
	categories CategoryStore
	batches    BatchStore
	cache      *Storage
	settings   Settings
	events     Listener
}

func NewImporter(
	categories CategoryStore,
	batches BatchStore,
	cache *Storage,
	settings Settings,
	events Listener,
) *Importer {
	if events == nil {
		events = NewDispatcher()
	}
	return &Importer{
		categories: categories,
		batches:    batches,
		cache:      cache,
		settings:   settings,
		events:     events,
	}
}

// ImportBatch validates and upserts every row of batch, rebuilds the tree
// once and marks the batch processed. Rejected rows are returned as skips;
// a returned error leaves the batch state untouched and is reported to
// listeners as a failed import.
func (i *Importer) ImportBatch(ctx context.Context, batch *models.ImportBatch) (*Result, error) {
	rows, err := batch.Rows()
	if err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", batch.ID, err)
	}

	i.events.BeforeBatchImport(ctx, newBatchEvent(batch, len(rows), nil))

	result, err := i.importRows(ctx, batch, rows)
	if err != nil {
		i.events.BatchImportFailed(ctx, newFailedEvent(batch, len(rows), err))
		return nil, err
	}

	zap.L().Info("category batch imported",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("rows", len(rows)),
		zap.Int("created", result.Summary.Created),
		zap.Int("updated", result.Summary.Updated),
		zap.Int("skipped", len(result.Skips)),
	)

	i.events.AfterBatchImport(ctx, newBatchEvent(batch, len(rows), result))
	return result, nil
}

func (i *Importer) importRows(ctx context.Context, batch *models.ImportBatch, rows []map[string]string) (*Result, error) {
	rootID, err := i.settings.ChannelRootID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve channel root: %w", err)
	}
	appLocale := i.settings.Locale(ctx)

	if err := i.primeCache(ctx, rows); err != nil {
		return nil, err
	}

	resolver := &parentResolver{cache: i.cache, store: i.categories}
	rowValidator := NewRowValidator(resolver)
	result := &Result{}

	for idx, row := range rows {
		rowNumber := batch.StartRow + idx

		ok, err := rowValidator.ValidateRow(ctx, row, rowNumber)
		if err != nil {
			return nil, fmt.Errorf("validate row %d: %w", rowNumber, err)
		}
		if !ok {
			continue
		}

		cr := DecodeRow(row)

		locale := cr.Locale
		if locale == "" {
			locale = appLocale
		}

		var parentID *uint
		if cr.ParentID != "" {
			id, _, err := resolver.ResolveParent(ctx, cr.ParentID, cr.Slug)
			if err != nil {
				return nil, fmt.Errorf("resolve parent of row %d: %w", rowNumber, err)
			}
			parentID = &id
		} else if rootID != 0 {
			root := rootID
			parentID = &root
		}

		fields := cr.Fields(parentID, locale)

		existing, err := i.categories.FindBySlug(ctx, fields.Slug)
		if err != nil {
			return nil, fmt.Errorf("find category %q: %w", fields.Slug, err)
		}

		var saved *models.Category
		if existing != nil {
			saved, err = i.categories.Update(ctx, existing.ID, fields)
			if err != nil {
				return nil, fmt.Errorf("update category %q: %w", fields.Slug, err)
			}
			result.Summary.Updated++
		} else {
			saved, err = i.categories.Create(ctx, fields)
			if err != nil {
				return nil, fmt.Errorf("create category %q: %w", fields.Slug, err)
			}
			result.Summary.Created++
		}
		i.cache.Set(saved.Slug, saved.ID, saved.Name, saved.ParentID)
	}

	if err := i.categories.RebuildTree(ctx); err != nil {
		return nil, fmt.Errorf("rebuild category tree: %w", err)
	}

	result.Skips = rowValidator.Skips()
	summary := result.Summary
	if err := i.batches.UpdateBatch(ctx, batch.ID, models.BatchUpdate{
		State:   models.BatchStateProcessed,
		Summary: &summary,
		Errors:  result.Skips,
	}); err != nil {
		return nil, fmt.Errorf("update batch %s: %w", batch.ID, err)
	}
	batch.State = models.BatchStateProcessed
	return result, nil
}

// primeCache loads the full tree on first use. Afterwards it refreshes the
// slugs this batch writes and the parent references it names, so rows
// written by other processes since the last batch are visible.
func (i *Importer) primeCache(ctx context.Context, rows []map[string]string) error {
	if i.cache.IsEmpty() {
		return i.cache.Init(ctx)
	}

	seen := make(map[string]struct{}, len(rows))
	keys := make([]string, 0, len(rows))
	add := func(key string) {
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, row := range rows {
		cr := DecodeRow(row)
		add(cr.Slug)
		add(cr.ParentID)
	}
	if len(keys) == 0 {
		return nil
	}
	return i.cache.Load(ctx, keys...)
}

// parentResolver accepts a numeric category id, a slug or a category name.
// Ids missing from the cache fall back to the store; a numeric reference
// that matches no id is tried as a slug and then as a name. The first slug or
// name miss reloads the whole cache once per batch.
type parentResolver struct {
	cache    *Storage
	store    CategoryStore
	reloaded bool
}

func (r *parentResolver) ResolveParent(ctx context.Context, ref, child string) (uint, bool, error) {
	id, found, err := r.lookup(ctx, ref)
	if err != nil || !found {
		return 0, false, err
	}
	if self, ok := r.cache.Get(child); ok && self.ID == id {
		return 0, false, nil
	}
	return id, true, nil
}

func (r *parentResolver) lookup(ctx context.Context, ref string) (uint, bool, error) {
	if n, err := strconv.ParseUint(ref, 10, 64); err == nil {
		id := uint(n)
		if _, ok := r.cache.GetByID(id); ok {
			return id, true, nil
		}
		c, err := r.store.FindByID(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if c != nil {
			r.cache.Set(c.Slug, c.ID, c.Name, c.ParentID)
			return c.ID, true, nil
		}
	}

	if e, ok := r.cached(ref); ok {
		return e.ID, true, nil
	}
	if r.reloaded {
		return 0, false, nil
	}
	r.reloaded = true
	if err := r.cache.Load(ctx); err != nil {
		return 0, false, err
	}
	if e, ok := r.cached(ref); ok {
		return e.ID, true, nil
	}
	return 0, false, nil
}

func (r *parentResolver) cached(ref string) (CacheEntry, bool) {
	if e, ok := r.cache.Get(ref); ok {
		return e, true
	}
	return r.cache.FindByName(ref)
}
