package importer

import (
	"context"
	"errors"
	"testing"

	"category-import-backend/internal/models"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	log        *callLog
	categories *memCategoryStore
	batches    *memBatchStore
	listener   *recordingListener
	importer   *Importer
}

func newFixture(settings Settings, seed ...models.Category) *fixture {
	log := &callLog{}
	f := &fixture{
		log:        log,
		categories: newMemCategoryStore(log, seed...),
		batches:    newMemBatchStore(log),
		listener:   &recordingListener{log: log},
	}
	f.importer = NewImporter(f.categories, f.batches, NewStorage(f.categories), settings,
		NewDispatcher(LogListener{}, f.listener))
	return f
}

func TestImportBatch_EndToEnd(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})
	batch := newBatch(t,
		Row{"slug": "a", "name": "A", "status": "1"},
		Row{"slug": "b", "name": "B", "status": "1", "parent_id": "1"},
		Row{"slug": "a", "name": "A2", "status": "1"},
	)

	res, err := f.importer.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	require.Equal(t, models.BatchSummary{Created: 2, Updated: 0}, res.Summary)
	require.Len(t, res.Skips, 1)
	require.Equal(t, 3, res.Skips[0].RowNumber)
	require.Equal(t, ErrCodeDuplicateSlug, res.Skips[0].ErrorCode)

	a := f.categories.bySlug(t, "a")
	require.Equal(t, "A", a.Name)
	b := f.categories.bySlug(t, "b")
	require.NotNil(t, b.ParentID)
	require.Equal(t, a.ID, *b.ParentID)

	update := f.batches.updates[batch.ID]
	require.Equal(t, models.BatchStateProcessed, update.State)
	require.Equal(t, &res.Summary, update.Summary)
	require.Equal(t, res.Skips, update.Errors)
	require.Equal(t, models.BatchStateProcessed, batch.State)
}

func TestImportBatch_EmptyParentDefaultsToChannelRoot(t *testing.T) {
	f := newFixture(StaticSettings{RootID: 1, AppLocale: "en"},
		models.Category{ID: 1, Slug: "root", Name: "Root"})

	_, err := f.importer.ImportBatch(context.Background(), newBatch(t,
		Row{"slug": "shoes", "name": "Shoes", "status": "1", "parent_id": ""},
		Row{"slug": "hats", "name": "Hats", "status": "0"},
	))
	require.NoError(t, err)

	for _, slug := range []string{"shoes", "hats"} {
		c := f.categories.bySlug(t, slug)
		require.NotNil(t, c.ParentID)
		require.Equal(t, uint(1), *c.ParentID)
	}
	require.False(t, f.categories.bySlug(t, "hats").Status)
}

func TestImportBatch_RootSettingsResolveRootBySlug(t *testing.T) {
	log := &callLog{}
	categories := newMemCategoryStore(log, models.Category{ID: 7, Slug: "root", Name: "Root"})
	imp := NewImporter(categories, newMemBatchStore(log), NewStorage(categories),
		NewRootSettings(categories, "root", "en"), nil)

	_, err := imp.ImportBatch(context.Background(), newBatch(t, Row{"slug": "a", "name": "A", "status": "1"}))
	require.NoError(t, err)
	require.Equal(t, uint(7), *categories.bySlug(t, "a").ParentID)
}

func TestImportBatch_LocaleDefault(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})

	_, err := f.importer.ImportBatch(context.Background(), newBatch(t,
		Row{"slug": "a", "name": "A", "status": "1", "locale": "fr"},
		Row{"slug": "b", "name": "B", "status": "1", "locale": ""},
	))
	require.NoError(t, err)
	require.Equal(t, "fr", f.categories.bySlug(t, "a").Locale)
	require.Equal(t, "en", f.categories.bySlug(t, "b").Locale)
}

func TestImportBatch_IdempotentAcrossBatches(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})
	row := Row{"slug": "a", "name": "A", "status": "1", "description": "first", "position": "3"}
	ctx := context.Background()

	first, err := f.importer.ImportBatch(ctx, newBatch(t, row))
	require.NoError(t, err)
	require.Equal(t, models.BatchSummary{Created: 1}, first.Summary)
	afterFirst := f.categories.bySlug(t, "a")

	second, err := f.importer.ImportBatch(ctx, newBatch(t, row))
	require.NoError(t, err)
	require.Equal(t, models.BatchSummary{Updated: 1}, second.Summary)
	require.Empty(t, second.Skips, "duplicate tracking is per batch")

	afterSecond := f.categories.bySlug(t, "a")
	require.Equal(t, afterFirst, afterSecond)
	require.Equal(t, 3, afterSecond.Position)
	require.Equal(t, []string{"create:a", "update:a"}, filterCalls(f.log.calls, "create:", "update:"))

	// The second run refreshes only the batch slugs instead of reloading.
	require.Equal(t, 1, f.categories.listAll)
	require.Equal(t, [][]string{{"a"}}, f.categories.listSlugs)
}

func TestImportBatch_UpdateKeepsAbsentOptionalFields(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"}, models.Category{
		ID:          1,
		Slug:        "a",
		Name:        "A",
		Description: "keep me",
		LogoPath:    strPtr("logo.png"),
		BannerPath:  strPtr("banner.png"),
	})

	_, err := f.importer.ImportBatch(context.Background(), newBatch(t,
		Row{"slug": "a", "name": "A renamed", "status": "1", "display_mode": "products_only", "banner_path": ""},
	))
	require.NoError(t, err)

	c := f.categories.bySlug(t, "a")
	require.Equal(t, "A renamed", c.Name)
	require.Equal(t, "keep me", c.Description)
	require.Equal(t, "logo.png", *c.LogoPath)
	require.Equal(t, "", *c.BannerPath)
	require.Equal(t, "products_only", *c.DisplayMode)
}

func TestImportBatch_RebuildsOnceAfterLastRow(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})

	_, err := f.importer.ImportBatch(context.Background(), newBatch(t,
		Row{"slug": "a", "name": "A", "status": "1"},
		Row{"slug": "b", "name": "B", "status": "9"},
		Row{"slug": "c", "name": "C", "status": "0"},
	))
	require.NoError(t, err)

	require.Equal(t, 1, f.log.count("rebuild"))
	require.Equal(t, []string{
		"before",
		"create:a",
		"create:c",
		"rebuild",
		"batch:processed",
		"after",
	}, f.log.calls)
}

func TestImportBatch_EventsCarrySnapshot(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})
	batch := newBatch(t, Row{"slug": "a", "name": "A", "status": "1"}, Row{"slug": "a", "name": "A", "status": "1"})

	_, err := f.importer.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, f.listener.events, 2)
	before, after := f.listener.events[0], f.listener.events[1]
	require.Equal(t, EventBatchImportBefore, before.Name)
	require.Equal(t, models.BatchStateProcessing, before.State)
	require.Equal(t, 2, before.Rows)
	require.Equal(t, EventBatchImportAfter, after.Name)
	require.Equal(t, models.BatchStateProcessed, after.State)
	require.Equal(t, batch.ID, after.BatchID)
	require.Equal(t, 1, after.Summary.Created)
	require.Equal(t, 1, after.Skipped)
}

func TestImportBatch_StoreErrorIsFatal(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})
	f.categories.createErr = errors.New("insert failed")
	batch := newBatch(t, Row{"slug": "a", "name": "A", "status": "1"})

	res, err := f.importer.ImportBatch(context.Background(), batch)
	require.Error(t, err)
	require.ErrorIs(t, err, f.categories.createErr)
	require.Nil(t, res)

	require.Zero(t, f.log.count("rebuild"))
	require.Empty(t, f.batches.updates)
	require.Equal(t, models.BatchStateProcessing, batch.State)
	require.Zero(t, f.log.count("after"))

	require.Equal(t, []string{"before", "failed"}, filterCalls(f.log.calls, "before", "after", "failed"))
	failed := f.listener.events[1]
	require.Equal(t, EventBatchImportFailed, failed.Name)
	require.Equal(t, batch.ID, failed.BatchID)
	require.Equal(t, models.BatchStateProcessing, failed.State)
	require.Contains(t, failed.Error, "insert failed")
}

func TestImportBatch_SettingsErrorIsFatal(t *testing.T) {
	f := newFixture(failingSettings{})

	_, err := f.importer.ImportBatch(context.Background(), newBatch(t, Row{"slug": "a", "name": "A", "status": "1"}))
	require.Error(t, err)
	require.Empty(t, filterCalls(f.log.calls, "create:", "update:", "rebuild", "batch:"))
	require.Equal(t, []string{"before", "failed"}, f.log.calls)
}

func TestImportBatch_MissingRootIsFatal(t *testing.T) {
	log := &callLog{}
	categories := newMemCategoryStore(log)
	imp := NewImporter(categories, newMemBatchStore(log), NewStorage(categories),
		NewRootSettings(categories, "root", "en"), nil)

	_, err := imp.ImportBatch(context.Background(), newBatch(t, Row{"slug": "a", "name": "A", "status": "1"}))
	require.ErrorIs(t, err, ErrChannelRootNotFound)
}

func TestImportBatch_SeesParentsWrittenElsewhere(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, newBatch(t, Row{"slug": "a", "name": "A", "status": "1"}))
	require.NoError(t, err)

	// Written by another process after the cache was primed.
	f.categories.rows[50] = &models.Category{ID: 50, Slug: "shoes", Name: "Shoes"}
	f.categories.rows[51] = &models.Category{ID: 51, Slug: "hats", Name: "Hats"}

	res, err := f.importer.ImportBatch(ctx, newBatch(t,
		Row{"slug": "sneakers", "name": "Sneakers", "status": "1", "parent_id": "shoes"},
		Row{"slug": "caps", "name": "Caps", "status": "1", "parent_id": "Hats"},
	))
	require.NoError(t, err)
	require.Empty(t, res.Skips)
	require.Equal(t, models.BatchSummary{Created: 2}, res.Summary)
	require.Equal(t, uint(50), *f.categories.bySlug(t, "sneakers").ParentID)
	require.Equal(t, uint(51), *f.categories.bySlug(t, "caps").ParentID)

	// Slug references are refreshed up front; the name miss reloads once.
	require.Equal(t, [][]string{{"sneakers", "shoes", "caps", "Hats"}}, f.categories.listSlugs)
	require.Equal(t, 2, f.categories.listAll)
}

func TestImportBatch_PositionValues(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"})

	res, err := f.importer.ImportBatch(context.Background(), newBatch(t,
		Row{"slug": "neg", "name": "Neg", "status": "1", "position": "-1"},
		Row{"slug": "frac", "name": "Frac", "status": "1", "position": "2.0"},
		Row{"slug": "huge", "name": "Huge", "status": "1", "position": "99999999999999999999"},
		Row{"slug": "word", "name": "Word", "status": "1", "position": "first"},
	))
	require.NoError(t, err)
	require.Empty(t, res.Skips)
	require.Equal(t, models.BatchSummary{Created: 4}, res.Summary)

	require.Equal(t, -1, f.categories.bySlug(t, "neg").Position)
	require.Zero(t, f.categories.bySlug(t, "frac").Position)
	require.Zero(t, f.categories.bySlug(t, "huge").Position)
	require.Zero(t, f.categories.bySlug(t, "word").Position)
}

func TestImportBatch_UnparsablePositionKeepsStoredValue(t *testing.T) {
	f := newFixture(StaticSettings{AppLocale: "en"}, models.Category{ID: 1, Slug: "a", Name: "A", Position: 4})

	res, err := f.importer.ImportBatch(context.Background(), newBatch(t,
		Row{"slug": "a", "name": "A", "status": "1", "position": "99999999999999999999"},
	))
	require.NoError(t, err)
	require.Equal(t, models.BatchSummary{Updated: 1}, res.Summary)
	require.Equal(t, 4, f.categories.bySlug(t, "a").Position)
}

func filterCalls(calls []string, prefixes ...string) []string {
	var out []string
	for _, c := range calls {
		for _, p := range prefixes {
			if len(c) >= len(p) && c[:len(p)] == p {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
