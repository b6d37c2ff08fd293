package app

import (
	"context"
	"fmt"

	"category-import-backend/internal/config"
	"category-import-backend/internal/repository"
	"category-import-backend/internal/services/importer"
	"category-import-backend/internal/services/ingest"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the import pipeline shared by the server and the CLI.
type App struct {
	Categories *repository.CategoryRepository
	Imports    *repository.ImportRepository
	Events     *importer.Dispatcher
	Importer   *importer.Importer
	Service    *ingest.Service
}

func New(ctx context.Context, cfg *config.Config, db *gorm.DB) (*App, error) {
	categories := repository.NewCategoryRepository(db)
	imports := repository.NewImportRepository(db)

	settings, err := newSettings(ctx, cfg.Import, categories)
	if err != nil {
		return nil, err
	}

	events := importer.NewDispatcher(importer.LogListener{})
	imp := importer.NewImporter(
		categories,
		imports,
		importer.NewStorage(categories),
		settings,
		events,
	)

	return &App{
		Categories: categories,
		Imports:    imports,
		Events:     events,
		Importer:   imp,
		Service:    ingest.NewService(imports, imp, categories, cfg.Import.BatchSize),
	}, nil
}

// UseRedis shares the pipeline with other processes through rdb: tree work
// takes the Redis lock and batch events are published.
func (a *App) UseRedis(rdb *redis.Client) {
	a.Service.SetTreeLock(ingest.NewRedisLock(rdb))
	a.Events.Subscribe(ingest.NewRedisPublisher(rdb))
}

// newSettings uses the configured root id when set, otherwise it makes
// sure the root category exists and resolves it by slug.
func newSettings(ctx context.Context, opts config.ImportOptions, categories *repository.CategoryRepository) (importer.Settings, error) {
	if opts.RootID != 0 {
		return importer.StaticSettings{RootID: opts.RootID, AppLocale: opts.Locale}, nil
	}

	root, err := categories.EnsureRoot(ctx, opts.RootSlug, opts.RootName, opts.Locale)
	if err != nil {
		return nil, fmt.Errorf("ensure root category %q: %w", opts.RootSlug, err)
	}
	zap.L().Info("Channel root category ready",
		zap.Uint("id", root.ID),
		zap.String("slug", root.Slug),
	)
	return importer.NewRootSettings(categories, opts.RootSlug, opts.Locale), nil
}
