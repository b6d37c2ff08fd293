package repository

import (
	"context"
	"errors"

	"category-import-backend/internal/models"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindByID returns nil, nil when the category does not exist.
func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	return r.first(ctx, "id = ?", id)
}

// FindBySlug returns nil, nil when no category has the slug.
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *CategoryRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where(query, args...).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, fields models.CategoryFields) (*models.Category, error) {
	category := &models.Category{}
	fields.Apply(category)
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// Update writes only the columns the fields carry.
func (r *CategoryRepository) Update(ctx context.Context, id uint, fields models.CategoryFields) (*models.Category, error) {
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", id).
		Updates(fields.Columns()).
		Error
	if err != nil {
		return nil, err
	}
	category, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return category, nil
}

func (r *CategoryRepository) ListAll(ctx context.Context, columns ...string) ([]models.Category, error) {
	var categories []models.Category
	q := r.db.WithContext(ctx).Model(&models.Category{})
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	err := q.Order("id ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) ListBySlugs(ctx context.Context, slugs []string, columns ...string) ([]models.Category, error) {
	if len(slugs) == 0 {
		return []models.Category{}, nil
	}
	var categories []models.Category
	q := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug IN ?", slugs)
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	err := q.Find(&categories).Error
	return categories, err
}

// ListTree returns every category in nested-set order.
func (r *CategoryRepository) ListTree(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("_lft ASC").Order("id ASC").Find(&categories).Error
	return categories, err
}

// RebuildTree recomputes _lft/_rgt/depth for the whole table from parent_id.
// Concurrent rebuilds are not coordinated; callers serialize imports.
func (r *CategoryRepository) RebuildTree(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nodes []TreeNode
		err := tx.Model(&models.Category{}).
			Select("id", "parent_id", "position", "_lft", "_rgt", "depth").
			Find(&nodes).Error
		if err != nil {
			return err
		}

		bounds := NestedSetBounds(nodes)
		for _, n := range nodes {
			b := bounds[n.ID]
			if b.Lft == n.Lft && b.Rgt == n.Rgt && b.Depth == n.Depth {
				continue
			}
			err := tx.Model(&models.Category{}).
				Where("id = ?", n.ID).
				UpdateColumns(map[string]interface{}{
					"_lft":  b.Lft,
					"_rgt":  b.Rgt,
					"depth": b.Depth,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureRoot returns the category with slug, creating a top-level one when
// it does not exist yet.
func (r *CategoryRepository) EnsureRoot(ctx context.Context, slug, name, locale string) (*models.Category, error) {
	root, err := r.FindBySlug(ctx, slug)
	if err != nil || root != nil {
		return root, err
	}
	return r.Create(ctx, models.CategoryFields{
		Name:   name,
		Slug:   slug,
		Status: true,
		Locale: locale,
	})
}
