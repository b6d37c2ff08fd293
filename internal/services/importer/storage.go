package importer

import (
	"context"
	"fmt"

	"category-import-backend/internal/models"
)

// selectColumns are the only columns the cache needs from the store.
var selectColumns = []string{"id", "slug", "name", "parent_id"}

type CacheEntry struct {
	ID       uint
	Slug     string
	Name     string
	ParentID *uint
}

type categoryLister interface {
	ListAll(ctx context.Context, columns ...string) ([]models.Category, error)
	ListBySlugs(ctx context.Context, slugs []string, columns ...string) ([]models.Category, error)
}

// Storage caches categories by slug so validation and reconciliation can
// resolve references without a query per row.
//
// Storage is not safe for concurrent use.
type Storage struct {
	store categoryLister
	items map[string]CacheEntry
	byID  map[uint]string
}

func NewStorage(store categoryLister) *Storage {
	return &Storage{
		store: store,
		items: make(map[string]CacheEntry),
		byID:  make(map[uint]string),
	}
}

// Init clears the cache and loads every category.
func (s *Storage) Init(ctx context.Context) error {
	s.items = make(map[string]CacheEntry)
	s.byID = make(map[uint]string)
	return s.Load(ctx)
}

// Load upserts categories into the cache. With no slugs it loads all of
// them, otherwise only the given slugs are refreshed.
func (s *Storage) Load(ctx context.Context, slugs ...string) error {
	var (
		categories []models.Category
		err        error
	)
	if len(slugs) == 0 {
		categories, err = s.store.ListAll(ctx, selectColumns...)
	} else {
		categories, err = s.store.ListBySlugs(ctx, slugs, selectColumns...)
	}
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	for _, c := range categories {
		s.Set(c.Slug, c.ID, c.Name, c.ParentID)
	}
	return nil
}

func (s *Storage) Set(slug string, id uint, name string, parentID *uint) *Storage {
	if old, ok := s.items[slug]; ok && old.ID != id {
		delete(s.byID, old.ID)
	}
	s.items[slug] = CacheEntry{ID: id, Slug: slug, Name: name, ParentID: parentID}
	s.byID[id] = slug
	return s
}

func (s *Storage) Has(slug string) bool {
	_, ok := s.items[slug]
	return ok
}

func (s *Storage) Get(slug string) (CacheEntry, bool) {
	e, ok := s.items[slug]
	return e, ok
}

func (s *Storage) GetByID(id uint) (CacheEntry, bool) {
	slug, ok := s.byID[id]
	if !ok {
		return CacheEntry{}, false
	}
	return s.items[slug], true
}

// FindByName scans every entry, so it only finds categories that were
// loaded. When names collide the lowest id wins.
func (s *Storage) FindByName(name string) (CacheEntry, bool) {
	var (
		found CacheEntry
		ok    bool
	)
	for _, e := range s.items {
		if e.Name == name && (!ok || e.ID < found.ID) {
			found, ok = e, true
		}
	}
	return found, ok
}

func (s *Storage) IsEmpty() bool {
	return len(s.items) == 0
}

func (s *Storage) Len() int {
	return len(s.items)
}
