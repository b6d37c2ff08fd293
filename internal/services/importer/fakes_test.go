package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"category-import-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// callLog records the order of store and listener calls across fakes.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, args ...interface{}) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.calls {
		if c == call {
			n++
		}
	}
	return n
}

type memCategoryStore struct {
	log       *callLog
	nextID    uint
	rows      map[uint]*models.Category
	createErr error
	listAll   int
	listSlugs [][]string
}

func newMemCategoryStore(log *callLog, seed ...models.Category) *memCategoryStore {
	s := &memCategoryStore{log: log, nextID: 1, rows: make(map[uint]*models.Category)}
	for _, c := range seed {
		c := c
		s.rows[c.ID] = &c
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
	return s
}

func (s *memCategoryStore) FindByID(_ context.Context, id uint) (*models.Category, error) {
	s.log.add("find_id:%d", id)
	c, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memCategoryStore) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, c := range s.rows {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memCategoryStore) Create(_ context.Context, fields models.CategoryFields) (*models.Category, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.log.add("create:%s", fields.Slug)
	c := &models.Category{ID: s.nextID}
	s.nextID++
	fields.Apply(c)
	s.rows[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *memCategoryStore) Update(_ context.Context, id uint, fields models.CategoryFields) (*models.Category, error) {
	s.log.add("update:%s", fields.Slug)
	c, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("category %d not found", id)
	}
	fields.Apply(c)
	cp := *c
	return &cp, nil
}

func (s *memCategoryStore) ListAll(context.Context, ...string) ([]models.Category, error) {
	s.listAll++
	out := make([]models.Category, 0, len(s.rows))
	for _, c := range s.rows {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memCategoryStore) ListBySlugs(_ context.Context, slugs []string, _ ...string) ([]models.Category, error) {
	s.listSlugs = append(s.listSlugs, slugs)
	var out []models.Category
	for _, c := range s.rows {
		for _, slug := range slugs {
			if c.Slug == slug {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (s *memCategoryStore) RebuildTree(context.Context) error {
	s.log.add("rebuild")
	return nil
}

func (s *memCategoryStore) bySlug(t *testing.T, slug string) models.Category {
	t.Helper()
	for _, c := range s.rows {
		if c.Slug == slug {
			return *c
		}
	}
	t.Fatalf("category %q not stored", slug)
	return models.Category{}
}

type memBatchStore struct {
	log     *callLog
	updates map[uuid.UUID]models.BatchUpdate
}

func newMemBatchStore(log *callLog) *memBatchStore {
	return &memBatchStore{log: log, updates: make(map[uuid.UUID]models.BatchUpdate)}
}

func (s *memBatchStore) UpdateBatch(_ context.Context, id uuid.UUID, update models.BatchUpdate) error {
	s.log.add("batch:%s", update.State)
	s.updates[id] = update
	return nil
}

type recordingListener struct {
	log    *callLog
	events []BatchEvent
}

func (l *recordingListener) BeforeBatchImport(_ context.Context, ev BatchEvent) {
	l.log.add("before")
	l.events = append(l.events, ev)
}

func (l *recordingListener) AfterBatchImport(_ context.Context, ev BatchEvent) {
	l.log.add("after")
	l.events = append(l.events, ev)
}

func (l *recordingListener) BatchImportFailed(_ context.Context, ev BatchEvent) {
	l.log.add("failed")
	l.events = append(l.events, ev)
}

type failingSettings struct{}

func (failingSettings) ChannelRootID(context.Context) (uint, error) {
	return 0, fmt.Errorf("channel lookup failed")
}

func (failingSettings) Locale(context.Context) string { return "en" }

func newBatch(t *testing.T, rows ...Row) *models.ImportBatch {
	t.Helper()
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	return &models.ImportBatch{
		ID:       uuid.New(),
		ImportID: uuid.New(),
		StartRow: 1,
		Data:     data,
		State:    models.BatchStateProcessing,
	}
}

func strPtr(s string) *string { return &s }

func uintPtr(u uint) *uint { return &u }
