package importer

import (
	"context"
	"errors"
	"fmt"

	"category-import-backend/internal/models"
)

var ErrChannelRootNotFound = errors.New("channel root category not found")

// StaticSettings serves fixed values, typically from configuration.
// RootID 0 means rows without a parent become top-level categories.
type StaticSettings struct {
	RootID    uint
	AppLocale string
}

func (s StaticSettings) ChannelRootID(context.Context) (uint, error) {
	return s.RootID, nil
}

func (s StaticSettings) Locale(context.Context) string {
	return s.AppLocale
}

type slugFinder interface {
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
}

// RootSettings looks the channel root up by slug on every call.
type RootSettings struct {
	store     slugFinder
	rootSlug  string
	appLocale string
}

func NewRootSettings(store slugFinder, rootSlug, appLocale string) *RootSettings {
	return &RootSettings{store: store, rootSlug: rootSlug, appLocale: appLocale}
}

func (s *RootSettings) ChannelRootID(ctx context.Context) (uint, error) {
	root, err := s.store.FindBySlug(ctx, s.rootSlug)
	if err != nil {
		return 0, err
	}
	if root == nil {
		return 0, fmt.Errorf("%w: slug %q", ErrChannelRootNotFound, s.rootSlug)
	}
	return root.ID, nil
}

func (s *RootSettings) Locale(context.Context) string {
	return s.appLocale
}
