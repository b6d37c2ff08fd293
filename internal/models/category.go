package models

import "time"

type Category struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Slug            string  `gorm:"uniqueIndex;not null" json:"slug"`
	Name            string  `gorm:"index" json:"name"`
	ParentID        *uint   `gorm:"index" json:"parent_id"`
	Position        int     `json:"position"`
	Status          bool    `json:"status"`
	Description     string  `json:"description"`
	MetaTitle       string  `json:"meta_title"`
	MetaDescription string  `json:"meta_description"`
	MetaKeywords    string  `json:"meta_keywords"`
	Locale          string  `json:"locale"`
	DisplayMode     *string `json:"display_mode,omitempty"`
	LogoPath        *string `json:"logo_path,omitempty"`
	BannerPath      *string `json:"banner_path,omitempty"`

	// Nested-set bounds, only valid after RebuildTree.
	Lft   int `gorm:"column:_lft;index" json:"lft"`
	Rgt   int `gorm:"column:_rgt;index" json:"rgt"`
	Depth int `json:"depth"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
