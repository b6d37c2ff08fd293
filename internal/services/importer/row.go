package importer

import (
	"strconv"
	"strings"

	"category-import-backend/internal/models"
)

// Row is one parsed source record: column name -> raw value.
type Row map[string]string

const (
	ColName            = "name"
	ColSlug            = "slug"
	ColParentID        = "parent_id"
	ColPosition        = "position"
	ColStatus          = "status"
	ColDescription     = "description"
	ColMetaTitle       = "meta_title"
	ColMetaDescription = "meta_description"
	ColMetaKeywords    = "meta_keywords"
	ColLocale          = "locale"
	ColDisplayMode     = "display_mode"
	ColLogoPath        = "logo_path"
	ColBannerPath      = "banner_path"
)

// ValidColumns are the permanent category columns copied from a row.
var ValidColumns = []string{
	ColName, ColSlug, ColParentID, ColPosition, ColStatus, ColDescription,
	ColMetaTitle, ColMetaDescription, ColMetaKeywords, ColLocale,
}

// OptionalColumns are carried through only when the row has them.
var OptionalColumns = []string{ColDisplayMode, ColLogoPath, ColBannerPath}

// CategoryRow is the typed view of a Row. Pointer fields are nil when the
// column is absent from the row.
type CategoryRow struct {
	Name     string
	Slug     string
	Status   string
	ParentID string
	Locale   string

	Position        *string
	Description     *string
	MetaTitle       *string
	MetaDescription *string
	MetaKeywords    *string
	DisplayMode     *string
	LogoPath        *string
	BannerPath      *string

	Extra map[string]string
}

func DecodeRow(row Row) CategoryRow {
	var cr CategoryRow
	for col, raw := range row {
		v := strings.TrimSpace(raw)
		switch col {
		case ColName:
			cr.Name = v
		case ColSlug:
			cr.Slug = v
		case ColStatus:
			cr.Status = v
		case ColParentID:
			cr.ParentID = v
		case ColLocale:
			cr.Locale = v
		case ColPosition:
			cr.Position = &v
		case ColDescription:
			cr.Description = &v
		case ColMetaTitle:
			cr.MetaTitle = &v
		case ColMetaDescription:
			cr.MetaDescription = &v
		case ColMetaKeywords:
			cr.MetaKeywords = &v
		case ColDisplayMode:
			cr.DisplayMode = &v
		case ColLogoPath:
			cr.LogoPath = &v
		case ColBannerPath:
			cr.BannerPath = &v
		default:
			if cr.Extra == nil {
				cr.Extra = make(map[string]string)
			}
			cr.Extra[col] = raw
		}
	}
	return cr
}

// Fields projects a validated row onto category columns. parentID and locale
// are the already-defaulted values.
func (cr CategoryRow) Fields(parentID *uint, locale string) models.CategoryFields {
	f := models.CategoryFields{
		Name:            cr.Name,
		Slug:            cr.Slug,
		ParentID:        parentID,
		Status:          cr.Status == "1",
		Locale:          locale,
		Description:     cr.Description,
		MetaTitle:       cr.MetaTitle,
		MetaDescription: cr.MetaDescription,
		MetaKeywords:    cr.MetaKeywords,
		DisplayMode:     cr.DisplayMode,
		LogoPath:        cr.LogoPath,
		BannerPath:      cr.BannerPath,
	}
	// A position that does not parse as an int is left unset.
	if cr.Position != nil && *cr.Position != "" {
		if pos, err := strconv.Atoi(*cr.Position); err == nil {
			f.Position = &pos
		}
	}
	return f
}
