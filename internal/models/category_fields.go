package models

// CategoryFields is the projection of an import row onto Category columns.
// Nil pointers are columns the row did not carry; updates leave them untouched.
type CategoryFields struct {
	Name            string
	Slug            string
	ParentID        *uint
	Status          bool
	Locale          string
	Position        *int
	Description     *string
	MetaTitle       *string
	MetaDescription *string
	MetaKeywords    *string
	DisplayMode     *string
	LogoPath        *string
	BannerPath      *string
}

// Columns returns the column/value map used for gorm updates.
func (f CategoryFields) Columns() map[string]interface{} {
	cols := map[string]interface{}{
		"name":      f.Name,
		"slug":      f.Slug,
		"parent_id": f.ParentID,
		"status":    f.Status,
		"locale":    f.Locale,
	}
	if f.Position != nil {
		cols["position"] = *f.Position
	}
	optional := map[string]*string{
		"description":      f.Description,
		"meta_title":       f.MetaTitle,
		"meta_description": f.MetaDescription,
		"meta_keywords":    f.MetaKeywords,
		"display_mode":     f.DisplayMode,
		"logo_path":        f.LogoPath,
		"banner_path":      f.BannerPath,
	}
	for col, v := range optional {
		if v != nil {
			cols[col] = *v
		}
	}
	return cols
}

// Apply copies the carried fields onto c.
func (f CategoryFields) Apply(c *Category) {
	c.Name = f.Name
	c.Slug = f.Slug
	c.ParentID = f.ParentID
	c.Status = f.Status
	c.Locale = f.Locale
	if f.Position != nil {
		c.Position = *f.Position
	}
	if f.Description != nil {
		c.Description = *f.Description
	}
	if f.MetaTitle != nil {
		c.MetaTitle = *f.MetaTitle
	}
	if f.MetaDescription != nil {
		c.MetaDescription = *f.MetaDescription
	}
	if f.MetaKeywords != nil {
		c.MetaKeywords = *f.MetaKeywords
	}
	if f.DisplayMode != nil {
		c.DisplayMode = f.DisplayMode
	}
	if f.LogoPath != nil {
		c.LogoPath = f.LogoPath
	}
	if f.BannerPath != nil {
		c.BannerPath = f.BannerPath
	}
}
