package importer

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"category-import-backend/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	ErrCodeInvalidAttribute = "invalid_attribute"
	ErrCodeDuplicateSlug    = "duplicate_slug"
	ErrCodeParentNotFound   = "parent_not_found"
)

var messages = map[string]string{
	ErrCodeDuplicateSlug:  "Slug is duplicated within the import batch.",
	ErrCodeParentNotFound: "Parent category not found.",
}

// rowRules holds the structural rules; the col tag is the source column
// reported in skip records. Status is checked as written in the file.
type rowRules struct {
	Name   string `col:"name" validate:"required"`
	Slug   string `col:"slug" validate:"required"`
	Status string `col:"status" validate:"required,oneof=0 1"`
}

var validate = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("col")
	})
	return v
}

// ParentResolver maps a parent_id cell to an existing category id. child is
// the slug of the row being checked; a reference that lands on the child
// itself is reported as not found.
type ParentResolver interface {
	ResolveParent(ctx context.Context, ref, child string) (uint, bool, error)
}

// RowValidator checks rows of a single batch. It remembers accepted slugs,
// so a new validator must be used for every batch run.
type RowValidator struct {
	parents ParentResolver
	slugs   map[string]struct{}
	skips   []models.SkipRecord
}

func NewRowValidator(parents ParentResolver) *RowValidator {
	return &RowValidator{
		parents: parents,
		slugs:   make(map[string]struct{}),
	}
}

// ValidateRow reports whether row can be written. Rejections are recorded as
// skip records; the returned error is reserved for store failures.
func (v *RowValidator) ValidateRow(ctx context.Context, row Row, rowNumber int) (bool, error) {
	cr := DecodeRow(row)

	rules := rowRules{Name: cr.Name, Slug: cr.Slug, Status: row[ColStatus]}
	if err := validate.Struct(rules); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return false, err
		}
		for _, fe := range verrs {
			v.skip(rowNumber, ErrCodeInvalidAttribute, fe.Field(), attributeMessage(fe))
		}
		return false, nil
	}

	if _, seen := v.slugs[cr.Slug]; seen {
		v.skip(rowNumber, ErrCodeDuplicateSlug, ColSlug, messages[ErrCodeDuplicateSlug])
		return false, nil
	}
	v.slugs[cr.Slug] = struct{}{}

	if cr.ParentID != "" {
		_, found, err := v.parents.ResolveParent(ctx, cr.ParentID, cr.Slug)
		if err != nil {
			return false, err
		}
		if !found {
			v.skip(rowNumber, ErrCodeParentNotFound, ColParentID, messages[ErrCodeParentNotFound])
			return false, nil
		}
	}

	return true, nil
}

// Skips returns the rejections recorded so far, in row order.
func (v *RowValidator) Skips() []models.SkipRecord {
	return v.skips
}

func (v *RowValidator) skip(rowNumber int, code, column, message string) {
	v.skips = append(v.skips, models.SkipRecord{
		RowNumber:  rowNumber,
		ErrorCode:  code,
		ColumnName: column,
		Message:    message,
	})
}

func attributeMessage(fe validator.FieldError) string {
	attr := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", attr)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", attr)
	default:
		return fmt.Sprintf("The %s is invalid.", attr)
	}
}
