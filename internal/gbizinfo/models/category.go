package models

import (
	"fmt"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
)

// Category is a detail sub-resource of a company record. The zero value
// addresses the basic record itself.
type Category string

const (
	CategoryBasic         Category = ""
	CategoryCertification Category = "certification"
	CategoryCommendation  Category = "commendation"
	CategoryFinance       Category = "finance"
	CategoryPatent        Category = "patent"
	CategoryProcurement   Category = "procurement"
	CategorySubsidy       Category = "subsidy"
	CategoryWorkplace     Category = "workplace"
)

// Categories lists every detail category in upstream order, basic first.
var Categories = []Category{
	CategoryBasic,
	CategoryCertification,
	CategoryCommendation,
	CategoryFinance,
	CategoryPatent,
	CategoryProcurement,
	CategorySubsidy,
	CategoryWorkplace,
}

// ParseCategory accepts any known category name, including "" for basic.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", e.NewValidationError(e.ErrInvalidInput, "category", fmt.Sprintf("unknown category %q", s))
}

// Label names the category for logs and events.
func (c Category) Label() string {
	if c == CategoryBasic {
		return "basic"
	}
	return string(c)
}
