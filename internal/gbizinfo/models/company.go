// Package models defines the canonical gBizINFO domain records: companies,
// result pages, the search query and the detail response schema.
package models

import "strings"

// Company is the canonical record produced from one upstream company object.
type Company struct {
	// CorporateNumber is the 13-digit identifier; empty when upstream omitted it.
	CorporateNumber string `json:"corporate_number"`
	// Name is the registered name; empty when upstream omitted it.
	Name       string  `json:"name"`
	Prefecture *string `json:"prefecture"`
	City       *string `json:"city"`
	Address    *string `json:"address"`
	PostalCode *string `json:"postal_code"`
	Industry   *string `json:"industry"`
}

// PaginatedResult is one page of search results.
type PaginatedResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	From  int `json:"from"`
	Size  int `json:"size"`
}

// UpdateInfoPage is one page of an update feed.
type UpdateInfoPage struct {
	Items      []Company `json:"items"`
	PageNumber int       `json:"pageNumber"`
	TotalCount int       `json:"totalCount"`
	TotalPage  int       `json:"totalPage"`
}

// CompanyListItem is the compact listing view of a Company.
type CompanyListItem struct {
	CorporateNumber string  `json:"corporateNumber"`
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	PostalCode      *string `json:"postalCode,omitempty"`
}

// ListItem joins prefecture, city and address into a single address line.
func (c Company) ListItem() CompanyListItem {
	var b strings.Builder
	for _, part := range []*string{c.Prefecture, c.City, c.Address} {
		if part != nil {
			b.WriteString(*part)
		}
	}
	return CompanyListItem{
		CorporateNumber: c.CorporateNumber,
		Name:            c.Name,
		Address:         b.String(),
		PostalCode:      c.PostalCode,
	}
}

// ListPage presents a search page as list items.
func ListPage(page *PaginatedResult[Company]) *PaginatedResult[CompanyListItem] {
	items := make([]CompanyListItem, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, c.ListItem())
	}
	return &PaginatedResult[CompanyListItem]{
		Items: items,
		Total: page.Total,
		From:  page.From,
		Size:  page.Size,
	}
}
