package storefront

import (
	"slices"
	"strings"
)

// PageSizes are the page sizes offered by product listings.
var PageSizes = []int{10, 20, 50, 100}

// DefaultPageSize is used when ListParams.Size is not one of PageSizes.
const DefaultPageSize = 10

// Sort fields accepted by /products.
const (
	OrderByCreatedAt = "createdAt"
	OrderByPrice     = "price"
	OrderByName      = "name"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListParams filters and pages GET /products. Pages are 1-based.
type ListParams struct {
	Page      int
	Size      int
	Search    string
	OrderBy   string
	OrderType string
}

// Normalize fills defaults: page 1, size 10, newest first.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if !slices.Contains(PageSizes, p.Size) {
		p.Size = DefaultPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	switch p.OrderBy {
	case OrderByCreatedAt, OrderByPrice, OrderByName:
	default:
		p.OrderBy = OrderByCreatedAt
	}
	switch p.OrderType {
	case OrderAsc, OrderDesc:
	default:
		p.OrderType = OrderDesc
	}
	return p
}

// Params renders p as query parameters. An empty search is omitted.
func (p ListParams) Params() map[string]any {
	p = p.Normalize()
	out := map[string]any{
		"page":      p.Page,
		"size":      p.Size,
		"orderBy":   p.OrderBy,
		"orderType": p.OrderType,
	}
	if p.Search != "" {
		out["search"] = p.Search
	}
	return out
}

// TotalPages is ceil(total/size), at least 1.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Pager moves through a listing whose total is known.
type Pager struct {
	Page  int
	Size  int
	Total int
}

// NewPager starts at params' page.
func NewPager(params ListParams, total int) Pager {
	params = params.Normalize()
	return Pager{Page: params.Page, Size: params.Size, Total: total}
}

// Pages returns the page count.
func (p Pager) Pages() int { return TotalPages(p.Total, p.Size) }

// HasNext reports whether a page follows the current one.
func (p Pager) HasNext() bool { return p.Page < p.Pages() }

// HasPrev reports whether a page precedes the current one.
func (p Pager) HasPrev() bool { return p.Page > 1 }

// First returns page 1.
func (p Pager) First() Pager { p.Page = 1; return p }

// Last returns the final page.
func (p Pager) Last() Pager { p.Page = p.Pages(); return p }

// Next returns the following page, staying on the last one.
func (p Pager) Next() Pager {
	if p.HasNext() {
		p.Page++
	}
	return p
}

// Prev returns the preceding page, staying on the first one.
func (p Pager) Prev() Pager {
	if p.HasPrev() {
		p.Page--
	}
	return p
}

// Apply copies the page and size onto params.
func (p Pager) Apply(params ListParams) ListParams {
	params.Page = p.Page
	params.Size = p.Size
	return params
}
