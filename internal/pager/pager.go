// Package pager provides offset-based pagination over in-memory slices.
package pager

// Page is one window into a larger list
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// Slice returns the window [offset, offset+limit) of items. An offset past the
// end yields an empty page with HasMore false; it is not an error. Negative
// offsets clamp to zero and non-positive limits yield an empty page.
func Slice[T any](items []T, offset, limit int) Page[T] {
	if offset < 0 {
		offset = 0
	}
	page := Page[T]{
		Items:  []T{},
		Total:  len(items),
		Offset: offset,
		Limit:  limit,
	}
	if limit <= 0 || offset >= len(items) {
		return page
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page.Items = items[offset:end]
	page.HasMore = end < len(items)
	return page
}

// Window describes a page already cut by the data source (e.g. SQL LIMIT and
// OFFSET) given the total row count.
func Window[T any](items []T, total, offset, limit int) Page[T] {
	if offset < 0 {
		offset = 0
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(items) < total,
	}
}

// ShownRange returns the 1-based positions covered by the page, both zero for
// an empty page
func (p Page[T]) ShownRange() (first, last int) {
	if len(p.Items) == 0 {
		return 0, 0
	}
	return p.Offset + 1, p.Offset + len(p.Items)
}
