package schema

import "math"

// DefaultPageSize is the number of contacts shown per page.
const DefaultPageSize = 10

// PageRequest is a 1-indexed page selection.
type PageRequest struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
}

// NewPageRequest normalizes a page selection: numbers below 1 become 1 and
// sizes below 1 become DefaultPageSize. Numbers whose offset would overflow int
// are capped.
func NewPageRequest(number, size int) PageRequest {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if limit := math.MaxInt / size; number > limit {
		number = limit
	}
	return PageRequest{Number: number, Size: size}
}

// Offset is the number of items preceding the page.
func (r PageRequest) Offset() int {
	return (r.Number - 1) * r.Size
}

// Bounds returns the [lo, hi) slice bounds of the page within total items.
func (r PageRequest) Bounds(total int) (lo, hi int) {
	lo = min(r.Offset(), total)
	hi = min(lo+r.Size, total)
	return lo, hi
}

// Page is one slice of an ordered result set plus what a caller needs to render
// pagination controls.
type Page[T any] struct {
	Items      []T `json:"items"`
	PageNumber int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPage builds a page for req; items must already be sliced.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		PageNumber: req.Number,
		PageSize:   req.Size,
		TotalCount: total,
	}
}

// EmptyPage is a page with no items and no total.
func EmptyPage[T any](req PageRequest) Page[T] {
	return NewPage[T](nil, req, 0)
}

// PageCount is the number of pages needed for TotalCount items.
func (p Page[T]) PageCount() int {
	if p.PageSize < 1 || p.TotalCount == 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}

func (p Page[T]) HasPrevious() bool {
	return p.PageNumber > 1
}

func (p Page[T]) HasNext() bool {
	return p.PageNumber < p.PageCount()
}
