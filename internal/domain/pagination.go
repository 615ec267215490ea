package domain

// Page sizes accepted by paged list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams selects one page of a list. Pages are 1-based.
type PaginationParams struct {
	Page     int
	PageSize int
}

// NewPaginationParams normalises a requested page: a page below 1 is the first page,
// a size below 1 falls back to DefaultPageSize and sizes above MaxPageSize are capped.
func NewPaginationParams(page, size int) PaginationParams {
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return PaginationParams{Page: page, PageSize: size}
}

// Limit is the number of rows a repository should return for the page.
func (p PaginationParams) Limit() int {
	return max(p.PageSize, 0)
}

// Offset is the number of rows skipped before the page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Pages returns how many pages of this size hold total rows.
func (p PaginationParams) Pages(total int) int {
	if p.PageSize < 1 || total < 1 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}
