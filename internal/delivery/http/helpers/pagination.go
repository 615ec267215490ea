package helpers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"eventease/internal/domain"
)

// ParsePagination reads ?page= and ?page_size=. Missing or non-numeric values count
// as unset and are normalised by domain.NewPaginationParams.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	return domain.NewPaginationParams(queryInt(q, "page"), queryInt(q, "page_size"))
}

func queryInt(q url.Values, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return 0
	}
	return v
}

// PaginationMeta accompanies a paged list response.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginationMeta describes page p of a list holding total rows.
func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	pages := p.Pages(total)
	return PaginationMeta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
	}
}
