// Package listutil parses list-view query parameters and pages in-memory rows.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 20

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100}

// Spec names the sort columns and filters a list view accepts.
type Spec struct {
	SortColumns []string // first entry is the default
	Filters     map[string][]string
}

// Params is a parsed list request.
type Params struct {
	Page    int
	PerPage int
	Search  string
	Sort    string
	Desc    bool
	Filters map[string]string
}

// Parse extracts paging, search, sort and filter values from q.
// PRE: none
// POST: Page >= 1; PerPage is one of PerPageOptions; Sort and Filters only hold allowed values
func Parse(q url.Values, spec Spec) Params {
	p := Params{
		Page:    1,
		PerPage: DefaultPerPage,
		Search:  strings.TrimSpace(q.Get("q")),
		Desc:    q.Get("dir") == "desc",
		Filters: map[string]string{},
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && slices.Contains(PerPageOptions, n) {
		p.PerPage = n
	}
	if len(spec.SortColumns) > 0 {
		p.Sort = spec.SortColumns[0]
		if s := q.Get("sort"); slices.Contains(spec.SortColumns, s) {
			p.Sort = s
		}
	}
	for key, allowed := range spec.Filters {
		if v := q.Get(key); slices.Contains(allowed, v) {
			p.Filters[key] = v
		}
	}
	return p
}

// Query renders p back into URL values, overriding the page number.
func (p Params) Query(page int) url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("q", p.Search)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Desc {
		q.Set("dir", "desc")
	}
	if p.PerPage != DefaultPerPage {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	for k, v := range p.Filters {
		q.Set(k, v)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// Matches reports whether any field contains the search term, ignoring case.
func (p Params) Matches(fields ...string) bool {
	if p.Search == "" {
		return true
	}
	term := strings.ToLower(p.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: TotalPages >= 1; Page is clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	return PageInfo{
		Page:       min(max(page, 1), totalPages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number, or 0 for an empty list.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the current page.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// PageNumbers returns at most 5 page numbers centred on the current page.
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	start := max(p.Page-maxButtons/2, 1)
	end := start + maxButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = max(end-maxButtons+1, 1)
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination reports whether more than one page exists.
func (p PageInfo) ShowPagination() bool {
	return p.TotalPages > 1
}

// Paginate returns the rows of the requested page.
// PRE: rows are already filtered and sorted
// POST: len(result) <= p.PerPage
func Paginate[T any](rows []T, p Params) ([]T, PageInfo) {
	info := NewPageInfo(p.Page, p.PerPage, len(rows))
	return rows[info.Offset():info.EndRow()], info
}
