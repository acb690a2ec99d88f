package pagination

import (
	"math"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination represents pagination metadata
type Pagination struct {
	Current int   `json:"current" example:"1"`
	Pages   int   `json:"pages" example:"3"`
	Total   int64 `json:"total" example:"25"`
	Limit   int   `json:"limit" example:"10"`
	HasNext bool  `json:"hasNext" example:"true"`
	HasPrev bool  `json:"hasPrev" example:"false"`
	Offset  int   `json:"-"`
}

// Query binds page/limit query parameters.
type Query struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

// Normalize clamps the query into the accepted range.
func (q *Query) Normalize() {
	q.Page, q.Limit = clamp(q.Page, q.Limit)
}

// Skip returns the number of documents to skip for this page.
func (q Query) Skip() int64 {
	page, limit := clamp(q.Page, q.Limit)
	return int64((page - 1) * limit)
}

// New creates a new pagination instance
func New(page, limit int, total int64) *Pagination {
	page, limit = clamp(page, limit)

	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		pages = 1
	}

	return &Pagination{
		Current: page,
		Pages:   pages,
		Total:   total,
		Limit:   limit,
		HasNext: page < pages,
		HasPrev: page > 1,
		Offset:  (page - 1) * limit,
	}
}

// FromRequest creates a query from raw HTTP request parameters
func FromRequest(pageStr, limitStr string) Query {
	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(limitStr)
	page, limit = clamp(page, limit)
	return Query{Page: page, Limit: limit}
}

// GetNextPage returns the next page number, or 0 if no next page
func (p *Pagination) GetNextPage() int {
	if p.HasNext {
		return p.Current + 1
	}
	return 0
}

// GetPrevPage returns the previous page number, or 0 if no previous page
func (p *Pagination) GetPrevPage() int {
	if p.HasPrev {
		return p.Current - 1
	}
	return 0
}

func clamp(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
