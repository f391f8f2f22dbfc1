package utils

const (
	// DefaultPageSize applies when the caller sends no or a non-positive limit
	DefaultPageSize = 10
	// MaxPageSize bounds one history page
	MaxPageSize = 100
)

// PaginationParams holds pagination request parameters
type PaginationParams struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// PaginationMeta holds pagination response metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

// GetPaginationParams clamps page and limit. History is never returned unbounded.
func GetPaginationParams(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return PaginationParams{Page: page, Limit: limit}
}

// CalculateOffset returns the SQL offset
func (p PaginationParams) CalculateOffset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// CalculateMeta generates pagination metadata for a clamped page
func CalculateMeta(totalCount int64, page, limit int) PaginationMeta {
	params := GetPaginationParams(page, limit)
	pages := int((totalCount + int64(params.Limit) - 1) / int64(params.Limit))
	return PaginationMeta{
		Page:       params.Page,
		Limit:      params.Limit,
		TotalCount: totalCount,
		TotalPages: pages,
		HasNext:    params.Page < pages,
	}
}
