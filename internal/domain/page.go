package domain

import (
	"fmt"
	"strings"
)

// Defaults for list requests.
const (
	DefaultPage    = 0
	DefaultSize    = 10
	DefaultSortBy  = "id"
	DefaultSortDir = Ascending
	MaxPageSize    = 1000
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts "asc"/"desc" in any case; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return "", fmt.Errorf("page: unknown sort direction %q: %w", s, ErrInvalidArgument)
	}
}

// CustomerSortFields lists the columns customers can be ordered by.
var CustomerSortFields = map[string]struct{}{ //nolint:gochecknoglobals // read-only whitelist
	"id":   {},
	"name": {},
}

type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir Direction
}

// NewPageRequest validates paging input. An empty sortBy falls back to the
// default column.
func NewPageRequest(page, size int, sortBy, sortDir string) (PageRequest, error) {
	if page < 0 {
		return PageRequest{}, fmt.Errorf("page: page must be >= 0, got %d: %w", page, ErrInvalidArgument)
	}
	if size <= 0 || size > MaxPageSize {
		return PageRequest{}, fmt.Errorf("page: size must be 1-%d, got %d: %w", MaxPageSize, size, ErrInvalidArgument)
	}

	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	if _, ok := CustomerSortFields[sortBy]; !ok {
		return PageRequest{}, fmt.Errorf("page: cannot sort by %q: %w", sortBy, ErrInvalidArgument)
	}

	dir, err := ParseDirection(sortDir)
	if err != nil {
		return PageRequest{}, err
	}

	return PageRequest{Page: page, Size: size, SortBy: sortBy, SortDir: dir}, nil
}

// DefaultPageRequest returns the first page with default ordering.
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: DefaultPage, Size: DefaultSize, SortBy: DefaultSortBy, SortDir: DefaultSortDir}
}

// Offset is the number of rows skipped before this page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

type Page[T any] struct {
	Items         []T   `json:"data"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	IsFirst       bool  `json:"is_first"`
	IsLast        bool  `json:"is_last"`
	HasNext       bool  `json:"has_next"`
	HasPrevious   bool  `json:"has_previous"`
}

// NewPage derives the paging flags from the total row count.
func NewPage[T any](items []T, req PageRequest, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	hasNext := req.Page+1 < totalPages

	return &Page[T]{
		Items:         items,
		TotalElements: total,
		TotalPages:    totalPages,
		Page:          req.Page,
		Size:          req.Size,
		IsFirst:       req.Page == 0,
		IsLast:        !hasNext,
		HasNext:       hasNext,
		HasPrevious:   req.Page > 0,
	}
}
