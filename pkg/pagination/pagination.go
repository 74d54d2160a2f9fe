// Package pagination 把一个可计数、可切片的查询包装成分页结果
package pagination

import (
	"context"
	"strconv"

	"ddash-backend/pkg/apperrors"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Params 分页参数
type Params struct {
	Page     int
	PageSize int
}

// Validate checks page >= 1 and 1 <= page_size <= 50
func (p Params) Validate() error {
	if p.Page < 1 {
		return apperrors.Validation("page", "page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return apperrors.Validation("page_size", "page_size must be between 1 and 50")
	}
	return nil
}

// ParseParams 解析查询字符串中的 page / page_size，空值使用默认值
func ParseParams(page, pageSize string) (Params, error) {
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			return Params{}, apperrors.Validation("page", "page must be an integer")
		}
		p.Page = n
	}
	if pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			return Params{}, apperrors.Validation("page_size", "page_size must be an integer")
		}
		p.PageSize = n
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Query is a filtered, ordered result set.
// Count must apply the same filters as Fetch, without ordering or limits.
type Query[T any] interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, limit, offset int) ([]T, error)
}

// Page 分页结果
type Page[T any] struct {
	Items       []T `json:"items"`
	Count       int `json:"count"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
}

// TotalPages = ceil(totalItems / pageSize); zero items means zero pages
func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// Paginate counts the query, rejects pages past the end, then fetches one page.
// An empty result set yields an empty page for any requested page number.
func Paginate[T any](ctx context.Context, q Query[T], p Params) (*Page[T], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := TotalPages(total, p.PageSize)
	if totalPages != 0 && p.Page > totalPages {
		return nil, apperrors.InvalidPage(p.Page, totalPages)
	}

	items := []T{}
	if total > 0 {
		fetched, err := q.Fetch(ctx, p.PageSize, (p.Page-1)*p.PageSize)
		if err != nil {
			return nil, err
		}
		if fetched != nil {
			items = fetched
		}
	}

	return &Page[T]{
		Items:       items,
		Count:       len(items),
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		PageSize:    p.PageSize,
		TotalItems:  total,
	}, nil
}
