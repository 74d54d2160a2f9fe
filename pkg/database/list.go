package database

import (
	"context"
	"fmt"
	"strings"
)

// listQuery composes FROM/WHERE once and renders both the count and the page statement.
// It implements pagination.Query.
type listQuery[T any] struct {
	s       *SQLDatabase
	columns string
	from    string
	where   []string
	args    []any
	orderBy string
	scan    func(scanner) (T, error)
}

func newListQuery[T any](s *SQLDatabase, columns, from, orderBy string, scan func(scanner) (T, error)) *listQuery[T] {
	return &listQuery[T]{s: s, columns: columns, from: from, orderBy: orderBy, scan: scan}
}

// filter appends one AND condition
func (q *listQuery[T]) filter(cond string, args ...any) *listQuery[T] {
	q.where = append(q.where, cond)
	q.args = append(q.args, args...)
	return q
}

func (q *listQuery[T]) whereClause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

// Count 与 Fetch 使用相同的过滤条件，不带排序与分页
func (q *listQuery[T]) Count(ctx context.Context) (int, error) {
	var n int
	stmt := "SELECT COUNT(*) FROM " + q.from + q.whereClause()
	if err := q.s.queryRow(ctx, stmt, q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

func (q *listQuery[T]) Fetch(ctx context.Context, limit, offset int) ([]T, error) {
	stmt := "SELECT " + q.columns + " FROM " + q.from + q.whereClause()
	if q.orderBy != "" {
		stmt += " ORDER BY " + q.orderBy
	}
	stmt += " LIMIT ? OFFSET ?"

	args := append(append([]any{}, q.args...), limit, offset)
	rows, err := q.s.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return items, nil
}
