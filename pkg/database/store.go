package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// dialect 记录方言差异：占位符风格与迁移目录
type dialect struct {
	name          string // golang-migrate driver name
	driverName    string // database/sql driver name
	numberedBinds bool
}

var (
	dialectPostgres = dialect{name: "postgres", driverName: "postgres", numberedBinds: true}
	dialectPgx      = dialect{name: "postgres", driverName: "pgx", numberedBinds: true}
	dialectSQLite   = dialect{name: "sqlite3", driverName: "sqlite3"}
)

// rebind rewrites ? placeholders into $1..$n for PostgreSQL
func (d dialect) rebind(query string) string {
	if !d.numberedBinds {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLDatabase PostgreSQL 与 SQLite 共用的 database/sql 实现
type SQLDatabase struct {
	db      *sql.DB
	q       queryer
	tx      *sql.Tx
	dialect dialect
	dsn     string
}

func newSQLDatabase(db *sql.DB, d dialect, dsn string) *SQLDatabase {
	return &SQLDatabase{db: db, q: db, dialect: d, dsn: dsn}
}

// DB exposes the underlying pool for migrations and diagnostics
func (s *SQLDatabase) DB() *sql.DB { return s.db }

// Dialect returns "postgres" or "sqlite3"
func (s *SQLDatabase) Dialect() string { return s.dialect.name }

func (s *SQLDatabase) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDatabase) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDatabase) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// exists runs a SELECT 1 ... existence check
func (s *SQLDatabase) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.queryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// execAffecting executes a write and returns ErrNotFound when no row matched
func (s *SQLDatabase) execAffecting(ctx context.Context, op string, query string, args ...any) error {
	result, err := s.exec(ctx, query, args...)
	if err != nil {
		return mapWriteError(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// WithTx 开启事务；嵌套调用复用外层事务
func (s *SQLDatabase) WithTx(ctx context.Context, fn func(tx DatabaseInterface) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStore := &SQLDatabase{db: s.db, q: tx, tx: tx, dialect: s.dialect, dsn: s.dsn}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			fmt.Printf("⚠️  Rollback failed: %v\n", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// HealthCheck 健康检查
func (s *SQLDatabase) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close 关闭连接；事务视图上调用无效果
func (s *SQLDatabase) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// mapWriteError wraps constraint violations with ErrConflict
func mapWriteError(op string, err error) error {
	if isConstraintViolation(err) {
		return fmt.Errorf("%s: %w (%w)", op, ErrConflict, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" || pqErr.Code == "23503"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" || pgErr.Code == "23503"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// isInvalidTextRepresentation reports Postgres rejecting a malformed value such as a non-UUID id
func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "22P02"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}

// notFound maps sql.ErrNoRows and malformed ids onto ErrNotFound
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
