package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads committed state straight from the pool and runs mutations in
// READ COMMITTED transactions.  Row locks carry the consistency, so the
// weaker isolation level only avoids needless gap locks.
type Store struct {
	db *sql.DB
}

var _ booking.Store = (*Store)(nil)

// NewStore returns a Store bound to the provided database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx begins a transaction, runs fn and commits when fn returns nil.
// The transaction is rolled back on every other path.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapError(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	if err := fn(ctx, &Tx{tx: sqlTx}); err != nil {
		return mapError(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError(err)
	}
	committed = true
	return nil
}

// Tx implements booking.Tx on top of *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

var _ booking.Tx = (*Tx)(nil)

// dateArg renders a calendar date for DATE columns.
func dateArg(t time.Time) string { return booking.FormatDate(t) }

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}

// placeholders repeats group n times, comma separated: "(?, ?), (?, ?)".
func placeholders(n int, group string) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat(group+", ", n), ", ")
}
