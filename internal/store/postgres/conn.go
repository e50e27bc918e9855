package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// Conn is the slice of a database session the schema routine borrows.
// *pgx.Conn, *pgxpool.Pool and pgx.Tx satisfy it directly; wrap a
// database/sql handle with FromSQL.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// SQLExecQuerier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type SQLExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// FromSQL adapts a database/sql handle, opened with any PostgreSQL driver,
// to Conn. Placeholders stay in $n form. database/sql does not expose the
// server's command tag, so Exec always returns an empty one.
func FromSQL(db SQLExecQuerier) Conn {
	return sqlConn{db: db}
}

type sqlConn struct {
	db SQLExecQuerier
}

func (c sqlConn) Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error) {
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.CommandTag{}, nil
}

func (c sqlConn) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}
