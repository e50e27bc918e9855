package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/maloquacious/tokenstore/internal/store"
)

// TableExists reports whether the named table exists in the public schema.
func (m *Migrator) TableExists(ctx context.Context, name string) (bool, error) {
	return m.exists(ctx, "probe table "+name, tableExistsQuery, name)
}

// ColumnExists reports whether table has the named column in the public schema.
func (m *Migrator) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	return m.exists(ctx, "probe column "+table+"."+column, columnExistsQuery, table, column)
}

// IndexExists reports whether the named index exists in the public schema.
func (m *Migrator) IndexExists(ctx context.Context, name string) (bool, error) {
	return m.exists(ctx, "probe index "+name, indexExistsQuery, name)
}

// TriggerExists reports whether the named trigger is installed on table.
func (m *Migrator) TriggerExists(ctx context.Context, table, trigger string) (bool, error) {
	return m.exists(ctx, "probe trigger "+trigger, triggerExistsQuery, table, trigger)
}

// FunctionExists reports whether a function with the given name exists in
// the public schema, whatever its signature.
func (m *Migrator) FunctionExists(ctx context.Context, name string) (bool, error) {
	return m.exists(ctx, "probe function "+name, functionExistsQuery, name)
}

// CheckTablesExist reports whether the tokens table exists.
func (m *Migrator) CheckTablesExist(ctx context.Context) (bool, error) {
	return m.TableExists(ctx, TokensTable)
}

// exists runs a SELECT EXISTS probe. A probe that yields no row is read as
// "absent"; whatever would be created next is guarded anyway.
func (m *Migrator) exists(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	var ok bool
	err := m.conn.QueryRow(ctx, query, args...).Scan(&ok)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, store.Wrap(op, err)
	}
	return ok, nil
}
