package postgres

import (
	"context"

	"github.com/maloquacious/tokenstore/internal/logger"
	"github.com/maloquacious/tokenstore/internal/store"
)

// Migrator brings a borrowed session's database to the current token schema.
//
// Statements are issued one at a time, outside any transaction, each
// self-committing. Every step is guarded so the whole routine may be re-run
// at will; a run interrupted part way leaves a state the next run picks up
// from. Two Migrators must not run against the same database at once: the
// column patcher probes and then alters, and a concurrent run can make the
// ALTER fail with a KindDuplicate error.
type Migrator struct {
	conn Conn
	log  logger.Logger
}

// NewMigrator returns a Migrator over conn. A nil log falls back to logger.Default.
func NewMigrator(conn Conn, log logger.Logger) *Migrator {
	if log == nil {
		log = logger.Default
	}
	return &Migrator{conn: conn, log: log}
}

// Migrate runs CreateTables, RemoveUpdatedAtTrigger and
// AddNewFieldsIfNotExist in that order, stopping at the first failure.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.CreateTables(ctx); err != nil {
		return err
	}
	if err := m.RemoveUpdatedAtTrigger(ctx); err != nil {
		return err
	}
	return m.AddNewFieldsIfNotExist(ctx)
}

// CreateTables creates tokens, its indexes and sync_status when absent, then
// drops the legacy updated_at trigger and function so that a database
// carrying them loses them on its first encounter with this code.
func (m *Migrator) CreateTables(ctx context.Context) error {
	steps := []struct {
		op   string
		stmt string
	}{
		{"create table tokens", createTokensTable},
		{"create index " + IndexTokensCreatedAt, createTokensCreatedAtIndex},
		{"create index " + IndexTokensUpdatedAt, createTokensUpdatedAtIndex},
		{"create table sync_status", createSyncStatusTable},
		{"drop trigger " + LegacyTrigger, dropLegacyTrigger},
		{"drop function " + LegacyFunction, dropLegacyFunction},
	}
	for _, s := range steps {
		if err := m.exec(ctx, s.op, s.stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddNewFieldsIfNotExist adds every LateColumns entry tokens lacks, in
// order. A column already present is left alone even if its type differs.
func (m *Migrator) AddNewFieldsIfNotExist(ctx context.Context) error {
	for _, col := range LateColumns {
		exists, err := m.ColumnExists(ctx, TokensTable, col.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := m.exec(ctx, "add column "+col.Name, addColumnStatement(col)); err != nil {
			return err
		}
		m.log.With("column", col.Name).Info("Added %s column to tokens table", col.Name)
	}
	return nil
}

// RemoveUpdatedAtTrigger drops the legacy trigger on tokens and its backing
// function. Either may already be gone.
func (m *Migrator) RemoveUpdatedAtTrigger(ctx context.Context) error {
	if err := m.exec(ctx, "drop trigger "+LegacyTrigger, dropLegacyTrigger); err != nil {
		return err
	}
	if err := m.exec(ctx, "drop function "+LegacyFunction, dropLegacyFunction); err != nil {
		return err
	}
	m.log.Info("Removed updated_at trigger and function")
	return nil
}

// DropTables drops sync_status, tokens and the legacy function, in that order.
// Meant for tests and reset tooling.
func (m *Migrator) DropTables(ctx context.Context) error {
	if err := m.exec(ctx, "drop table sync_status", dropSyncStatusTable); err != nil {
		return err
	}
	if err := m.exec(ctx, "drop table tokens", dropTokensTable); err != nil {
		return err
	}
	return m.exec(ctx, "drop function "+LegacyFunction, dropLegacyFunction)
}

// Inspect probes the catalog for every table, late column, index and
// legacy object the routine manages.
func (m *Migrator) Inspect(ctx context.Context) (store.Report, error) {
	r := store.Report{
		MissingColumns: []string{},
		Indexes:        make(map[string]bool, len(TokensIndexes)),
	}

	var err error
	if r.TokensTable, err = m.TableExists(ctx, TokensTable); err != nil {
		return store.Report{}, err
	}
	if r.SyncStatusTable, err = m.TableExists(ctx, SyncStatusTable); err != nil {
		return store.Report{}, err
	}

	if r.TokensTable {
		for _, col := range LateColumns {
			ok, err := m.ColumnExists(ctx, TokensTable, col.Name)
			if err != nil {
				return store.Report{}, err
			}
			if !ok {
				r.MissingColumns = append(r.MissingColumns, col.Name)
			}
		}
		if r.LegacyTrigger, err = m.TriggerExists(ctx, TokensTable, LegacyTrigger); err != nil {
			return store.Report{}, err
		}
	} else {
		for _, col := range LateColumns {
			r.MissingColumns = append(r.MissingColumns, col.Name)
		}
	}

	for _, idx := range TokensIndexes {
		if r.Indexes[idx], err = m.IndexExists(ctx, idx); err != nil {
			return store.Report{}, err
		}
	}

	if r.LegacyFunction, err = m.FunctionExists(ctx, LegacyFunction); err != nil {
		return store.Report{}, err
	}
	return r, nil
}

// CheckState returns the schema state derived from Inspect.
func (m *Migrator) CheckState(ctx context.Context) (store.SchemaState, error) {
	r, err := m.Inspect(ctx)
	if err != nil {
		return store.StateAbsent, err
	}
	return r.State(), nil
}

func (m *Migrator) exec(ctx context.Context, op, stmt string) error {
	m.log.Debug("%s", op)
	if _, err := m.conn.Exec(ctx, stmt); err != nil {
		return store.Wrap(op, err)
	}
	return nil
}
