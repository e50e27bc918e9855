// Package postgres bootstraps and maintains the token schema on a
// PostgreSQL-family database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/maloquacious/tokenstore/internal/config"
	"github.com/maloquacious/tokenstore/internal/logger"
	"github.com/maloquacious/tokenstore/internal/store"
)

var errNotOpened = errors.New("database not opened")

// PostgresStore implements the Store interface over a pgx connection pool.
type PostgresStore struct {
	cfg  config.Config
	log  logger.Logger
	pool *pgxpool.Pool
	m    *Migrator
}

var _ store.Store = (*PostgresStore)(nil)

// New creates a new PostgresStore. Nothing is dialed until Open.
func New(cfg config.Config, log logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.Default
	}
	return &PostgresStore{cfg: cfg, log: log}
}

// Connect opens a small pgx pool for cfg and pings it. Driver messages are
// forwarded to log.
func Connect(ctx context.Context, cfg config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	// The routine issues one statement at a time.
	poolCfg.MaxConns = 2
	poolCfg.ConnConfig.Logger = &pgxLogger{log: log}
	poolCfg.ConnConfig.LogLevel = pgx.LogLevelInfo
	if cfg.LogLevel == "debug" || cfg.LogLevel == "trace" {
		poolCfg.ConnConfig.LogLevel = pgx.LogLevelDebug
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, store.Wrap("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, store.Wrap("ping", err)
	}
	return pool, nil
}

// Open dials the database.
func (s *PostgresStore) Open(ctx context.Context) error {
	pool, err := Connect(ctx, s.cfg, s.log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.pool = pool
	s.m = NewMigrator(pool, s.log)
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
		s.m = nil
	}
	return nil
}

func (s *PostgresStore) migrator() (*Migrator, error) {
	if s.m == nil {
		return nil, errNotOpened
	}
	return s.m, nil
}

// Migrate brings the database to the current schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	return m.Migrate(ctx)
}

// CreateTables creates both tables and their indexes if absent.
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	return m.CreateTables(ctx)
}

// AddNewFieldsIfNotExist adds the late tokens columns an older database lacks.
func (s *PostgresStore) AddNewFieldsIfNotExist(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	return m.AddNewFieldsIfNotExist(ctx)
}

// RemoveUpdatedAtTrigger drops the legacy updated_at trigger and its function.
func (s *PostgresStore) RemoveUpdatedAtTrigger(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	return m.RemoveUpdatedAtTrigger(ctx)
}

// DropTables drops both tables and the legacy function.
func (s *PostgresStore) DropTables(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	return m.DropTables(ctx)
}

// Inspect reports what the catalog currently holds.
func (s *PostgresStore) Inspect(ctx context.Context) (store.Report, error) {
	m, err := s.migrator()
	if err != nil {
		return store.Report{}, err
	}
	return m.Inspect(ctx)
}

// CheckState returns the current schema state.
func (s *PostgresStore) CheckState(ctx context.Context) (store.SchemaState, error) {
	m, err := s.migrator()
	if err != nil {
		return store.StateAbsent, err
	}
	return m.CheckState(ctx)
}

// pgxLogger forwards pgx driver messages to a Logger.
type pgxLogger struct {
	log logger.Logger
}

func (l *pgxLogger) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	entry := l.log
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		// Arguments may carry access tokens.
		if k == "args" {
			continue
		}
		entry = entry.With(k, data[k])
	}

	switch level {
	case pgx.LogLevelError:
		entry.Error("pgx: %s", msg)
	case pgx.LogLevelWarn:
		entry.Warn("pgx: %s", msg)
	default:
		entry.Debug("pgx: %s", msg)
	}
}
