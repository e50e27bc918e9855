package store

import "context"

// SchemaState represents how far the token schema has been brought along.
type SchemaState int

const (
	StateAbsent SchemaState = iota // tokens or sync_status missing
	StateBase                      // both tables exist, some late column or index missing
	StateFull                      // every table, column and index present
)

func (s SchemaState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateBase:
		return "base"
	case StateFull:
		return "full"
	}
	return "unknown"
}

// Store defines the token datastore contract.
// Implementations must tolerate every operation being re-run; callers must
// not run two migrations against the same database at once.
type Store interface {
	// Open opens the datastore connection
	Open(ctx context.Context) error

	// Close closes the datastore connection
	Close() error

	// Migrate creates missing tables, removes the legacy updated_at trigger
	// and adds late columns, in that order
	Migrate(ctx context.Context) error

	// CreateTables creates both tables and their indexes if absent
	CreateTables(ctx context.Context) error

	// AddNewFieldsIfNotExist adds late columns missing from older deployments
	AddNewFieldsIfNotExist(ctx context.Context) error

	// RemoveUpdatedAtTrigger drops the legacy trigger and its function
	RemoveUpdatedAtTrigger(ctx context.Context) error

	// DropTables tears the schema down
	DropTables(ctx context.Context) error

	// Inspect reports what currently exists in the catalog
	Inspect(ctx context.Context) (Report, error)

	// CheckState returns the current state of the datastore
	CheckState(ctx context.Context) (SchemaState, error)
}
