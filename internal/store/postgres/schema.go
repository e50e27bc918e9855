package postgres

// Object names on the wire. Changing any of them breaks existing deployments.
const (
	TokensTable     = "tokens"
	SyncStatusTable = "sync_status"

	IndexTokensCreatedAt = "idx_tokens_created_at"
	IndexTokensUpdatedAt = "idx_tokens_updated_at"

	LegacyTrigger  = "update_tokens_updated_at"
	LegacyFunction = "update_updated_at_column"
)

// Column describes one column of a table.
type Column struct {
	Name string
	Type string
}

// TokensColumns lists every tokens column in creation order.
var TokensColumns = []Column{
	{"id", "VARCHAR(255)"},
	{"tenant_url", "TEXT"},
	{"access_token", "TEXT"},
	{"created_at", "TIMESTAMP WITH TIME ZONE"},
	{"updated_at", "TIMESTAMP WITH TIME ZONE"},
	{"portal_url", "TEXT"},
	{"email_note", "TEXT"},
	{"tag_name", "TEXT"},
	{"tag_color", "TEXT"},
	{"ban_status", "JSONB"},
	{"portal_info", "JSONB"},
	{"auth_session", "TEXT"},
	{"suspensions", "JSONB"},
	{"balance_color_mode", "TEXT"},
	{"skip_check", "BOOLEAN"},
}

// SyncStatusColumns lists every sync_status column in creation order.
var SyncStatusColumns = []Column{
	{"id", "SERIAL"},
	{"last_sync_at", "TIMESTAMP WITH TIME ZONE"},
	{"sync_direction", "VARCHAR(50)"},
	{"status", "VARCHAR(50)"},
	{"error_message", "TEXT"},
	{"tokens_synced", "INTEGER"},
	{"created_at", "TIMESTAMP WITH TIME ZONE"},
}

// LateColumns are the tokens columns older deployments may lack. The order
// is the order they are probed and added in, and so the order of the log lines.
var LateColumns = []Column{
	{"auth_session", "TEXT"},
	{"suspensions", "JSONB"},
	{"tag_name", "TEXT"},
	{"tag_color", "TEXT"},
	{"balance_color_mode", "TEXT"},
	{"skip_check", "BOOLEAN"},
}

// TokensIndexes are the non-unique indexes on tokens.
var TokensIndexes = []string{IndexTokensCreatedAt, IndexTokensUpdatedAt}

// updated_at has a default but must never be rewritten by the database;
// the application owns it so synced rows keep their original timestamps.
const createTokensTable = `
CREATE TABLE IF NOT EXISTS tokens (
    id VARCHAR(255) PRIMARY KEY,
    tenant_url TEXT NOT NULL,
    access_token TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    portal_url TEXT,
    email_note TEXT,
    tag_name TEXT,
    tag_color TEXT,
    ban_status JSONB,
    portal_info JSONB,
    auth_session TEXT,
    suspensions JSONB,
    balance_color_mode TEXT,
    skip_check BOOLEAN
)
`

const createTokensCreatedAtIndex = `CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens(created_at)`

const createTokensUpdatedAtIndex = `CREATE INDEX IF NOT EXISTS idx_tokens_updated_at ON tokens(updated_at)`

const createSyncStatusTable = `
CREATE TABLE IF NOT EXISTS sync_status (
    id SERIAL PRIMARY KEY,
    last_sync_at TIMESTAMP WITH TIME ZONE,
    sync_direction VARCHAR(50),
    status VARCHAR(50),
    error_message TEXT,
    tokens_synced INTEGER DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)
`

const (
	dropLegacyTrigger  = `DROP TRIGGER IF EXISTS update_tokens_updated_at ON tokens`
	dropLegacyFunction = `DROP FUNCTION IF EXISTS update_updated_at_column() CASCADE`

	dropSyncStatusTable = `DROP TABLE IF EXISTS sync_status CASCADE`
	dropTokensTable     = `DROP TABLE IF EXISTS tokens CASCADE`
)

// Catalog probes. Every one reduces to SELECT EXISTS and yields exactly one row.
const (
	tableExistsQuery = `
SELECT EXISTS (
    SELECT FROM information_schema.tables
    WHERE table_schema = 'public'
    AND table_name = $1
)`

	columnExistsQuery = `
SELECT EXISTS (
    SELECT FROM information_schema.columns
    WHERE table_schema = 'public'
    AND table_name = $1
    AND column_name = $2
)`

	indexExistsQuery = `
SELECT EXISTS (
    SELECT FROM pg_indexes
    WHERE schemaname = 'public'
    AND indexname = $1
)`

	triggerExistsQuery = `
SELECT EXISTS (
    SELECT FROM information_schema.triggers
    WHERE event_object_schema = 'public'
    AND event_object_table = $1
    AND trigger_name = $2
)`

	functionExistsQuery = `
SELECT EXISTS (
    SELECT FROM pg_proc p
    JOIN pg_namespace n ON n.oid = p.pronamespace
    WHERE n.nspname = 'public'
    AND p.proname = $1
)`
)

// addColumnStatement renders the ALTER for a late column. Names and types
// come from LateColumns only; identifiers cannot be bound as parameters.
func addColumnStatement(c Column) string {
	return "ALTER TABLE " + TokensTable + " ADD COLUMN " + c.Name + " " + c.Type
}
