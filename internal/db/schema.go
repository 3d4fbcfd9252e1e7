package db

// SchemaVersion is the current history schema version
const SchemaVersion = 3

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Forwarded address-form-filled events
CREATE TABLE IF NOT EXISTS autofill_events (
    id TEXT PRIMARY KEY,
    target_id TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL,
    filled_fields TEXT NOT NULL DEFAULT '[]',
    matches TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_autofill_events_created ON autofill_events(created_at);

-- Requests the browser blocked
CREATE TABLE IF NOT EXISTS blocked_requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL,
    pattern TEXT NOT NULL DEFAULT '',
    target_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
`

// Migration is one ordered schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema
	{
		Version:     2,
		Description: "Add bounce_runs table",
		SQL: `
CREATE TABLE IF NOT EXISTS bounce_runs (
    id TEXT PRIMARY KEY,
    deleted_sites TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "Index blocked requests by pattern",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_blocked_requests_pattern ON blocked_requests(pattern);
CREATE INDEX IF NOT EXISTS idx_blocked_requests_created ON blocked_requests(created_at);
`,
	},
}
