package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the analyses table. Timestamps are stored as Unix
// nanoseconds so both SQLite drivers round-trip them identically.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL DEFAULT '',
    query TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    fallback_used INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT,
    result TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_provider ON analyses(provider);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const selectColumns = `id, request_id, query, context, provider, fallback_used, status, error, result, duration_ms, created_at`
