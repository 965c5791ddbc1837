package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"iqtoolkit/analyzer/pkg/analysis"
)

// SQLite driver names accepted by NewSQLiteStore.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Driver is DriverModernc (default) or DriverMattn.
	Driver string

	// Path is the database file path. Parent directories are created.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements Store on SQLite through database/sql.
type SQLiteStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLiteStore opens (and if needed creates) the database and applies
// the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
	if cfg.Path == "" {
		return nil, NewStorageError(cfg.Driver, "open", errors.New("database path is required"))
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError(cfg.Driver, "mkdir", err)
		}
	}

	logger := slog.Default().With("component", "history.sqlite")

	db, err := sql.Open(cfg.Driver, dsn(cfg))
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	s := &SQLiteStore{db: db, driver: cfg.Driver, logger: logger}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history store initialized",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
	)

	return s, nil
}

// dsn builds a per-connection DSN so pragmas apply to every pooled
// connection, not just the first one.
func dsn(cfg SQLiteConfig) string {
	busy := cfg.BusyTimeout.Milliseconds()

	var params []string
	switch cfg.Driver {
	case DriverMattn:
		params = append(params, fmt.Sprintf("_busy_timeout=%d", busy))
		if cfg.WALMode {
			params = append(params, "_journal_mode=WAL")
		}
	default:
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", busy))
		if cfg.WALMode {
			params = append(params, "_pragma=journal_mode(WAL)")
		}
	}
	return "file:" + cfg.Path + "?" + strings.Join(params, "&")
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError(s.driver, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return NewStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save inserts a record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	var result interface{}
	if record.Result != nil {
		data, err := json.Marshal(record.Result)
		if err != nil {
			return NewStorageError(s.driver, "save", fmt.Errorf("marshal result: %w", err))
		}
		result = string(data)
	}

	var errVal interface{}
	if record.Error != "" {
		errVal = record.Error
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, record.Query, record.Context, record.Provider,
		boolToInt(record.FallbackUsed), record.Status, errVal, result,
		record.Duration.Milliseconds(), record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return NewStorageError(s.driver, "save", err)
	}
	return nil
}

// Get returns the record with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM analyses WHERE id = ?", id)
	if err != nil {
		return nil, NewStorageError(s.driver, "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewStorageError(s.driver, "get", err)
		}
		return nil, ErrNotFound
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, NewStorageError(s.driver, "scan", err)
	}
	return record, nil
}

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	where, args := buildWhereClause(filter)

	query := "SELECT " + selectColumns + " FROM analyses"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.EffectiveLimit(), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(s.driver, "list", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError(s.driver, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.driver, "list", err)
	}

	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhereClause(filter)

	query := "SELECT COUNT(*) FROM analyses"
	if where != "" {
		query += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, NewStorageError(s.driver, "count", err)
	}
	return count, nil
}

// DeleteBefore removes records created before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE created_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError(s.driver, "delete_before", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.driver, "delete_before", err)
	}
	return n, nil
}

// DeleteOldest removes the n oldest records.
func (s *SQLiteStore) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM analyses WHERE id IN (
			SELECT id FROM analyses ORDER BY created_at ASC LIMIT ?
		)`, n)
	if err != nil {
		return 0, NewStorageError(s.driver, "delete_oldest", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.driver, "delete_oldest", err)
	}
	return deleted, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.driver, "close", err)
	}
	s.logger.Info("history store closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause (without the keyword) and its
// arguments from filter.
func buildWhereClause(filter Filter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Until != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.Until.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record       Record
		fallbackUsed int64
		errVal       sql.NullString
		result       sql.NullString
		durationMS   int64
		createdAt    int64
	)

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.Query, &record.Context, &record.Provider,
		&fallbackUsed, &record.Status, &errVal, &result, &durationMS, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.FallbackUsed = fallbackUsed != 0
	record.Error = errVal.String
	record.Duration = time.Duration(durationMS) * time.Millisecond
	record.CreatedAt = time.Unix(0, createdAt).UTC()

	if result.Valid && result.String != "" {
		var r analysis.AnalysisResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return nil, fmt.Errorf("decode result for %s: %w", record.ID, err)
		}
		record.Result = &r
	}

	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
