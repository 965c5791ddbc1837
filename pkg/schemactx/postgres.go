package schemactx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Column describes one table column.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Source loads table metadata.
type Source interface {
	Columns(ctx context.Context, table TableRef) ([]Column, error)
	Indexes(ctx context.Context, table TableRef) ([]string, error)
	Close()
}

// PostgresSource reads metadata from information_schema and pg_indexes
// through a pgx pool.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}

	return &PostgresSource{pool: pool}, nil
}

// Columns returns the columns of table in ordinal order.
func (s *PostgresSource) Columns(ctx context.Context, table TableRef) ([]Column, error) {
	query := `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`
	rows, err := s.pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// Indexes returns the CREATE INDEX definitions of table.
func (s *PostgresSource) Indexes(ctx context.Context, table TableRef) ([]string, error) {
	query := `
		SELECT indexdef
		FROM pg_indexes
		WHERE schemaname = $1 AND tablename = $2
		ORDER BY indexname`
	rows, err := s.pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []string
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Close shuts down the pool.
func (s *PostgresSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
