package schemactx

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// Defaults for Fetcher.
const (
	DefaultMaxTables = 8
	DefaultTimeout   = 5 * time.Second
)

// Options bound what a Fetcher loads and renders.
type Options struct {
	// MaxTables caps how many referenced tables are described.
	MaxTables int

	// MaxLength caps the rendered context in characters. Zero means no cap.
	MaxLength int

	// Timeout bounds the metadata queries for one Build call.
	Timeout time.Duration
}

// Fetcher renders schema context for a query from a Source.
type Fetcher struct {
	source Source
	opts   Options
	logger *slog.Logger
}

// NewFetcher creates a fetcher over source.
func NewFetcher(source Source, opts Options) *Fetcher {
	if opts.MaxTables <= 0 {
		opts.MaxTables = DefaultMaxTables
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Fetcher{
		source: source,
		opts:   opts,
		logger: slog.Default().With("component", "schemactx"),
	}
}

// Build describes the tables query references. Tables that cannot be
// loaded are skipped; Build returns "" when nothing could be described.
// Metadata errors are logged and never fail the analysis.
func (f *Fetcher) Build(ctx context.Context, query string) string {
	tables := ExtractTables(query)
	if len(tables) == 0 {
		return ""
	}
	if len(tables) > f.opts.MaxTables {
		tables = tables[:f.opts.MaxTables]
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	var blocks []string
	for _, table := range tables {
		columns, err := f.source.Columns(ctx, table)
		if err != nil {
			f.logger.Warn("failed to load columns", "table", table.String(), "error", err)
			continue
		}
		if len(columns) == 0 {
			continue
		}

		indexes, err := f.source.Indexes(ctx, table)
		if err != nil {
			f.logger.Warn("failed to load indexes", "table", table.String(), "error", err)
		}

		blocks = append(blocks, renderTable(table, columns, indexes))
	}

	return truncate(strings.Join(blocks, ""), f.opts.MaxLength)
}

// Close releases the underlying source.
func (f *Fetcher) Close() {
	f.source.Close()
}

func renderTable(table TableRef, columns []Column, indexes []string) string {
	var b strings.Builder
	b.WriteString("Table ")
	b.WriteString(table.String())
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(c.DataType)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")\n")

	if len(indexes) == 0 {
		b.WriteString("  Indexes: none\n")
		return b.String()
	}
	for _, def := range indexes {
		b.WriteString("  Index: ")
		b.WriteString(def)
		b.WriteString("\n")
	}
	return b.String()
}

// truncate cuts s to at most limit characters, preferring a line boundary.
func truncate(s string, limit int) string {
	s = strings.TrimRight(s, "\n")
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		return cut[:i]
	}
	return cut
}
