// Package history persists analysis results.
//
// # Backends
//
//   - "sqlite": modernc.org/sqlite, pure Go, the default
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//   - "memory": in-process map, lost on exit
//
// Both SQLite drivers share one schema (sqlite_schema.go). Timestamps are
// stored as Unix nanoseconds and the extracted result as JSON text.
//
// # Retention
//
// Pruner deletes records older than RetentionDays and then the oldest
// records beyond MaxRecords. Scheduler runs it on a cron expression:
//
//	pruner := history.NewPruner(store, history.RetentionConfig{
//	    RetentionDays: 30,
//	    PruneSchedule: "0 3 * * *",
//	})
//	scheduler := history.NewScheduler(pruner)
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
//	defer scheduler.Stop()
package history
