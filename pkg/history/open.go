package history

import (
	"fmt"

	"iqtoolkit/analyzer/pkg/config"
)

// Open creates the store selected by cfg.Driver.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case DriverModernc, DriverMattn, "":
		return NewSQLiteStore(SQLiteConfig{
			Driver:  cfg.Driver,
			Path:    cfg.Path,
			WALMode: true,
		})
	default:
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("unsupported history driver %q", cfg.Driver))
	}
}
