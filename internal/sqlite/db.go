package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rpggio/cairn/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}

// RunMigrations applies every embedded *.up.sql file in name order.
func (db *DB) RunMigrations() error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", name, err)
		}
	}

	return nil
}
