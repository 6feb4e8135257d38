// Package migrations embeds the SQL schema for the account store, one
// directory per supported dialect.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationsFS embed.FS

// FS returns the full embedded migration tree.
func FS() fs.FS {
	return migrationsFS
}

// ForDialect returns the migration filesystem for one dialect.
func ForDialect(dialect string) (fs.FS, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
		sub, err := fs.Sub(migrationsFS, dialect)
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", dialect, err)
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
}
