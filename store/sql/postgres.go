package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-social/migrations"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/lib/pq"
)

const defaultPingTimeout = 5 * time.Second

// PostgresOptions configures ConnectPostgres. Only DSN is required.
type PostgresOptions struct {
	DSN          string
	Debug        bool
	PingTimeout  time.Duration
	MaxOpenConns int
}

// ConnectPostgres opens a postgres-backed persistence client with the account
// schema migrations registered. The caller runs client.Migrate and owns the
// client's lifecycle.
func ConnectPostgres(opts PostgresOptions) (*persistence.Client, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	client, err := persistence.New(postgresConfig{opts: opts}, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	fsys, err := migrations.ForDialect(migrations.DialectPostgres)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	client.RegisterSQLMigrations(fsys)
	return client, nil
}

type postgresConfig struct {
	opts PostgresOptions
}

func (c postgresConfig) GetDebug() bool {
	return c.opts.Debug
}

func (c postgresConfig) GetDriver() string {
	return "postgres"
}

func (c postgresConfig) GetServer() string {
	return strings.TrimSpace(c.opts.DSN)
}

func (c postgresConfig) GetPingTimeout() time.Duration {
	if c.opts.PingTimeout > 0 {
		return c.opts.PingTimeout
	}
	return defaultPingTimeout
}

func (c postgresConfig) GetOtelIdentifier() string {
	return "go-social"
}
