// Package persistence opens the bun database used by the auth repositories
// and applies the embedded goose migrations for its dialect.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	auth "github.com/kodbank/go-bank-auth"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB pairs the bun handle with the driver it was opened for
type DB struct {
	*bun.DB
	Driver string
}

// Open connects to dsn using driver. sqlite connections are pinned to a
// single connection so in memory databases survive between queries.
func Open(driver, dsn string) (*DB, error) {
	driver = normalizeDriver(driver)

	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return &DB{DB: bun.NewDB(sqldb, sqlitedialect.New()), Driver: driver}, nil
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &DB{DB: bun.NewDB(sqldb, pgdialect.New()), Driver: driver}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Ping checks the connection is usable
func (d *DB) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies every pending migration for the handle's dialect
func Migrate(ctx context.Context, db *DB) error {
	fsys, err := auth.DialectMigrations(db.Driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	// goose keeps its base FS and dialect in package state
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(gooseDialect(db.Driver)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db.DB.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func gooseDialect(driver string) string {
	if driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return driver
	}
}
