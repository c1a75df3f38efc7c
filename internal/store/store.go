// Package store opens the destination database the pipeline loads into.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"keiba-etl/internal/db"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSqlite   Driver = "sqlite"
	DriverLibsql   Driver = "libsql"
	DriverPostgres Driver = "postgres"
)

func init() {
	// sqlx only knows the cgo sqlite driver name
	sqlx.BindDriver(string(DriverSqlite), sqlx.QUESTION)
	sqlx.BindDriver(string(DriverLibsql), sqlx.QUESTION)
}

type Config struct {
	Driver Driver `json:"driver"`
	// File is the database file for the sqlite driver, ":memory:" works too.
	File string `json:"file"`
	// Url and AuthToken address a remote libsql database.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
	// Dsn is the connection string for the postgres driver.
	Dsn string `json:"dsn"`
}

func openSqlite(config Config) (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0755)
		if err != nil {
			return nil, err
		}
	}

	sqlite, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	sqlite.SetMaxOpenConns(1)
	_, err = sqlite.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		sqlite.Close()
		return nil, err
	}
	_, err = sqlite.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		sqlite.Close()
		return nil, err
	}
	return sqlite, nil
}

func openLibsql(config Config) (*sql.DB, error) {
	if config.Url == "" {
		return nil, fmt.Errorf("a libsql url was not specified")
	}
	dsn := config.Url
	if config.AuthToken != "" {
		parsed, err := url.Parse(config.Url)
		if err != nil {
			return nil, fmt.Errorf("parse libsql url: %w", err)
		}
		query := parsed.Query()
		query.Set("authToken", config.AuthToken)
		parsed.RawQuery = query.Encode()
		dsn = parsed.String()
	}
	return sql.Open("libsql", dsn)
}

// Open opens (and pings) the configured database.
func Open(ctx context.Context, config Config) (*sqlx.DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch config.Driver {
	case DriverSqlite, "":
		config.Driver = DriverSqlite
		conn, err = openSqlite(config)
	case DriverLibsql:
		conn, err = openLibsql(config)
	case DriverPostgres:
		if config.Dsn == "" {
			return nil, fmt.Errorf("a postgres dsn was not specified")
		}
		conn, err = sql.Open("postgres", config.Dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", config.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", config.Driver, err)
	}

	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s store: %w", config.Driver, err)
	}
	return sqlx.NewDb(conn, string(config.Driver)), nil
}

// ApplySchema creates missing tables and indexes and regenerates the feature
// view, it is safe to run on every start.
func ApplySchema(ctx context.Context, store *sqlx.DB) error {
	for _, stmt := range db.Statements() {
		_, err := store.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
