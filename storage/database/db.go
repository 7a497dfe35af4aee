// Package database opens the PostgreSQL database and keeps its schema up to date.
package database

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	driverName    = "postgres"
	MigrationsDir = "migrations"
)

// Open connects to the database at dsn and waits for it to answer.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// dbName returns the database named in dsn and the dsn of the server's maintenance database.
func dbName(dsn string) (string, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", errors.Wrap(err, "parsing DSN")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", errors.Errorf("unsupported DSN scheme %q", u.Scheme)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", "", errors.New("DSN names no database")
	}
	u.Path = "/postgres"
	return name, u.String(), nil
}

// CreateIfNotExist creates the database named in dsn, connecting through the maintenance database.
func CreateIfNotExist(ctx context.Context, dsn string) error {
	name, adminDSN, err := dbName(dsn)
	if err != nil {
		return err
	}
	db, err := Open(ctx, adminDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var exists bool
	if err = db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if exists {
		return nil
	}
	if _, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(name))); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// PrepareGoose points goose at the embedded migrations.
func PrepareGoose() error {
	goose.SetBaseFS(migrationsFS)
	return errors.Wrap(goose.SetDialect(driverName), "setting goose dialect")
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB) error {
	if err := PrepareGoose(); err != nil {
		return err
	}
	if err := goose.Up(db.DB, MigrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
