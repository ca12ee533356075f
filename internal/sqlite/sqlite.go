package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/random"
)

//go:embed schema.sql
var schemaDefinition string

// Database holds separate pools for writes and reads.
//
// SQLite allows a single writer, so ReadWrite is capped to one connection while ReadOnly can serve the listing page
// concurrently. See https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database at url, synchronises the schema and starts the hourly optimizer that stops
// when ctx is done.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect", slog.String("url", url))
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "synchronise schema")
	}
	go db.startOptimizer(ctx)
	return db, nil
}

func connect(url string, logger *slog.Logger) (*Database, error) {
	// Each in-memory database gets a random name so that parallel tests do not share data. Shared cache lets the
	// read and write pools see the same database. See https://www.sqlite.org/inmemorydb.html.
	inMemoryConfig := ""
	if strings.Contains(url, ":memory:") {
		var dbNameLength uint = 20
		randomID, err := random.Letters(dbNameLength)
		if err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		url = randomID
		inMemoryConfig = "&mode=memory&cache=shared"
	}

	// Options prefixed with '_' are pragmas (https://www.sqlite.org/pragma.html), the rest are URI parameters
	// (https://www.sqlite.org/uri.html).
	common := strings.Join([]string{
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
		"_temp_store=memory",
	}, "&")
	readWriteDSN := fmt.Sprintf("file:%s?_txlock=immediate&%s%s", url, common, inMemoryConfig)
	readOnlyDSN := fmt.Sprintf("file:%s?_txlock=deferred&_query_only=true&%s%s", url, common, inMemoryConfig)
	if inMemoryConfig == "" {
		readWriteDSN += "&mode=rwc"
		readOnlyDSN += "&mode=ro"
	}

	readWrite, err := sql.Open("sqlite3", readWriteDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWrite.SetMaxOpenConns(1)
	readWrite.SetMaxIdleConns(1)
	readWrite.SetConnMaxLifetime(time.Hour)
	readWrite.SetConnMaxIdleTime(time.Hour)
	// The read-only pool fails to open a file that does not exist yet.
	if err = readWrite.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping read-write database")
	}

	readOnly, err := sql.Open("sqlite3", readOnlyDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open read-only database")
	}
	maxReadConns := 10
	readOnly.SetMaxOpenConns(maxReadConns)
	readOnly.SetMaxIdleConns(maxReadConns)
	readOnly.SetConnMaxLifetime(time.Hour)
	readOnly.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWrite,
		ReadOnly:  readOnly,
		logger:    logger.With(slog.String("source", "sqlite")),
	}, nil
}

// Close closes both pools.
func (db *Database) Close() error {
	return errors.Join(
		errors.Wrap(db.ReadOnly.Close(), "close read-only database"),
		errors.Wrap(db.ReadWrite.Close(), "close read-write database"),
	)
}

// startOptimizer runs PRAGMA optimize once per hour until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startOptimizer(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil && ctx.Err() == nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
				errors.SlogError(errors.Wrap(err, "optimize database")))
		} else if err == nil {
			db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database",
				slog.Duration("duration", time.Since(start)))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
