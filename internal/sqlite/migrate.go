package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/random"
)

// migrateTo makes the schema of db match schemaDefinition.
//
// The migration is declarative: schemaDefinition is applied to an empty scratch database and the two sqlite_schema
// tables are compared. Removed tables are dropped, new tables created and changed tables rebuilt with the
// generalized ALTER TABLE procedure from https://www.sqlite.org/lang_altertable.html#otheralter copying the columns
// both versions share. Indexes and triggers are always recreated from the target.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	var dbNameLength uint = 20
	scratchName, err := random.Letters(dbNameLength)
	if err != nil {
		return errors.Wrap(err, "generate scratch database name")
	}
	scratchDSN := fmt.Sprintf("file:%s?mode=memory&cache=shared", scratchName)
	scratch, err := sql.Open("sqlite3", scratchDSN)
	if err != nil {
		return errors.Wrap(err, "open scratch database")
	}
	defer func() {
		if closeErr := scratch.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close scratch database",
				errors.SlogError(errors.Wrap(closeErr, "close scratch database")))
		}
	}()
	// The shared in-memory database lives only while a connection to it is open.
	scratch.SetMaxIdleConns(1)
	if _, err = scratch.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "apply schema to scratch database")
	}

	// ATTACH, DETACH and the foreign_keys pragma are not allowed inside a transaction, so they run on a dedicated
	// connection around it.
	conn, err := db.ReadWrite.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign keys")
	}
	defer func() {
		if _, enableErr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); enableErr != nil {
			err = errors.Join(err, errors.Wrap(enableErr, "enable foreign keys"))
		}
	}()
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS target", scratchDSN); err != nil {
		return errors.Wrap(err, "attach scratch database")
	}
	defer func() {
		if _, detachErr := conn.ExecContext(ctx, "DETACH DATABASE target"); detachErr != nil {
			err = errors.Join(err, errors.Wrap(detachErr, "detach scratch database"))
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback migration",
				errors.SlogError(errors.Wrap(rollbackErr, "rollback")))
		}
	}()

	if err = db.migrateTables(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate tables")
	}
	if err = db.recreateIndexesAndTriggers(ctx, tx); err != nil {
		return errors.Wrap(err, "recreate indexes and triggers")
	}
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit migration")
	}
	return nil
}

type tableDiff struct {
	name       string
	currentSQL string
	targetSQL  string
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	diffs, err := db.queryTableDiffs(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "query table diffs")
	}
	for _, diff := range diffs {
		attrs := []slog.Attr{slog.String("table", diff.name)}
		switch {
		case diff.targetSQL == "":
			db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", attrs...)
			if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", diff.name)); err != nil {
				return errors.Wrap(err, "drop table", attrs...)
			}
		case diff.currentSQL == "":
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", attrs...)
			if _, err = tx.ExecContext(ctx, diff.targetSQL); err != nil {
				return errors.Wrap(err, "create table", attrs...)
			}
		default:
			db.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
				append(attrs, slog.String("current_sql", diff.currentSQL), slog.String("target_sql", diff.targetSQL))...)
			if err = db.rebuildTable(ctx, tx, diff); err != nil {
				return errors.Wrap(err, "rebuild table", attrs...)
			}
		}
	}
	return nil
}

// rebuildTable creates the target table under a temporary name, copies the shared columns and swaps the tables.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, diff tableDiff) error {
	tempName := diff.name + "_migration_temp"
	tempSQL := strings.Replace(diff.targetSQL, diff.name, tempName, 1)
	if _, err := tx.ExecContext(ctx, tempSQL); err != nil {
		return errors.Wrap(err, "create temporary table", slog.String("query", tempSQL))
	}

	// Column names are quoted because some of them, like "timestamp", are keywords.
	columns, err := queryStrings(ctx, tx, `SELECT '"' || t.name || '"'
FROM pragma_table_info(:table) AS c
JOIN pragma_table_info(:table, 'target') AS t ON t.name = c.name`, sql.Named("table", diff.name))
	if err != nil {
		return errors.Wrap(err, "query shared columns")
	}
	if len(columns) > 0 {
		shared := strings.Join(columns, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q", tempName, shared, shared, diff.name)
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy rows", slog.String("query", copySQL))
		}
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", diff.name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %q RENAME TO %q", tempName, diff.name)); err != nil {
		return errors.Wrap(err, "rename temporary table")
	}
	return nil
}

// queryTableDiffs lists tables that were added, removed or changed. An empty SQL string marks the missing side.
func (db *Database) queryTableDiffs(ctx context.Context, tx *sql.Tx) ([]tableDiff, error) {
	rows, err := tx.QueryContext(ctx, `SELECT c.name, c.sql, coalesce(t.sql, '')
FROM main.sqlite_schema AS c
LEFT JOIN target.sqlite_schema AS t ON t.name = c.name AND t.type = c.type
WHERE c.type = 'table' AND c.name NOT LIKE 'sqlite_%' AND (t.sql IS NULL OR t.sql <> c.sql)
UNION ALL
SELECT t.name, '', t.sql
FROM target.sqlite_schema AS t
LEFT JOIN main.sqlite_schema AS c ON c.name = t.name AND c.type = t.type
WHERE t.type = 'table' AND t.name NOT LIKE 'sqlite_%' AND c.name IS NULL`)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer db.closeRows(ctx, rows)

	var diffs []tableDiff
	for rows.Next() {
		var diff tableDiff
		if err = rows.Scan(&diff.name, &diff.currentSQL, &diff.targetSQL); err != nil {
			return nil, errors.Wrap(err, "scan table diff")
		}
		diffs = append(diffs, diff)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return diffs, nil
}

func (db *Database) recreateIndexesAndTriggers(ctx context.Context, tx *sql.Tx) error {
	existing, err := queryStrings(ctx, tx, `SELECT type || ' "' || name || '"'
FROM main.sqlite_schema
WHERE type IN ('index', 'trigger') AND sql IS NOT NULL`)
	if err != nil {
		return errors.Wrap(err, "query existing indexes and triggers")
	}
	for _, object := range existing {
		if _, err = tx.ExecContext(ctx, "DROP "+object); err != nil {
			return errors.Wrap(err, "drop", slog.String("object", object))
		}
	}

	targets, err := queryStrings(ctx, tx, `SELECT sql
FROM target.sqlite_schema
WHERE type IN ('index', 'trigger') AND sql IS NOT NULL`)
	if err != nil {
		return errors.Wrap(err, "query target indexes and triggers")
	}
	for _, stmt := range targets {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "create", slog.String("query", stmt))
		}
	}
	return nil
}

func (db *Database) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", errors.SlogError(errors.Wrap(err, "close rows")))
	}
}

// queryStrings returns the single string column of each row.
func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var results []string
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return results, nil
}
