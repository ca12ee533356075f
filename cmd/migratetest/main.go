package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/logging"
	"github.com/myrjola/nearmiss/internal/repositories"
	"github.com/myrjola/nearmiss/internal/sqlite"
)

// Opens a copy of the production database with the current schema and checks that the cases survived the
// migration.
func main() {
	logger := logging.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("NEARMISS_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "NEARMISS_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	count, err := repositories.NewCaseRepository(db, logger).Count(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching case count", errors.SlogError(err))
		os.Exit(1)
	}
	if count == 0 {
		logger.LogAttrs(ctx, slog.LevelWarn, "no cases found, expected for a fresh database only")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "case count", slog.Int("count", count))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	_ = db.Close()
	os.Exit(0)
}
