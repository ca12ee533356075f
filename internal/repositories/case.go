package repositories

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/models"
	"github.com/myrjola/nearmiss/internal/sqlite"
)

// CaseRepository appends and lists cases. Cases are immutable, there is no update or delete.
type CaseRepository struct {
	readWrite *sqlx.DB
	readOnly  *sqlx.DB
	logger    *slog.Logger
}

func NewCaseRepository(db *sqlite.Database, logger *slog.Logger) *CaseRepository {
	return &CaseRepository{
		readWrite: sqlx.NewDb(db.ReadWrite, "sqlite3"),
		readOnly:  sqlx.NewDb(db.ReadOnly, "sqlite3"),
		logger:    logger.With(slog.String("source", "CaseRepository")),
	}
}

// Insert appends c and sets its ID.
func (r *CaseRepository) Insert(ctx context.Context, c *models.Case) error {
	stmt := `INSERT INTO cases (description, image_path, timestamp, pdf_path, report_image_path)
VALUES (:description, :image_path, :timestamp, :pdf_path, :report_image_path)`
	res, err := r.readWrite.NamedExecContext(ctx, stmt, c)
	if err != nil {
		return errors.Wrap(err, "insert case", slog.String("timestamp", c.Timestamp))
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return errors.Wrap(err, "last insert id")
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "inserted case", slog.Int64("id", c.ID),
		slog.String("timestamp", c.Timestamp))
	return nil
}

// ListAll returns every case, most recent timestamp first. Cases sharing a timestamp are ordered newest insert
// first.
func (r *CaseRepository) ListAll(ctx context.Context) ([]models.Case, error) {
	cases := []models.Case{}
	stmt := `SELECT id, description, image_path, timestamp, pdf_path, report_image_path
FROM cases
ORDER BY timestamp DESC, id DESC`
	if err := r.readOnly.SelectContext(ctx, &cases, stmt); err != nil {
		return nil, errors.Wrap(err, "select cases")
	}
	return cases, nil
}

// Count returns the number of cases.
func (r *CaseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.readOnly.GetContext(ctx, &count, `SELECT count(*) FROM cases`); err != nil {
		return 0, errors.Wrap(err, "count cases")
	}
	return count, nil
}
