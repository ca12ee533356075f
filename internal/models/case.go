package models

import (
	"database/sql"
	"time"
)

// TimestampLayout formats [Case.Timestamp]. The fixed width makes lexicographic order chronological.
const TimestampLayout = "20060102150405"

// Case is one persisted near-miss report submission. It is never updated after insert.
type Case struct {
	ID          int64  `db:"id"`
	Description string `db:"description"`
	// ImagePath is the URL path of the uploaded before image or empty.
	ImagePath string `db:"image_path"`
	Timestamp string `db:"timestamp"`
	// PDFPath and ReportImagePath are NULL when generating the artifact failed.
	PDFPath         sql.NullString `db:"pdf_path"`
	ReportImagePath sql.NullString `db:"report_image_path"`
}

// NewTimestamp formats t as a case timestamp.
func NewTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// CreatedAt parses the timestamp for display.
func (c Case) CreatedAt() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, c.Timestamp, time.Local)
}
