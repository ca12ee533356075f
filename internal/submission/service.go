// Package submission drives a report from the submitted form to a persisted case: it saves the uploaded images,
// asks the completion service for a draft, renders the reviewed report and stores the result.
package submission

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/models"
	"github.com/myrjola/nearmiss/internal/render"
	"github.com/myrjola/nearmiss/internal/report"
	"github.com/myrjola/nearmiss/internal/storage"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrGenerationFailed means no artifact required by the policy could be generated. Nothing was persisted.
	ErrGenerationFailed = errors.NewSentinel("report generation failed")
	// ErrPersistence means the artifacts were generated but the case could not be stored.
	ErrPersistence = errors.NewSentinel("case persistence failed")
	// ErrUpload means an uploaded image could not be saved.
	ErrUpload = errors.NewSentinel("saving upload failed")
)

// Completer produces a chat completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Renderer produces one artifact of a report.
type Renderer interface {
	Render(ctx context.Context, doc render.Document, stem string) render.Result
}

// CaseStore persists cases.
type CaseStore interface {
	Insert(ctx context.Context, c *models.Case) error
}

// Dirs are the directories uploads and artifacts live in.
type Dirs struct {
	Uploads *storage.Dir
	PDFs    *storage.Dir
	Images  *storage.Dir
}

type Service struct {
	completer Completer
	pdf       Renderer
	page      Renderer
	cases     CaseStore
	dirs      Dirs
	policy    Policy
	labels    []report.Label
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(
	completer Completer,
	pdf Renderer,
	page Renderer,
	cases CaseStore,
	dirs Dirs,
	policy Policy,
	logger *slog.Logger,
) *Service {
	return &Service{
		completer: completer,
		pdf:       pdf,
		page:      page,
		cases:     cases,
		dirs:      dirs,
		policy:    policy,
		labels:    report.Labels,
		now:       time.Now,
		logger:    logger.With(slog.String("source", "submission.Service")),
	}
}

// Upload is an uploaded image. A nil Upload means no image was chosen.
type Upload struct {
	Filename string
	Content  io.Reader
}

type PreviewInput struct {
	Department  string
	Position    string
	Name        string
	Description string
	Before      *Upload
	After       *Upload
}

// Draft is an editable report prepared from the completion.
type Draft struct {
	models.Report
	Timestamp string
}

// Values returns the draft fields in layout order.
func (d Draft) Values() []report.Value {
	return d.Fields.Ordered(report.Labels)
}

// Preview saves the uploaded images and drafts a report from the description.
//
// When the completion fails, no draft is returned: the error wraps the *ai.CompletionError and the images saved for
// this preview are removed again because nothing references them.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (Draft, error) {
	now := s.now()
	ts := models.NewTimestamp(now)

	before, err := s.saveUpload(in.Before, "before_"+ts)
	if err != nil {
		return Draft{}, err
	}
	after, err := s.saveUpload(in.After, "after_"+ts)
	if err != nil {
		s.discardUploads(before)
		return Draft{}, err
	}

	text, err := s.completer.Complete(ctx, report.SystemPrompt(s.labels), report.UserPrompt(in.Description, s.labels))
	if err != nil {
		s.discardUploads(before, after)
		return Draft{}, errors.Wrap(err, "complete draft", slog.String("timestamp", ts))
	}
	draft := Draft{
		Report: models.Report{
			Author: models.Author{
				Department: in.Department,
				Position:   in.Position,
				Name:       in.Name,
				Date:       now.Format(models.DateLayout),
			},
			Description: in.Description,
			Fields:      report.Extract(text, s.labels),
			BeforeImage: before.URLPath,
			AfterImage:  after.URLPath,
		},
		Timestamp: ts,
	}
	filled := 0
	for _, v := range draft.Fields {
		if v != "" {
			filled++
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "drafted report",
		slog.String("timestamp", ts), slog.Int("filled_fields", filled), slog.Int("fields", len(s.labels)))
	return draft, nil
}

// saveUpload stores an uploaded image. The returned reservation is empty when there was no upload.
func (s *Service) saveUpload(upload *Upload, stem string) (storage.Reservation, error) {
	if upload == nil || upload.Content == nil || upload.Filename == "" {
		return storage.Reservation{}, nil
	}
	res, err := s.dirs.Uploads.Save(stem, uploadExt(upload.Filename), upload.Content)
	if err != nil {
		return storage.Reservation{}, errors.Wrap(errors.Join(ErrUpload, err), "save upload",
			slog.String("filename", upload.Filename))
	}
	return res, nil
}

func (s *Service) discardUploads(reservations ...storage.Reservation) {
	for _, res := range reservations {
		if res.DiskPath != "" {
			s.dirs.Uploads.Discard(res)
		}
	}
}

var allowedExts = map[string]bool{ //nolint:gochecknoglobals // lookup table
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// uploadExt keeps the extension of the uploaded file name when it is a known image type.
func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if allowedExts[ext] {
		return ext
	}
	return ".bin"
}

// Submit renders the reviewed report and persists the case.
//
// Both renderers run concurrently and independently. The case is inserted only when the policy accepts the
// generated artifacts, and a failed artifact is stored as NULL.
func (s *Service) Submit(ctx context.Context, r models.Report) (*models.Case, error) {
	ts := models.NewTimestamp(s.now())
	before := s.resolveUpload(ctx, r.BeforeImage)
	after := s.resolveUpload(ctx, r.AfterImage)
	doc := render.Document{
		Title:       render.DefaultTitle,
		Author:      r.Author,
		Fields:      r.Fields.Ordered(s.labels),
		BeforeImage: before,
		AfterImage:  after,
	}

	var pdfResult, pageResult render.Result
	// Render failures are reported in the results, so the goroutines never return an error.
	var g errgroup.Group
	g.Go(func() error {
		pdfResult = s.pdf.Render(ctx, doc, ts)
		return nil
	})
	g.Go(func() error {
		pageResult = s.page.Render(ctx, doc, ts)
		return nil
	})
	_ = g.Wait()
	s.logResult(ctx, "pdf", ts, pdfResult)
	s.logResult(ctx, "screenshot", ts, pageResult)

	if !s.policy.accepts(pdfResult, pageResult) {
		s.discard(ctx, pdfResult, pageResult)
		return nil, errors.Wrap(errors.Join(ErrGenerationFailed, pdfResult.Err, pageResult.Err), "render artifacts",
			slog.String("timestamp", ts), slog.String("policy", s.policy.String()))
	}

	c := &models.Case{
		ID:              0,
		Description:     r.Description,
		ImagePath:       "",
		Timestamp:       ts,
		PDFPath:         nullString(pdfResult.Path),
		ReportImagePath: nullString(pageResult.Path),
	}
	if before != "" {
		c.ImagePath = r.BeforeImage
	}
	if err := s.cases.Insert(ctx, c); err != nil {
		s.discard(ctx, pdfResult, pageResult)
		return nil, errors.Wrap(errors.Join(ErrPersistence, err), "insert case", slog.String("timestamp", ts))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "case persisted", slog.Int64("case_id", c.ID),
		slog.String("timestamp", ts), slog.Bool("pdf", pdfResult.OK()), slog.Bool("screenshot", pageResult.OK()))
	return c, nil
}

// resolveUpload maps an upload URL path from the form to its file on disk. Paths outside the uploads directory are
// dropped.
func (s *Service) resolveUpload(ctx context.Context, urlPath string) string {
	if urlPath == "" {
		return ""
	}
	diskPath, err := s.dirs.Uploads.Resolve(urlPath)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "dropping image path", errors.SlogError(err))
		return ""
	}
	return diskPath
}

func (s *Service) logResult(ctx context.Context, artifact, ts string, result render.Result) {
	if result.OK() {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelError, "artifact generation failed", slog.String("artifact", artifact),
		slog.String("timestamp", ts), slog.String("failure", result.Failure.String()), errors.SlogError(result.Err))
}

// discard removes artifacts of a submission that is not persisted.
func (s *Service) discard(ctx context.Context, pdf, page render.Result) {
	for _, a := range []struct {
		dir  *storage.Dir
		path string
	}{{s.dirs.PDFs, pdf.Path}, {s.dirs.Images, page.Path}} {
		if a.path == "" || a.dir == nil {
			continue
		}
		diskPath, err := a.dir.Resolve(a.path)
		if err == nil {
			err = os.Remove(diskPath)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "discard artifact", slog.String("path", a.path),
				errors.SlogError(err))
		}
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
