package render

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/models"
	"github.com/myrjola/nearmiss/internal/report"
	"github.com/myrjola/nearmiss/internal/storage"
)

//go:embed page.gohtml
var pageTemplateText string

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateText))

// Capturer loads a URL in a browser and returns a PNG screenshot of the viewport.
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

// PageRenderer renders a report as a standalone HTML page and captures it as a PNG.
type PageRenderer struct {
	capturer Capturer
	dir      *storage.Dir
	// tempDir holds the intermediate HTML files. Empty means the OS default.
	tempDir string
	logger  *slog.Logger
}

func NewPageRenderer(capturer Capturer, dir *storage.Dir, logger *slog.Logger) *PageRenderer {
	return &PageRenderer{
		capturer: capturer,
		dir:      dir,
		tempDir:  "",
		logger:   logger.With(slog.String("source", "PageRenderer")),
	}
}

type pageData struct {
	Title     string
	Author    models.Author
	Fields    []report.Value
	BeforeURL template.URL
	AfterURL  template.URL
}

// Render writes {stem}.png into the screenshot directory.
func (r *PageRenderer) Render(ctx context.Context, doc Document, stem string) Result {
	data := pageData{
		Title:     doc.Title,
		Author:    doc.Author,
		Fields:    doc.Fields,
		BeforeURL: fileURL(doc.BeforeImage),
		AfterURL:  fileURL(doc.AfterImage),
	}
	if data.Title == "" {
		data.Title = DefaultTitle
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return failed(FailureFilesystem, errors.Wrap(err, "execute page template"))
	}

	tmp, err := os.CreateTemp(r.tempDir, "nearmiss-*.html")
	if err != nil {
		return failed(FailureFilesystem, errors.Wrap(err, "create temporary html"))
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "remove temporary html",
				slog.String("path", tmp.Name()), errors.SlogError(rmErr))
		}
	}()
	_, err = tmp.Write(buf.Bytes())
	err = errors.Join(err, tmp.Close())
	if err != nil {
		return failed(FailureFilesystem, errors.Wrap(err, "write temporary html", slog.String("path", tmp.Name())))
	}

	png, err := r.capturer.Capture(ctx, string(fileURL(tmp.Name())))
	if err != nil {
		return failed(FailureBrowser, errors.Wrap(err, "capture screenshot"))
	}
	if len(png) == 0 {
		return failed(FailureBrowser, errors.New("empty screenshot"))
	}

	res, err := r.dir.Save(stem, ".png", bytes.NewReader(png))
	if err != nil {
		return failed(FailureFilesystem, errors.Wrap(err, "save screenshot"))
	}
	return Result{Path: res.URLPath}
}

// fileURL returns a file:// URL for path or an empty URL for an empty path.
func fileURL(path string) template.URL {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)} //nolint:exhaustruct // only a path is needed
	return template.URL(u.String())                            //nolint:gosec // the path points to a local file we control
}
