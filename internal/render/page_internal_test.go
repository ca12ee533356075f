package render

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/models"
	"github.com/myrjola/nearmiss/internal/report"
	"github.com/myrjola/nearmiss/internal/storage"
	"github.com/myrjola/nearmiss/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

// fakeCapturer reads the page it is asked to load instead of starting a browser.
type fakeCapturer struct {
	err  error
	url  string
	html string
}

func (c *fakeCapturer) Capture(_ context.Context, rawURL string) ([]byte, error) {
	c.url = rawURL
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, err
	}
	c.html = string(content)
	if c.err != nil {
		return nil, c.err
	}
	return pngHeader, nil
}

func newTestPageRenderer(t *testing.T, capturer Capturer) (*PageRenderer, *storage.Dir) {
	t.Helper()
	dir, err := storage.NewDir(t.TempDir(), "report_images")
	require.NoError(t, err)
	renderer := NewPageRenderer(capturer, dir, testhelpers.NewTestLogger(t))
	renderer.tempDir = t.TempDir()
	return renderer, dir
}

func testDocument(beforeImage string) Document {
	fields := report.Fields{"사례명": "지게차 충돌 위험", "발생장소": "창고 A"}
	return Document{
		Title:       "",
		Author:      models.Author{Department: "물류팀", Position: "대리", Name: "홍길동", Date: "2024-01-01"},
		Fields:      fields.Ordered(report.Labels),
		BeforeImage: beforeImage,
		AfterImage:  "",
	}
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPageRenderer_Render(t *testing.T) {
	capturer := &fakeCapturer{err: nil, url: "", html: ""}
	renderer, dir := newTestPageRenderer(t, capturer)
	before := filepath.Join(t.TempDir(), "before_20240101120000.jpg")

	result := renderer.Render(context.Background(), testDocument(before), "20240101120000")
	require.NoError(t, result.Err)
	require.True(t, result.OK())
	require.Equal(t, "/report_images/20240101120000.png", result.Path)

	content, err := os.ReadFile(filepath.Join(dir.Root(), "20240101120000.png"))
	require.NoError(t, err)
	require.Equal(t, pngHeader, content)

	require.Contains(t, capturer.url, "file://")
	require.Contains(t, capturer.html, DefaultTitle)
	require.Contains(t, capturer.html, "홍길동")
	require.Contains(t, capturer.html, "지게차 충돌 위험")
	require.Contains(t, capturer.html, "재발방지대책")
	require.Contains(t, capturer.html, `src="file://`+filepath.ToSlash(before)+`"`)

	requireEmptyDir(t, renderer.tempDir)
}

func TestPageRenderer_BrowserFailure(t *testing.T) {
	capturer := &fakeCapturer{err: errors.New("chrome not found"), url: "", html: ""}
	renderer, dir := newTestPageRenderer(t, capturer)

	result := renderer.Render(context.Background(), testDocument(""), "20240101120000")
	require.False(t, result.OK())
	require.Equal(t, FailureBrowser, result.Failure)
	require.Empty(t, result.Path)
	require.NotContains(t, capturer.html, "<img")

	requireEmptyDir(t, renderer.tempDir)
	requireEmptyDir(t, dir.Root())
}

func TestBrowser_MissingExecutable(t *testing.T) {
	browser := NewBrowser(filepath.Join(t.TempDir(), "no-such-chrome"), DefaultBrowserTimeout)
	_, err := browser.Capture(context.Background(), "file:///nonexistent.html")
	require.Error(t, err)
}

func TestFailure_String(t *testing.T) {
	require.Equal(t, "browser", FailureBrowser.String())
	require.Equal(t, "Failure(42)", Failure(42).String())
}
