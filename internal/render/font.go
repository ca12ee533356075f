package render

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/myrjola/nearmiss/internal/errors"
)

const (
	// DefaultFontURL points to NanumGothic from the Google Fonts repository. It covers Hangul and Latin.
	DefaultFontURL  = "https://github.com/google/fonts/raw/main/ofl/nanumgothic/NanumGothic-Regular.ttf"
	DefaultFontPath = "fonts/NanumGothic-Regular.ttf"

	fontFetchTimeout = 30 * time.Second
	maxFontBytes     = 32 << 20
)

// FontStore provides the TrueType font embedded in every PDF.
//
// The font is read from path. When the file does not exist it is downloaded from url once and written to path, so
// later processes find it cached. The bytes are kept in memory after the first successful load.
type FontStore struct {
	path   string
	url    string
	client *http.Client
	logger *slog.Logger

	mu   sync.Mutex
	data []byte
}

func NewFontStore(path, url string, logger *slog.Logger) *FontStore {
	return &FontStore{
		path:   path,
		url:    url,
		client: &http.Client{Timeout: fontFetchTimeout},
		logger: logger.With(slog.String("source", "FontStore")),
	}
}

// Path returns where the font is cached on disk.
func (s *FontStore) Path() string {
	return s.path
}

// Load returns the font bytes, fetching them first if needed.
func (s *FontStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return s.data, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if data, err = s.fetch(ctx); err != nil {
			return nil, errors.Wrap(err, "fetch font", slog.String("url", s.url))
		}
	} else if err != nil {
		return nil, errors.Wrap(err, "read font", slog.String("path", s.path))
	}
	if !isTrueType(data) {
		return nil, errors.New("font file is not TrueType", slog.String("path", s.path))
	}
	s.data = data
	return data, nil
}

func (s *FontStore) fetch(ctx context.Context) ([]byte, error) {
	if s.url == "" {
		return nil, errors.New("no font URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status code", slog.Int("status", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if !isTrueType(data) {
		return nil, errors.New("response is not a TrueType font",
			slog.String("content_type", resp.Header.Get("Content-Type")), slog.Int("bytes", len(data)))
	}

	if err = writeFileAtomic(s.path, data); err != nil {
		return nil, errors.Wrap(err, "cache font", slog.String("path", s.path))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "fetched font", slog.String("path", s.path), slog.Int("bytes", len(data)))
	return data, nil
}

// isTrueType reports whether data starts with a TrueType sfnt version tag.
func isTrueType(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.HasPrefix(data, []byte("true"))
}

// writeFileAtomic writes to a temporary file next to name and renames it so that readers never see a partial
// file.
func writeFileAtomic(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // regular directory
		return errors.Wrap(err, "create directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temporary file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary file")
	}
	if err = os.Rename(tmp.Name(), name); err != nil {
		return errors.Wrap(err, "rename temporary file")
	}
	return nil
}
