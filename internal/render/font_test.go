package render_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/myrjola/nearmiss/internal/render"
	"github.com/myrjola/nearmiss/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func newFontServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write(goregular.TTF)
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestFontStore_Load(t *testing.T) {
	ctx := context.Background()
	server, hits := newFontServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "fonts", "report.ttf")

	store := render.NewFontStore(path, server.URL+"/report.ttf", testhelpers.NewTestLogger(t))
	font, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, goregular.TTF, font)

	font, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, goregular.TTF, font)
	require.Equal(t, int32(1), hits.Load(), "font should be fetched once")

	cached, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, goregular.TTF, cached)

	// A fresh store finds the cached file without the network.
	server.Close()
	store = render.NewFontStore(path, server.URL+"/report.ttf", testhelpers.NewTestLogger(t))
	font, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, goregular.TTF, font)
}

func TestFontStore_LoadFailures(t *testing.T) {
	server, _ := newFontServer(t, http.StatusNotFound)
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Sign in to the guest network</body></html>"))
	}))
	t.Cleanup(portal.Close)

	tests := []struct {
		name string
		url  string
	}{
		{name: "not found", url: server.URL + "/missing.ttf"},
		{name: "no url", url: ""},
		{name: "html instead of font", url: portal.URL + "/report.ttf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "report.ttf")
			store := render.NewFontStore(path, tt.url, testhelpers.NewTestLogger(t))
			_, err := store.Load(context.Background())
			require.Error(t, err)
			require.NoFileExists(t, path)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Empty(t, entries)
		})
	}
}

func TestFontStore_LoadRejectsCachedNonFont(t *testing.T) {
	server, hits := newFontServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "report.ttf")
	require.NoError(t, os.WriteFile(path, []byte("<html>stale</html>"), 0o600))

	store := render.NewFontStore(path, server.URL+"/report.ttf", testhelpers.NewTestLogger(t))
	_, err := store.Load(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(0), hits.Load())
}
