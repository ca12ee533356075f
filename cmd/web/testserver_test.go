package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/nearmiss/internal/e2etest"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

const forkliftAnswer = `사례명: 지게차 보행자 근접사고
발생일시: 2024-03-05 14:20
발생장소: 물류창고 하역장
발생개요: 후진하던 지게차가 통로를 지나던 작업자와 부딪힐 뻔함
설비: 전동 지게차
발생원인: 후방 확인 미흡
예상피해: 작업자 골절
위험성평가: 높음
재발방지대책: 보행 통로 구획 및 후방 경보장치 설치`

// newFakeOpenAI answers every chat completion with answer, or with status when it is not 200.
func newFakeOpenAI(t *testing.T, status int, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": answer},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv map[string]string

// newTestEnv configures a server with an in-memory database, temporary directories, a local font, a fake
// completion API and a browser that cannot start.
func newTestEnv(t *testing.T, openAI *httptest.Server) testEnv {
	t.Helper()
	root := t.TempDir()
	fontPath := filepath.Join(root, "font.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0o600))
	return testEnv{
		"NEARMISS_ADDR":            "localhost:0",
		"NEARMISS_SQLITE_URL":      ":memory:",
		"OPENAI_API_KEY":           "test-key",
		"NEARMISS_OPENAI_BASE_URL": openAI.URL + "/v1",
		"NEARMISS_FONT_PATH":       fontPath,
		"NEARMISS_FONT_URL":        "",
		"NEARMISS_CHROME_PATH":     filepath.Join(root, "no-chrome"),
		"NEARMISS_BROWSER_TIMEOUT": "5s",
		"NEARMISS_UPLOAD_DIR":      filepath.Join(root, "uploads"),
		"NEARMISS_PDF_DIR":         filepath.Join(root, "pdf_reports"),
		"NEARMISS_IMAGE_DIR":       filepath.Join(root, "report_images"),
	}
}

func (e testEnv) lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

func startTestServer(t *testing.T, env testEnv) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, env.lookup, run)
	require.NoError(t, err)
	return server
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := range 32 {
		for y := range 24 {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 10), B: 40, A: 255}) //nolint:gosec // small values
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
