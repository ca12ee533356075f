package ai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myrjola/nearmiss/internal/ai"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// newFakeOpenAI serves the two endpoints the client uses. handler decides the chat completion response.
func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			writeAPIError(w, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"gpt-4","object":"model"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeAPIError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-4",
		"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
	})
	require.NoError(t, err)
}

func newClient(t *testing.T, srv *httptest.Server, apiKey string) *ai.Client {
	t.Helper()
	return ai.NewClient(ai.Config{
		APIKey:  apiKey,
		BaseURL: srv.URL + "/v1",
		Timeout: time.Second,
	}, testhelpers.NewTestLogger(t))
}

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	srv := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(t, w, "  사례명: 지게차 근접사고\n발생장소: 하차장\n")
	})

	text, err := newClient(t, srv, "test-key").Complete(context.Background(), "system prompt", "user prompt")

	require.NoError(t, err)
	require.Equal(t, "사례명: 지게차 근접사고\n발생장소: 하차장", text)
	require.Equal(t, ai.DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "system prompt", got.Messages[0].Content)
	require.Equal(t, "user", got.Messages[1].Role)
	require.Equal(t, "user prompt", got.Messages[1].Content)
}

func TestClient_CompleteFailures(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		handler  http.HandlerFunc
		wantKind ai.Kind
	}{
		{
			name:     "missing credential",
			apiKey:   "",
			handler:  func(_ http.ResponseWriter, _ *http.Request) { panic("no request expected") },
			wantKind: ai.KindMissingCredential,
		},
		{
			name:   "invalid credential",
			apiKey: "wrong-key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeAPIError(w, http.StatusUnauthorized)
			},
			wantKind: ai.KindInvalidCredential,
		},
		{
			name:   "server error",
			apiKey: "test-key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeAPIError(w, http.StatusInternalServerError)
			},
			wantKind: ai.KindNetwork,
		},
		{
			name:   "timeout",
			apiKey: "test-key",
			handler: func(_ http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			},
			wantKind: ai.KindNetwork,
		},
		{
			name:   "blank content",
			apiKey: "test-key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeCompletion(t, w, "   ")
			},
			wantKind: ai.KindEmptyResponse,
		},
		{
			name:   "no choices",
			apiKey: "test-key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","choices":[]}`)
			},
			wantKind: ai.KindEmptyResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeOpenAI(t, tt.handler)

			text, err := newClient(t, srv, tt.apiKey).Complete(context.Background(), "system", "user")

			require.Empty(t, text)
			var completionErr *ai.CompletionError
			require.True(t, errors.As(err, &completionErr), "got %v", err)
			require.Equal(t, tt.wantKind, completionErr.Kind)
		})
	}
}

func TestClient_HealthCheck(t *testing.T) {
	srv := newFakeOpenAI(t, func(_ http.ResponseWriter, _ *http.Request) {})
	ctx := context.Background()

	require.NoError(t, newClient(t, srv, "test-key").HealthCheck(ctx))

	var completionErr *ai.CompletionError
	err := newClient(t, srv, "wrong-key").HealthCheck(ctx)
	require.True(t, errors.As(err, &completionErr))
	require.Equal(t, ai.KindInvalidCredential, completionErr.Kind)

	err = newClient(t, srv, "").HealthCheck(ctx)
	require.True(t, errors.As(err, &completionErr))
	require.Equal(t, ai.KindMissingCredential, completionErr.Kind)
}
