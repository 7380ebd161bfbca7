package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parleylabs/parley-relay/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newClient(endpoint string, timeoutMS int) Client {
	return NewHTTPClient(config.LLMConfig{
		Enabled:   true,
		Mode:      "http",
		Endpoint:  endpoint,
		MaxTokens: 64,
		TimeoutMS: timeoutMS,
	}, newLogger())
}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Prompt != "hello" {
			t.Errorf("unexpected prompt %q", req.Prompt)
		}
		if req.MaxTokens != 64 {
			t.Errorf("unexpected max_tokens %d", req.MaxTokens)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response":"hi there","latency":{"processing":42}}`)
	}))
	defer srv.Close()

	result := newClient(srv.URL, 5000).Generate(context.Background(), "hello")
	if result.Text != "hi there" {
		t.Fatalf("unexpected reply %q", result.Text)
	}
	if result.ProcessingMS != 42 {
		t.Fatalf("expected processing 42, got %d", result.ProcessingMS)
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := newClient(srv.URL, 5000).Generate(context.Background(), "hello")
	if result.Text != ReplyBadStatus {
		t.Fatalf("expected bad status reply, got %q", result.Text)
	}
	if result.ProcessingMS != 0 {
		t.Fatalf("expected zero processing on degrade, got %d", result.ProcessingMS)
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	result := newClient(srv.URL, 1000).Generate(context.Background(), "hello")
	if result.Text != ReplyUnreachable {
		t.Fatalf("expected unreachable reply, got %q", result.Text)
	}
	if result.ProcessingMS != 0 {
		t.Fatalf("expected zero processing on degrade, got %d", result.ProcessingMS)
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		io.WriteString(w, `{"response":"too late"}`)
	}))
	defer srv.Close()

	result := newClient(srv.URL, 50).Generate(context.Background(), "hello")
	if result.Text != ReplyUnreachable {
		t.Fatalf("expected timeout to degrade, got %q", result.Text)
	}
}

func TestGenerateMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	result := newClient(srv.URL, 5000).Generate(context.Background(), "hello")
	if result.Text != ReplyBadStatus {
		t.Fatalf("expected malformed body to degrade, got %q", result.Text)
	}
}
