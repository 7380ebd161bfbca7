package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parleylabs/parley-relay/internal/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcoder.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNormalizedPath(t *testing.T) {
	cases := map[string]string{
		"/tmp/voice_u1.webm":  "/tmp/voice_u1.wav",
		"/tmp/voice_u1.ogg":   "/tmp/voice_u1.wav",
		"/tmp/voice_u1.wav":   "/tmp/voice_u1.pcm.wav",
		"/tmp/clip.with.dots": "/tmp/clip.with.wav",
	}
	for in, want := range cases {
		if got := NormalizedPath(in); got != want {
			t.Errorf("NormalizedPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeWritesOutput(t *testing.T) {
	// Fake transcoder: copies the -i argument to the final argument.
	script := writeScript(t, `in=""; prev=""; for a in "$@"; do [ "$prev" = "-i" ] && in="$a"; prev="$a"; done
for last in "$@"; do :; done
cp "$in" "$last"`)

	src := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(src, []byte("fake-container-bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	tr, err := NewExecTranscoder(config.AudioConfig{TranscodeCommand: script, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}

	out, err := tr.Normalize(context.Background(), src)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out != NormalizedPath(src) {
		t.Fatalf("unexpected output path %q", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must survive normalization: %v", err)
	}
}

func TestNormalizeFailureYieldsTranscodeError(t *testing.T) {
	script := writeScript(t, `echo "unreadable input" >&2; exit 1`)

	src := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(src, []byte("junk"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	tr, err := NewExecTranscoder(config.AudioConfig{TranscodeCommand: script, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}

	_, err = tr.Normalize(context.Background(), src)
	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if te.Source != src {
		t.Fatalf("unexpected source in error: %q", te.Source)
	}
}

func TestNormalizeTimeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)

	src := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(src, []byte("junk"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	tr, err := NewExecTranscoder(config.AudioConfig{TranscodeCommand: script, TimeoutMS: 50})
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}

	if _, err := tr.Normalize(context.Background(), src); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewExecTranscoderRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecTranscoder(config.AudioConfig{TranscodeCommand: "", TimeoutMS: 1000}); err == nil {
		t.Fatal("expected error for empty command")
	}
}
