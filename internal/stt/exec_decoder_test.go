package stt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parleylabs/parley-relay/internal/config"
)

func writeDecoderScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decoder.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write decoder script: %v", err)
	}
	return path
}

func execDecoderConfig(command string, timeoutMS int) config.STTConfig {
	return config.STTConfig{
		Mode:        "exec",
		Command:     command,
		SampleRate:  16000,
		Channels:    1,
		ChunkFrames: 4000,
		TimeoutMS:   timeoutMS,
	}
}

func TestExecDecoderRoundTrip(t *testing.T) {
	// Fake engine: answer every request with a fixed response line.
	script := writeDecoderScript(t,
		`while read line; do echo '{"segment":"hello","boundary":true,"text":"hello world"}'; done`)

	factory, err := NewExecDecoderFactory(execDecoderConfig(script, 5000))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	decoder, err := factory.NewDecoder(context.Background(), 16000)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	defer decoder.Close()

	segment, boundary, err := decoder.Feed([]byte{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if segment != "hello" || !boundary {
		t.Fatalf("unexpected feed result %q boundary=%v", segment, boundary)
	}

	text, err := decoder.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected final text %q", text)
	}
}

func TestExecDecoderBoundsUnresponsiveEngine(t *testing.T) {
	// Engine that never answers: Feed must unblock once the configured
	// stream timeout expires, not hang the voice turn.
	script := writeDecoderScript(t, `sleep 60`)

	factory, err := NewExecDecoderFactory(execDecoderConfig(script, 100))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	decoder, err := factory.NewDecoder(context.Background(), 16000)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	defer decoder.Close()

	start := time.Now()
	if _, _, err := decoder.Feed([]byte{0, 0}); err == nil {
		t.Fatal("expected error from unresponsive decoder")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("feed blocked %v, expected the 100ms stream timeout to apply", elapsed)
	}
}

func TestExecDecoderHonorsCallerCancellation(t *testing.T) {
	script := writeDecoderScript(t, `sleep 60`)

	factory, err := NewExecDecoderFactory(execDecoderConfig(script, 60000))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	decoder, err := factory.NewDecoder(ctx, 16000)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	defer decoder.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, _, err := decoder.Feed([]byte{0, 0}); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("feed blocked %v after caller cancellation", elapsed)
	}
}
