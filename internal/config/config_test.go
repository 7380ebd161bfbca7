package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 5001 {
		t.Fatalf("expected default http port, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.Endpoint != "http://localhost:5002" {
		t.Fatalf("expected default llm endpoint, got %q", cfg.LLM.Endpoint)
	}
	if cfg.History.Backend != "memory" {
		t.Fatalf("expected memory history backend, got %q", cfg.History.Backend)
	}
	if cfg.TTS.MaxArtifacts != 10 {
		t.Fatalf("expected 10 retained artifacts, got %d", cfg.TTS.MaxArtifacts)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_HTTP_PORT", "8080")
	t.Setenv("PARLEY_LLM_ENDPOINT", "http://llm:9000")
	t.Setenv("PARLEY_LLM_TIMEOUT_MS", "5000")
	t.Setenv("PARLEY_LLM_ENABLED", "false")
	t.Setenv("PARLEY_HISTORY_BACKEND", "sqlite")
	t.Setenv("PARLEY_HISTORY_PATH", "./tmp.db")
	t.Setenv("PARLEY_HISTORY_MAX_MESSAGES", "50")
	t.Setenv("PARLEY_TTS_COMMAND", "espeak-ng --stdin")
	t.Setenv("PARLEY_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("PARLEY_STT_MODE", "exec")
	t.Setenv("PARLEY_STT_COMMAND", "decoder --stream")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Fatalf("expected port override, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.Endpoint != "http://llm:9000" {
		t.Fatalf("expected endpoint override, got %q", cfg.LLM.Endpoint)
	}
	if cfg.LLM.TimeoutMS != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.LLM.TimeoutMS)
	}
	if cfg.LLM.Enabled {
		t.Fatal("expected llm disabled override")
	}
	if cfg.History.Backend != "sqlite" || cfg.History.Path != "./tmp.db" {
		t.Fatalf("expected history override, got %+v", cfg.History)
	}
	if cfg.History.MaxMessages != 50 {
		t.Fatalf("expected max messages 50, got %d", cfg.History.MaxMessages)
	}
	if cfg.TTS.Command != "espeak-ng --stdin" {
		t.Fatalf("expected tts command override, got %q", cfg.TTS.Command)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.STT.Mode != "exec" || cfg.STT.Command != "decoder --stream" {
		t.Fatalf("expected stt exec override, got %+v", cfg.STT)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("PARLEY_HISTORY_BACKEND", "redis")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown history backend")
	}
}

func TestValidateRequiresPositiveSTTTimeout(t *testing.T) {
	t.Setenv("PARLEY_STT_TIMEOUT_MS", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for zero stt timeout")
	}
}

func TestValidateRequiresExecCommand(t *testing.T) {
	t.Setenv("PARLEY_STT_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when stt mode=exec without command")
	}
}
