package tts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parleylabs/parley-relay/internal/config"
)

// Artifact is one synthesized audio file retained in the shared store.
type Artifact struct {
	FileName  string
	Path      string
	CreatedAt time.Time
}

// Synthesizer converts reply text into an audio artifact. Synthesize
// returns nil when the engine fails or degrades; synthesis is an optional
// enhancement and never a pipeline error.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, userID string) *Artifact
}

// New builds the configured synthesizer, or nil when synthesis is
// unavailable. A nil synthesizer is a valid degraded state.
func New(cfg config.TTSConfig, store *Store, logger *slog.Logger) (Synthesizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Mode {
	case "mock":
		return NewMockSynth(store), nil
	case "exec":
		if cfg.Command == "" {
			logger.Info("tts command not configured, synthesis disabled")
			return nil, nil
		}
		return NewExecSynth(cfg, store, logger)
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}
