package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/parleylabs/parley-relay/internal/config"
)

type execSynth struct {
	cmd     []string
	voice   string
	timeout time.Duration
	store   *Store
	logger  *slog.Logger
	clock   func() time.Time
}

// NewExecSynth invokes an espeak-style engine: reply text on stdin, output
// wav path as the final argument. Availability is decided here, at process
// start: a command that cannot be resolved yields a nil synthesizer.
func NewExecSynth(cfg config.TTSConfig, store *Store, logger *slog.Logger) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command is empty")
	}
	log := logger.With(slog.String("component", "tts"))
	if _, err := exec.LookPath(args[0]); err != nil {
		log.Warn("tts engine not found, synthesis disabled", slog.String("command", args[0]))
		return nil, nil
	}
	return &execSynth{
		cmd:     args,
		voice:   cfg.Voice,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		store:   store,
		logger:  log,
		clock:   time.Now,
	}, nil
}

// artifactName keys artifacts by user and creation time so concurrent users
// and repeated calls never collide.
func artifactName(userID string, now time.Time) string {
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	user := b.String()
	if user == "" {
		user = "anonymous"
	}
	return fmt.Sprintf("tts_%s_%d.wav", user, now.UnixNano())
}

func (s *execSynth) Synthesize(ctx context.Context, text, userID string) *Artifact {
	now := s.clock()
	name := artifactName(userID, now)
	staged := s.store.StagingPath(name)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	base := s.cmd[0]
	args := append([]string{}, s.cmd[1:]...)
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, staged)

	command := exec.CommandContext(ctx, base, args...)
	command.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		s.logger.Warn("tts engine failed",
			slog.String("error", err.Error()),
			slog.String("stderr", strings.TrimSpace(stderr.String())))
		_ = os.Remove(staged)
		return nil
	}

	path, err := s.store.Publish(staged, name)
	if err != nil {
		s.logger.Warn("failed to publish tts artifact", slog.String("error", err.Error()))
		_ = os.Remove(staged)
		return nil
	}

	s.store.Sweep()
	return &Artifact{FileName: name, Path: path, CreatedAt: now}
}
