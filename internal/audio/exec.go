package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/parleylabs/parley-relay/internal/config"
)

type execTranscoder struct {
	cmd     []string
	timeout time.Duration
}

// NewExecTranscoder shells out to an ffmpeg-style command. Extra arguments
// may be embedded in the configured command string.
func NewExecTranscoder(cfg config.AudioConfig) (Transcoder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.TranscodeCommand)
	if err != nil {
		return nil, fmt.Errorf("parse transcode command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("transcode command is empty")
	}
	return &execTranscoder{
		cmd:     args,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}, nil
}

// NormalizedPath derives the output path for a source clip: same stem,
// canonical .wav extension. A source that is already a .wav gets a distinct
// suffix so the original is never overwritten.
func NormalizedPath(sourcePath string) string {
	stem := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))
	out := stem + ".wav"
	if out == sourcePath {
		out = stem + ".pcm.wav"
	}
	return out
}

func (t *execTranscoder) Normalize(ctx context.Context, sourcePath string) (string, error) {
	out := NormalizedPath(sourcePath)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	base := t.cmd[0]
	args := append([]string{}, t.cmd[1:]...)
	args = append(args,
		"-y",
		"-i", sourcePath,
		"-ac", strconv.Itoa(TargetChannels),
		"-ar", strconv.Itoa(TargetSampleRate),
		"-acodec", "pcm_s16le",
		out,
	)

	command := exec.CommandContext(ctx, base, args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", &TranscodeError{Source: sourcePath, Err: err}
	}
	return out, nil
}
