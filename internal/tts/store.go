package tts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store owns the shared artifact directory and its retention policy.
// Concurrent sweeps from different requests are tolerated: files that
// vanish mid-sweep are benign.
type Store struct {
	dir    string
	max    int
	logger *slog.Logger
}

func NewStore(dir string, max int, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if max <= 0 {
		max = 10
	}
	return &Store{
		dir:    dir,
		max:    max,
		logger: logger.With(slog.String("component", "tts-store")),
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// StagingPath returns the hidden temp name an artifact is written to before
// it is published. Hidden names are invisible to Resolve and to the sweep.
func (s *Store) StagingPath(name string) string {
	return filepath.Join(s.dir, "."+name+".part")
}

// Publish atomically renames a staged file to its final name.
func (s *Store) Publish(stagedPath, name string) (string, error) {
	final := filepath.Join(s.dir, name)
	if err := os.Rename(stagedPath, final); err != nil {
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return final, nil
}

// Resolve maps a bare artifact filename to its on-disk path. Names that
// escape the artifact directory or do not exist are rejected.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fs.ErrNotExist
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fs.ErrNotExist
	}
	return path, nil
}

// Sweep deletes the oldest artifacts (by modification time) until at most
// max remain. Failures are swallowed: retention must never affect the
// request that triggered it.
func (s *Store) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("retention sweep failed to list artifacts", slog.String("error", err.Error()))
		return
	}

	type aged struct {
		path string
		mod  int64
	}
	var artifacts []aged
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.logger.Warn("retention sweep failed to stat artifact", slog.String("error", err.Error()))
			continue
		}
		artifacts = append(artifacts, aged{path: filepath.Join(s.dir, entry.Name()), mod: info.ModTime().UnixNano()})
	}

	if len(artifacts) <= s.max {
		return
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].mod < artifacts[j].mod })
	for _, victim := range artifacts[:len(artifacts)-s.max] {
		if err := os.Remove(victim.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("retention sweep failed to delete artifact",
				slog.String("path", victim.path),
				slog.String("error", err.Error()))
		}
	}
}
