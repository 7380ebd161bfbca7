package tts

import (
	"context"
	"os"
	"time"

	"github.com/parleylabs/parley-relay/internal/audio"
)

type mockSynth struct {
	store *Store
	clock func() time.Time
}

// NewMockSynth writes a short silent wav per request. Development and test
// use only.
func NewMockSynth(store *Store) Synthesizer {
	return &mockSynth{store: store, clock: time.Now}
}

func (m *mockSynth) Synthesize(_ context.Context, _, userID string) *Artifact {
	now := m.clock()
	name := artifactName(userID, now)
	staged := m.store.StagingPath(name)

	pcm := make([]byte, audio.TargetSampleRate/5*2) // 200ms of silence
	if err := audio.WritePCM(staged, pcm, audio.TargetSampleRate, audio.TargetChannels); err != nil {
		_ = os.Remove(staged)
		return nil
	}
	path, err := m.store.Publish(staged, name)
	if err != nil {
		_ = os.Remove(staged)
		return nil
	}
	m.store.Sweep()
	return &Artifact{FileName: name, Path: path, CreatedAt: now}
}
