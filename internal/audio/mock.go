package audio

import "context"

type mockTranscoder struct{}

// NewMockTranscoder writes a short silent clip in the target format,
// ignoring the source contents. Development and test use only.
func NewMockTranscoder() Transcoder { return &mockTranscoder{} }

func (m *mockTranscoder) Normalize(_ context.Context, sourcePath string) (string, error) {
	out := NormalizedPath(sourcePath)
	pcm := make([]byte, TargetSampleRate/10*2) // 100ms of silence
	if err := WritePCM(out, pcm, TargetSampleRate, TargetChannels); err != nil {
		return "", &TranscodeError{Source: sourcePath, Err: err}
	}
	return out, nil
}
