package audio

import (
	"context"
	"fmt"
)

// Target format required by the recognizer: mono 16-bit signed
// little-endian PCM at 16 kHz.
const (
	TargetSampleRate = 16000
	TargetChannels   = 1
	TargetBitDepth   = 16
)

// Transcoder converts an uploaded clip into the canonical PCM wav the
// recognizer accepts. Normalize writes exactly one new file and never
// deletes the source; the caller owns both paths.
type Transcoder interface {
	Normalize(ctx context.Context, sourcePath string) (string, error)
}

// TranscodeError reports an external transcoder failure or an unreadable
// source format.
type TranscodeError struct {
	Source string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s: %v", e.Source, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }
