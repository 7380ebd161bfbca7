package stt

import (
	"context"
	"fmt"
)

// Transcript is the recognizer output. Text is never empty: a decode that
// produced nothing carries the Sentinel instead.
type Transcript struct {
	Text string
}

// Sentinel stands in for an empty or failed decode. Callers treat it as a
// valid transcript, not an error.
const Sentinel = "Could not transcribe audio"

// Decoder consumes one PCM stream chunk by chunk. Feed reports an utterance
// boundary together with the text recognized up to it; Finish flushes the
// trailing utterance. A Decoder is bound to a single stream and sample rate.
type Decoder interface {
	Feed(pcm []byte) (segment string, boundary bool, err error)
	Finish() (string, error)
	Close() error
}

// DecoderFactory creates a fresh Decoder per stream. The context bounds the
// decoder's whole lifetime: implementations must unblock Feed and Finish
// when it expires.
type DecoderFactory interface {
	NewDecoder(ctx context.Context, sampleRate int) (Decoder, error)
}

// FormatError rejects audio that does not meet the required PCM shape
// before decoding begins.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("audio format: %s", e.Reason)
}

// RecognitionError wraps a decoder fault.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition: %v", e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
