package stt

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/parleylabs/parley-relay/internal/config"
)

// Recognizer turns a normalized wav file into a Transcript by streaming
// fixed-size chunks through a stateful Decoder.
type Recognizer struct {
	cfg     config.STTConfig
	factory DecoderFactory
	logger  *slog.Logger
}

func NewRecognizer(cfg config.STTConfig, factory DecoderFactory, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		cfg:     cfg,
		factory: factory,
		logger:  logger.With(slog.String("component", "recognizer")),
	}
}

// Transcribe decodes the wav at path. Header checks fail with FormatError
// before any decoding; decoder faults surface as RecognitionError. An empty
// decode yields the Sentinel transcript, not an error.
func (r *Recognizer) Transcribe(ctx context.Context, path string) (Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return Transcript{}, &RecognitionError{Err: fmt.Errorf("open audio: %w", err)}
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return Transcript{}, &FormatError{Reason: "malformed wave header"}
	}
	if int(dec.NumChans) != r.cfg.Channels {
		return Transcript{}, &FormatError{Reason: fmt.Sprintf("expected %d channel(s), got %d", r.cfg.Channels, dec.NumChans)}
	}
	if dec.BitDepth != 16 {
		return Transcript{}, &FormatError{Reason: fmt.Sprintf("expected 16-bit samples, got %d-bit", dec.BitDepth)}
	}
	if dec.WavAudioFormat != 1 {
		return Transcript{}, &FormatError{Reason: "audio is not linear PCM"}
	}

	sampleRate := int(dec.SampleRate)
	decoder, err := r.factory.NewDecoder(ctx, sampleRate)
	if err != nil {
		return Transcript{}, &RecognitionError{Err: fmt.Errorf("create decoder: %w", err)}
	}
	defer func() {
		if err := decoder.Close(); err != nil {
			r.logger.Warn("decoder close failed", slog.String("error", err.Error()))
		}
	}()

	chunk := &goaudio.IntBuffer{
		Data:   make([]int, r.cfg.ChunkFrames),
		Format: &goaudio.Format{NumChannels: r.cfg.Channels, SampleRate: sampleRate},
	}

	var fragments []string
	for {
		select {
		case <-ctx.Done():
			return Transcript{}, &RecognitionError{Err: ctx.Err()}
		default:
		}

		n, err := dec.PCMBuffer(chunk)
		if err != nil {
			return Transcript{}, &RecognitionError{Err: fmt.Errorf("read pcm: %w", err)}
		}
		if n == 0 {
			break
		}

		pcm := make([]byte, n*2)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(chunk.Data[i])))
		}

		segment, boundary, err := decoder.Feed(pcm)
		if err != nil {
			return Transcript{}, &RecognitionError{Err: err}
		}
		if boundary && segment != "" {
			fragments = append(fragments, segment)
		}
	}

	final, err := decoder.Finish()
	if err != nil {
		return Transcript{}, &RecognitionError{Err: err}
	}
	if final != "" {
		fragments = append(fragments, final)
	}

	text := strings.TrimSpace(strings.Join(fragments, " "))
	if text == "" {
		text = Sentinel
	}
	return Transcript{Text: text}, nil
}
