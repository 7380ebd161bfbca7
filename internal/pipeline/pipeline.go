package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/parleylabs/parley-relay/internal/audio"
	"github.com/parleylabs/parley-relay/internal/bus"
	"github.com/parleylabs/parley-relay/internal/history"
	"github.com/parleylabs/parley-relay/internal/llm"
	"github.com/parleylabs/parley-relay/internal/protocol"
	"github.com/parleylabs/parley-relay/internal/stt"
	"github.com/parleylabs/parley-relay/internal/tts"
)

// Stage names a step of the voice-chat request lifecycle.
type Stage string

const (
	StageReceived     Stage = "received"
	StageNormalizing  Stage = "normalizing"
	StageRecognizing  Stage = "recognizing"
	StageForwarding   Stage = "forwarding"
	StageSynthesizing Stage = "synthesizing"
	StageCompleted    Stage = "completed"
	StageErrored      Stage = "errored"
)

// Placeholder reported for the synthesis stage when no synthesizer is
// available. Flagged via Latency.TTSEstimated so it cannot be mistaken for
// a measurement.
const estimatedTTSMS = 200

// ValidationError rejects a request before the pipeline starts.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Latency is the per-stage wall-clock report for one voice turn.
type Latency struct {
	STTMS        int64
	LLMMS        int64
	TTSMS        int64
	TTSEstimated bool
}

// VoiceResult is the assembled outcome of one voice turn.
type VoiceResult struct {
	Transcription string
	Reply         string
	Latency       Latency
	ArtifactFile  string
	Timestamp     time.Time
}

// TextResult is the outcome of one text turn.
type TextResult struct {
	Reply        string
	ProcessingMS int64
	Timestamp    time.Time
}

// Deps wires the orchestrator's collaborators. Synth and Events may be nil;
// both are optional enhancements.
type Deps struct {
	Transcoder audio.Transcoder
	Recognizer *stt.Recognizer
	Generator  llm.Client
	Synth      tts.Synthesizer
	History    history.Store
	Events     *bus.Client
	TempDir    string
	Logger     *slog.Logger
}

// Orchestrator sequences normalize -> recognize -> generate -> synthesize
// and guarantees temporary media cleanup on every exit path.
type Orchestrator struct {
	transcoder audio.Transcoder
	recognizer *stt.Recognizer
	generator  llm.Client
	synth      tts.Synthesizer
	history    history.Store
	events     *bus.Client
	tempDir    string
	logger     *slog.Logger
	metrics    *turnMetrics
	clock      func() time.Time
}

func New(deps Deps) *Orchestrator {
	tempDir := deps.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Orchestrator{
		transcoder: deps.Transcoder,
		recognizer: deps.Recognizer,
		generator:  deps.Generator,
		synth:      deps.Synth,
		history:    deps.History,
		events:     deps.Events,
		tempDir:    tempDir,
		logger:     deps.Logger.With(slog.String("component", "pipeline")),
		metrics:    newTurnMetrics(),
		clock:      time.Now,
	}
}

// TextTurn forwards a typed message to the generation service and records
// both sides of the exchange.
func (o *Orchestrator) TextTurn(ctx context.Context, userID, message string) (TextResult, error) {
	if strings.TrimSpace(message) == "" {
		return TextResult{}, &ValidationError{Msg: "Message is required"}
	}

	ctx, span := otel.Tracer("parley-relay/pipeline").Start(ctx, "text_turn")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	result := o.generator.Generate(ctx, message)

	o.record(ctx, userID, history.RoleUser, message)
	o.record(ctx, userID, history.RoleAI, result.Text)

	now := o.clock()
	o.events.Publish(protocol.SubjectChatTurn, protocol.TurnEvent{
		UserID:    userID,
		Kind:      "text",
		Prompt:    message,
		Reply:     result.Text,
		LLMMS:     result.ProcessingMS,
		Timestamp: now.UTC(),
	})
	o.metrics.observeText(ctx, result.ProcessingMS)

	return TextResult{Reply: result.Text, ProcessingMS: result.ProcessingMS, Timestamp: now}, nil
}

// VoiceTurn runs the full voice pipeline over one uploaded clip. The upload
// and its normalized derivative are removed before returning, regardless of
// where the pipeline stops.
func (o *Orchestrator) VoiceTurn(ctx context.Context, userID, filename string, upload io.Reader) (VoiceResult, error) {
	if upload == nil {
		return VoiceResult{}, &ValidationError{Msg: "No audio file provided"}
	}
	if filename == "" {
		return VoiceResult{}, &ValidationError{Msg: "No audio file selected"}
	}

	ctx, span := otel.Tracer("parley-relay/pipeline").Start(ctx, "voice_turn")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := o.clock()
	log := o.logger.With(slog.String("user_id", userID))
	log.Debug("voice turn", slog.String("stage", string(StageReceived)))

	srcPath, size, err := o.persistUpload(userID, filename, upload)
	if err != nil {
		return VoiceResult{}, err
	}
	defer o.removeTemp(srcPath)
	if size == 0 {
		return VoiceResult{}, &ValidationError{Msg: "No audio file provided"}
	}

	log.Debug("voice turn", slog.String("stage", string(StageNormalizing)))
	stageStart := o.clock()
	normalizedPath, err := o.transcoder.Normalize(ctx, srcPath)
	if err != nil {
		log.Warn("voice turn failed", slog.String("stage", string(StageErrored)), slog.String("error", err.Error()))
		return VoiceResult{}, err
	}
	defer o.removeTemp(normalizedPath)
	o.metrics.observeStage(ctx, StageNormalizing, o.sinceMS(stageStart))

	log.Debug("voice turn", slog.String("stage", string(StageRecognizing)))
	stageStart = o.clock()
	transcript, err := o.recognizer.Transcribe(ctx, normalizedPath)
	if err != nil {
		log.Warn("voice turn failed", slog.String("stage", string(StageErrored)), slog.String("error", err.Error()))
		return VoiceResult{}, err
	}
	sttMS := o.sinceMS(start)
	o.metrics.observeStage(ctx, StageRecognizing, o.sinceMS(stageStart))

	o.record(ctx, userID, history.RoleUserVoice, transcript.Text)
	o.events.Publish(protocol.SubjectTranscriptFinal, protocol.TranscriptEvent{
		UserID:    userID,
		Text:      transcript.Text,
		Timestamp: o.clock().UTC(),
	})

	log.Debug("voice turn", slog.String("stage", string(StageForwarding)))
	generated := o.generator.Generate(ctx, transcript.Text)
	o.record(ctx, userID, history.RoleAI, generated.Text)
	o.metrics.observeStage(ctx, StageForwarding, generated.ProcessingMS)

	latency := Latency{STTMS: sttMS, LLMMS: generated.ProcessingMS}
	var artifactFile string

	generationEnd := o.clock()
	if o.synth != nil {
		log.Debug("voice turn", slog.String("stage", string(StageSynthesizing)))
		if artifact := o.synth.Synthesize(ctx, generated.Text, userID); artifact != nil {
			artifactFile = artifact.FileName
		}
		latency.TTSMS = o.sinceMS(generationEnd)
		o.metrics.observeStage(ctx, StageSynthesizing, latency.TTSMS)
	} else {
		latency.TTSMS = estimatedTTSMS
		latency.TTSEstimated = true
	}

	now := o.clock()
	o.events.Publish(protocol.SubjectChatTurn, protocol.TurnEvent{
		UserID:    userID,
		Kind:      "voice",
		Prompt:    transcript.Text,
		Reply:     generated.Text,
		STTMS:     latency.STTMS,
		LLMMS:     latency.LLMMS,
		TTSMS:     latency.TTSMS,
		Timestamp: now.UTC(),
	})
	o.metrics.observeVoice(ctx)
	log.Debug("voice turn", slog.String("stage", string(StageCompleted)))

	return VoiceResult{
		Transcription: transcript.Text,
		Reply:         generated.Text,
		Latency:       latency,
		ArtifactFile:  artifactFile,
		Timestamp:     now,
	}, nil
}

// persistUpload writes the clip to a unique temp path keyed by user.
func (o *Orchestrator) persistUpload(userID, filename string, upload io.Reader) (string, int64, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}
	name := fmt.Sprintf("voice_%s_%s%s", safeName(userID), uuid.NewString(), ext)
	path := filepath.Join(o.tempDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("persist upload: %w", err)
	}
	size, err := io.Copy(file, upload)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		o.removeTemp(path)
		return "", 0, fmt.Errorf("persist upload: %w", err)
	}
	return path, size, nil
}

// removeTemp is best-effort: a failed delete must never mask the turn's
// primary result.
func (o *Orchestrator) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("failed to remove temporary audio", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) record(ctx context.Context, userID, role, content string) {
	if _, err := o.history.Append(ctx, userID, role, content); err != nil {
		o.logger.Warn("failed to record chat message", slog.String("role", role), slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) sinceMS(t time.Time) int64 {
	return o.clock().Sub(t).Milliseconds()
}

func safeName(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
