package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/parleylabs/parley-relay/internal/audio"
	"github.com/parleylabs/parley-relay/internal/bus"
	"github.com/parleylabs/parley-relay/internal/config"
	"github.com/parleylabs/parley-relay/internal/history"
	"github.com/parleylabs/parley-relay/internal/httpapi"
	"github.com/parleylabs/parley-relay/internal/llm"
	"github.com/parleylabs/parley-relay/internal/natsserver"
	"github.com/parleylabs/parley-relay/internal/pipeline"
	"github.com/parleylabs/parley-relay/internal/stt"
	"github.com/parleylabs/parley-relay/internal/tts"
)

// Runtime owns the component graph: it builds every adapter from config,
// wires the pipeline, serves HTTP, and tears everything down in reverse
// order on shutdown.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	version     string
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger, version string) *Runtime {
	return &Runtime{
		cfg:     cfg,
		logger:  logger,
		version: version,
	}
}

// Start brings the service up and blocks until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	var embedded *natsserver.EmbeddedServer
	if r.cfg.Bus.Enabled && r.cfg.Bus.Embedded {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		defer embedded.Shutdown()
	}

	var events *bus.Client
	if r.cfg.Bus.Enabled {
		events, err = bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		defer events.Close()
	}

	store, err := r.buildHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	transcoder, err := r.buildTranscoder()
	if err != nil {
		return err
	}

	recognizer, err := r.buildRecognizer()
	if err != nil {
		return err
	}

	var artifacts *tts.Store
	var synth tts.Synthesizer
	if r.cfg.TTS.Enabled {
		artifacts, err = tts.NewStore(r.cfg.TTS.OutputDir, r.cfg.TTS.MaxArtifacts, r.logger)
		if err != nil {
			return fmt.Errorf("failed to prepare tts artifact store: %w", err)
		}
		synth, err = tts.New(r.cfg.TTS, artifacts, r.logger)
		if err != nil {
			return fmt.Errorf("failed to build synthesizer: %w", err)
		}
	}

	orchestrator := pipeline.New(pipeline.Deps{
		Transcoder: transcoder,
		Recognizer: recognizer,
		Generator:  r.buildGenerator(),
		Synth:      synth,
		History:    store,
		Events:     events,
		TempDir:    r.cfg.Audio.TempDir,
		Logger:     r.logger,
	})

	api := httpapi.New(httpapi.Deps{
		Conversation: orchestrator,
		History:      store,
		Artifacts:    artifacts,
		Metrics:      metricsHandler,
		Ready:        r.ready.Load,
		Version:      r.version,
		Logger:       r.logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	api.Register(e)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildHistory(ctx context.Context) (history.Store, error) {
	switch r.cfg.History.Backend {
	case "sqlite":
		store, err := history.OpenSQLite(ctx, r.cfg.History, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		return store, nil
	case "", "memory":
		return history.NewMemoryStore(r.cfg.History.MaxMessages), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", r.cfg.History.Backend)
	}
}

func (r *Runtime) buildTranscoder() (audio.Transcoder, error) {
	if r.cfg.Audio.TranscodeCommand == "mock" {
		r.logger.Warn("using mock transcoder")
		return audio.NewMockTranscoder(), nil
	}
	transcoder, err := audio.NewExecTranscoder(r.cfg.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcoder: %w", err)
	}
	return transcoder, nil
}

func (r *Runtime) buildRecognizer() (*stt.Recognizer, error) {
	var factory stt.DecoderFactory
	switch r.cfg.STT.Mode {
	case "exec":
		var err error
		factory, err = stt.NewExecDecoderFactory(r.cfg.STT)
		if err != nil {
			return nil, fmt.Errorf("failed to build stt decoder: %w", err)
		}
	case "", "mock":
		factory = stt.NewMockDecoderFactory()
	default:
		return nil, fmt.Errorf("unknown stt mode %q", r.cfg.STT.Mode)
	}
	return stt.NewRecognizer(r.cfg.STT, factory, r.logger), nil
}

func (r *Runtime) buildGenerator() llm.Client {
	if !r.cfg.LLM.Enabled || r.cfg.LLM.Mode == "mock" {
		r.logger.Info("using mock generation client")
		return llm.NewMockClient()
	}
	return llm.NewHTTPClient(r.cfg.LLM, r.logger)
}
