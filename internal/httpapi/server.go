package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parleylabs/parley-relay/internal/audio"
	"github.com/parleylabs/parley-relay/internal/history"
	"github.com/parleylabs/parley-relay/internal/pipeline"
	"github.com/parleylabs/parley-relay/internal/stt"
	"github.com/parleylabs/parley-relay/internal/tts"
)

const defaultUserID = "default_user"

// Conversation runs chat turns. Satisfied by the pipeline orchestrator.
type Conversation interface {
	TextTurn(ctx context.Context, userID, message string) (pipeline.TextResult, error)
	VoiceTurn(ctx context.Context, userID, filename string, upload io.Reader) (pipeline.VoiceResult, error)
}

// Deps wires the HTTP surface. Artifacts and Metrics may be nil; the
// corresponding routes degrade to 404.
type Deps struct {
	Conversation Conversation
	History      history.Store
	Artifacts    *tts.Store
	Metrics      http.Handler
	Ready        func() bool
	Version      string
	Logger       *slog.Logger
}

// Server exposes the relay over HTTP.
type Server struct {
	conversation Conversation
	history      history.Store
	artifacts    *tts.Store
	metrics      http.Handler
	ready        func() bool
	version      string
	logger       *slog.Logger
}

func New(deps Deps) *Server {
	return &Server{
		conversation: deps.Conversation,
		history:      deps.History,
		artifacts:    deps.Artifacts,
		metrics:      deps.Metrics,
		ready:        deps.Ready,
		version:      deps.Version,
		logger:       deps.Logger.With(slog.String("component", "httpapi")),
	}
}

// Register mounts all routes on the given echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.banner)
	e.GET("/healthz", s.health)
	e.GET("/readyz", s.readiness)
	e.POST("/chat/text", s.textChat)
	e.POST("/chat/voice", s.voiceChat)
	e.GET("/tts/:filename", s.ttsFile)
	e.POST("/voice/stop", s.voiceStop)
	e.GET("/chat/history/:user_id", s.getHistory)
	e.DELETE("/chat/history/:user_id", s.clearHistory)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}
}

func (s *Server) banner(c echo.Context) error {
	return c.JSON(http.StatusOK, BannerResponse{
		Service: "parley-relay",
		Version: s.version,
		Status:  "ok",
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) readiness(c echo.Context) error {
	if s.ready != nil && !s.ready() {
		return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "starting"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}

func (s *Server) textChat(c echo.Context) error {
	var req TextChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	userID := req.UserID
	if userID == "" {
		userID = defaultUserID
	}

	result, err := s.conversation.TextTurn(c.Request().Context(), userID, req.Message)
	if err != nil {
		return s.turnError(c, err)
	}
	return c.JSON(http.StatusOK, TextChatResponse{
		Status:    "success",
		Response:  result.Reply,
		Timestamp: result.Timestamp,
		Latency:   TextLatency{Processing: result.ProcessingMS},
	})
}

func (s *Server) voiceChat(c echo.Context) error {
	userID := c.FormValue("user_id")
	if userID == "" {
		userID = defaultUserID
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No audio file provided"})
	}
	if fileHeader.Filename == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No audio file selected"})
	}

	upload, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("failed to open uploaded audio", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process audio"})
	}
	defer upload.Close()

	result, err := s.conversation.VoiceTurn(c.Request().Context(), userID, fileHeader.Filename, upload)
	if err != nil {
		return s.turnError(c, err)
	}
	return c.JSON(http.StatusOK, VoiceChatResponse{
		Status:        "success",
		Transcription: result.Transcription,
		Response:      result.Reply,
		Timestamp:     result.Timestamp,
		Latency: VoiceLatency{
			STT:          result.Latency.STTMS,
			LLM:          result.Latency.LLMMS,
			TTS:          result.Latency.TTSMS,
			TTSEstimated: result.Latency.TTSEstimated,
		},
		TTSFile: result.ArtifactFile,
	})
}

// turnError maps pipeline failures to HTTP envelopes. Client mistakes are
// 400s with the pipeline's own message; everything else is an opaque 500.
func (s *Server) turnError(c echo.Context, err error) error {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Msg})
	}
	var fe *stt.FormatError
	if errors.As(err, &fe) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid audio file",
			Message: fe.Reason,
		})
	}
	var te *audio.TranscodeError
	var re *stt.RecognitionError
	switch {
	case errors.As(err, &te):
		s.logger.Error("audio normalization failed", slog.String("error", err.Error()))
	case errors.As(err, &re):
		s.logger.Error("speech recognition failed", slog.String("error", err.Error()))
	default:
		s.logger.Error("chat turn failed", slog.String("error", err.Error()))
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process audio"})
}

func (s *Server) ttsFile(c echo.Context) error {
	if s.artifacts == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "File not found"})
	}
	path, err := s.artifacts.Resolve(c.Param("filename"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "File not found"})
	}
	return c.File(path)
}

func (s *Server) voiceStop(c echo.Context) error {
	var req VoiceStopRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	userID := req.UserID
	if userID == "" {
		userID = defaultUserID
	}
	// Recording happens client-side; the stop call is an acknowledgement
	// hook so clients can fence their upload against it.
	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "stopped",
		UserID:  userID,
		Message: "Voice recording stopped",
	})
}

func (s *Server) getHistory(c echo.Context) error {
	userID := c.Param("user_id")
	messages, err := s.history.List(c.Request().Context(), userID)
	if err != nil {
		s.logger.Error("failed to list chat history", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load history"})
	}
	if messages == nil {
		messages = []history.Message{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{
		Status:  "success",
		UserID:  userID,
		History: messages,
		Count:   len(messages),
	})
}

func (s *Server) clearHistory(c echo.Context) error {
	userID := c.Param("user_id")
	if err := s.history.Clear(c.Request().Context(), userID); err != nil {
		s.logger.Error("failed to clear chat history", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to clear history"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "cleared", UserID: userID})
}
