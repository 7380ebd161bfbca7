package httpapi

import (
	"time"

	"github.com/parleylabs/parley-relay/internal/history"
)

// TextChatRequest is the payload for a typed chat turn.
type TextChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// TextLatency reports the generation time for a text turn.
type TextLatency struct {
	Processing int64 `json:"processing"`
}

// TextChatResponse is the envelope for a completed text turn.
type TextChatResponse struct {
	Status    string      `json:"status"`
	Response  string      `json:"response"`
	Timestamp time.Time   `json:"timestamp"`
	Latency   TextLatency `json:"latency"`
}

// VoiceLatency is the per-stage latency report for a voice turn. TTS is an
// estimate when TTSEstimated is set.
type VoiceLatency struct {
	STT          int64 `json:"stt"`
	LLM          int64 `json:"llm"`
	TTS          int64 `json:"tts"`
	TTSEstimated bool  `json:"tts_estimated,omitempty"`
}

// VoiceChatResponse is the envelope for a completed voice turn.
type VoiceChatResponse struct {
	Status        string       `json:"status"`
	Transcription string       `json:"transcription"`
	Response      string       `json:"response"`
	Timestamp     time.Time    `json:"timestamp"`
	Latency       VoiceLatency `json:"latency"`
	TTSFile       string       `json:"tts_file,omitempty"`
}

// VoiceStopRequest asks the service to acknowledge the end of a user's
// voice session.
type VoiceStopRequest struct {
	UserID string `json:"user_id"`
}

// HistoryResponse lists a user's recorded chat messages, oldest first.
type HistoryResponse struct {
	Status  string            `json:"status"`
	UserID  string            `json:"user_id"`
	History []history.Message `json:"history"`
	Count   int               `json:"count"`
}

// StatusResponse is a minimal acknowledgement envelope.
type StatusResponse struct {
	Status  string `json:"status"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// BannerResponse describes the running service.
type BannerResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
