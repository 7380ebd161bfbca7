package protocol

import "time"

// TranscriptEvent is published after a voice turn's recognition completes.
type TranscriptEvent struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnEvent records one completed conversational turn.
type TurnEvent struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"` // text, voice
	Prompt    string    `json:"prompt"`
	Reply     string    `json:"reply"`
	STTMS     int64     `json:"stt_ms,omitempty"`
	LLMMS     int64     `json:"llm_ms"`
	TTSMS     int64     `json:"tts_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptFinal = "stt.text.final"
	SubjectChatTurn        = "chat.turn"
)
