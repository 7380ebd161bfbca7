package llm

import "context"

// Result carries the reply for one generation call. ProcessingMS is the
// downstream service's own processing measurement, zero on the degrade path.
type Result struct {
	Text         string
	ProcessingMS int64
}

// Client abstracts the text-generation backend. Generate never fails: when
// the backend is unreachable, times out, or answers with an error status,
// the result text is a fixed human-readable error string instead.
type Client interface {
	Generate(ctx context.Context, prompt string) Result
}

// Fixed replies substituted when the downstream service degrades.
const (
	ReplyUnreachable = "Error: Unable to connect to LLM backend"
	ReplyBadStatus   = "Error: Unable to get response from LLM backend"
)
