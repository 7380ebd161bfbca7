package llm

import (
	"context"
	"strings"
	"time"
)

type mockClient struct{}

// NewMockClient echoes the prompt back. Used when the downstream integration
// is disabled and in tests.
func NewMockClient() Client { return &mockClient{} }

func (m *mockClient) Generate(ctx context.Context, prompt string) Result {
	select {
	case <-ctx.Done():
		return Result{Text: ReplyUnreachable}
	case <-time.After(10 * time.Millisecond):
	}
	return Result{Text: "I heard: " + strings.TrimSpace(prompt), ProcessingMS: 10}
}
