package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parleylabs/parley-relay/internal/config"
)

type httpClient struct {
	endpoint  string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
}

type generateRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Latency  struct {
		Processing int64 `json:"processing"`
	} `json:"latency"`
}

// NewHTTPClient talks to the generation service's POST /generate endpoint
// with a hard timeout.
func NewHTTPClient(cfg config.LLMConfig, logger *slog.Logger) Client {
	return &httpClient{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		maxTokens: cfg.MaxTokens,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		logger: logger.With(slog.String("component", "llm-client")),
	}
}

func (c *httpClient) Generate(ctx context.Context, prompt string) Result {
	payload := generateRequest{Prompt: prompt, MaxTokens: c.maxTokens}
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("failed to marshal generate request", slogError(err))
		return Result{Text: ReplyUnreachable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("failed to build generate request", slogError(err))
		return Result{Text: ReplyUnreachable}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("generation service unreachable", slogError(err))
		return Result{Text: ReplyUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("generation service returned error status", slog.String("status", resp.Status))
		return Result{Text: ReplyBadStatus}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warn("failed to decode generate response", slogError(err))
		return Result{Text: ReplyBadStatus}
	}

	return Result{Text: decoded.Response, ProcessingMS: decoded.Latency.Processing}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
