package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemma-3-27b-it"
)

// Client talks to one OpenAI-compatible endpoint. The API key is supplied per
// call because each session brings its own.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, model string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{baseURL: baseURL, model: model, httpClient: http.DefaultClient, logger: logger.Named("llm")}
}

func (c *Client) Model() string { return c.model }

func (c *Client) api(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

// StreamReply starts a streaming completion. Failures to open the stream are
// reported through the returned Stream's terminal status, never as a nil stream.
func (c *Client) StreamReply(ctx context.Context, apiKey string, messages []Message) *Stream {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
		Stream:   true,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	stream, err := c.api(apiKey).CreateChatCompletionStream(ctx, req)
	if err != nil {
		c.logger.Warn("failed to open completion stream", zap.Stringer("status", Classify(err)), zap.Error(err))
		return Failed(err)
	}

	return NewStream(func() (string, error) {
		resp, err := stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Delta.Content, nil
	}, func() { _ = stream.Close() })
}

// ValidateKey lists models at the endpoint, which needs auth but costs nothing.
// It returns StatusOK or StatusAuthFailed for a definite answer; any other
// status comes with the underlying error and should not be memoized.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) (Status, error) {
	_, err := c.api(apiKey).ListModels(ctx)
	if err == nil {
		return StatusOK, nil
	}
	status := Classify(err)
	if status == StatusAuthFailed {
		return status, nil
	}
	return status, fmt.Errorf("key validation failed: %w", err)
}
