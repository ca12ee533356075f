package ai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = openai.GPT4
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTimeout     = time.Minute
)

// Config configures the completion Client. Zero values fall back to the defaults above.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the OpenAI API endpoint, e.g. for a compatible proxy. Must include the /v1 path.
	BaseURL     string
	MaxTokens   int
	Temperature float32
	// Timeout bounds a single call. The upstream API has no deadline of its own.
	Timeout time.Duration
}

// Client requests chat completions from the OpenAI API.
type Client struct {
	client *openai.Client
	config Config
	logger *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(slog.String("source", "ai"), slog.String("model", config.Model)),
	}
}

// Complete sends the system and user messages and returns the generated text.
//
// All failures are returned as *CompletionError.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.config.APIKey == "" {
		return "", &CompletionError{Kind: KindMissingCredential, Err: errors.New("no API key configured")}
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:       c.config.Model,
			MaxTokens:   c.config.MaxTokens,
			Temperature: c.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		},
	)
	if err != nil {
		return "", classify(errors.Wrap(err, "create chat completion"))
	}
	if len(completion.Choices) == 0 {
		return "", &CompletionError{Kind: KindEmptyResponse, Err: errors.New("no choices")}
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", &CompletionError{Kind: KindEmptyResponse, Err: errors.New("blank content",
			slog.String("finish_reason", string(completion.Choices[0].FinishReason)))}
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "completion finished",
		slog.Duration("duration", time.Since(start)),
		slog.Int("total_tokens", completion.Usage.TotalTokens))
	return text, nil
}

// HealthCheck validates the credential by listing the available models. It is independent of request handling and
// is run by the CLI and, when configured, at server start-up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.config.APIKey == "" {
		return &CompletionError{Kind: KindMissingCredential, Err: errors.New("no API key configured")}
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	if _, err := c.client.ListModels(ctx); err != nil {
		return classify(errors.Wrap(err, "list models"))
	}
	return nil
}

// classify maps go-openai errors to a CompletionError kind.
func classify(err error) *CompletionError {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &CompletionError{Kind: KindInvalidCredential, Err: err}
	}
	return &CompletionError{Kind: KindNetwork, Err: err}
}
