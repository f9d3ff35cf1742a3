package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"go.uber.org/zap"
)

// CompletionOptions are the per-call generation knobs. Zero values leave the
// corresponding parameter unset.
type CompletionOptions struct {
	Temperature     float64
	TopP            float64
	MaxOutputTokens int64
	ReasoningEffort openai.ReasoningEffort
}

// OpenAIClient wraps one Azure OpenAI deployment. It performs a single
// attempt per call; failover between deployments is decided by the caller.
type OpenAIClient struct {
	client     *openai.Client
	deployment string
	logger     *zap.Logger
}

// NewOpenAIClient creates a client for one Azure OpenAI deployment using the
// openai-go SDK with Azure extensions.
func NewOpenAIClient(endpoint, apiKey, deployment string, logger *zap.Logger) (*OpenAIClient, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("endpoint, apiKey, and deployment are required")
	}

	client := openai.NewClient(
		azure.WithEndpoint(endpoint, "2024-08-01-preview"),
		azure.WithAPIKey(apiKey),
	)

	return &OpenAIClient{
		client:     &client,
		deployment: deployment,
		logger:     logger,
	}, nil
}

// Deployment returns the deployment name this client targets.
func (c *OpenAIClient) Deployment() string {
	return c.deployment
}

// Complete sends a chat completion request and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts CompletionOptions) (string, error) {
	requestStart := time.Now()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.deployment),
		Messages: messages,
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(opts.MaxOutputTokens)
	}
	if opts.ReasoningEffort != "" {
		params.ReasoningEffort = opts.ReasoningEffort
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Azure OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	c.logger.Info("Azure OpenAI request completed",
		zap.String("deployment", c.deployment),
		zap.Duration("request_time", time.Since(requestStart)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return content, nil
}
