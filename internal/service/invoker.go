package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/azure"
	"github.com/twintipsolutions/cough-backend/internal/observability"
)

// Model tiers.
const (
	TierPrimary  = "primary"
	TierFallback = "fallback"
)

// CompletionClient is one model deployment the invoker can call.
type CompletionClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts azure.CompletionOptions) (string, error)
	Deployment() string
}

// Invocation is the typed outcome of a successful model call: which tier
// answered, with which deployment, and the raw reply text.
type Invocation struct {
	Tier  string
	Model string
	Text  string
}

// Invoker runs the primary-then-fallback model sequence.
type Invoker interface {
	Invoke(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (*Invocation, error)
}

// ModelInvoker calls the primary deployment and, on any error, retries
// exactly once against the fallback deployment. Generative endpoints are
// capacity and region constrained; a single upstream hiccup should not fail
// a user-facing request when a materially similar secondary model exists.
type ModelInvoker struct {
	primary  CompletionClient
	fallback CompletionClient
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewModelInvoker creates a ModelInvoker. The timeout bounds each individual
// model call.
func NewModelInvoker(primary, fallback CompletionClient, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *ModelInvoker {
	return &ModelInvoker{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// primaryOptions favors determinism and allows extra reasoning budget on the
// richer model.
func primaryOptions() azure.CompletionOptions {
	return azure.CompletionOptions{
		Temperature:     0.3,
		TopP:            0.95,
		MaxOutputTokens: 4000,
		ReasoningEffort: openai.ReasoningEffortLow,
	}
}

// fallbackOptions mirrors primaryOptions without the reasoning knob, which
// the secondary deployment does not support.
func fallbackOptions() azure.CompletionOptions {
	return azure.CompletionOptions{
		Temperature:     0.3,
		TopP:            0.95,
		MaxOutputTokens: 4000,
	}
}

// Invoke runs the two-state sequence and returns the first successful reply.
func (i *ModelInvoker) Invoke(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (*Invocation, error) {
	text, primaryErr := i.call(ctx, i.primary, TierPrimary, primaryOptions(), messages)
	if primaryErr == nil {
		return &Invocation{Tier: TierPrimary, Model: i.primary.Deployment(), Text: text}, nil
	}

	i.logger.Warn("primary model failed, falling back",
		zap.Error(primaryErr),
		zap.String("primary_deployment", i.primary.Deployment()),
		zap.String("fallback_deployment", i.fallback.Deployment()),
	)
	i.metrics.IncModelFallback()

	text, fallbackErr := i.call(ctx, i.fallback, TierFallback, fallbackOptions(), messages)
	if fallbackErr == nil {
		return &Invocation{Tier: TierFallback, Model: i.fallback.Deployment(), Text: text}, nil
	}

	return nil, fmt.Errorf("both model tiers failed: %w", errors.Join(primaryErr, fallbackErr))
}

func (i *ModelInvoker) call(ctx context.Context, client CompletionClient, tier string, opts azure.CompletionOptions, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := client.Complete(callCtx, messages, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.metrics.ObserveModelInvocation(tier, status, time.Since(start))
	return text, err
}
