// Package inference wraps the Anthropic API behind the single blocking
// prompt call the reconciler consumes. Failure reasons pass through
// verbatim; the reconciler reports them, it never guesses around them.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dagster-io/erk/internal/telemetry"
)

const (
	// DefaultModel is used when config does not name one.
	DefaultModel = "claude-sonnet-4-5"

	maxRetries     = 3
	initialBackoff = time.Second
	maxTokens      = 4096
)

// errAPIKeyRequired is returned when no API key is available.
var errAPIKeyRequired = errors.New("API key required")

// Client makes blocking prompt calls against the Anthropic API.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient builds a client. ANTHROPIC_API_KEY takes precedence over the
// explicit key; an empty model falls back to DefaultModel.
func NewClient(apiKey, model string) (*Client, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or provide via config", errAPIKeyRequired)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

// Prompt sends one user message and returns the text response. Rate limits
// and transient server errors are retried with exponential backoff; other
// failures return immediately with the API's own reason.
func (c *Client) Prompt(ctx context.Context, text string) (string, error) {
	tracer := telemetry.Tracer("github.com/dagster-io/erk/inference")
	ctx, span := tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(attribute.String("erk.ai.model", string(c.model)))

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}

	var out string
	attempt := func() error {
		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		span.SetAttributes(
			attribute.Int64("erk.ai.input_tokens", message.Usage.InputTokens),
			attribute.Int64("erk.ai.output_tokens", message.Usage.OutputTokens),
		)
		if len(message.Content) == 0 {
			return backoff.Permanent(fmt.Errorf("unexpected response format: no content blocks"))
		}
		content := message.Content[0]
		if content.Type != "text" {
			return backoff.Permanent(fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type))
		}
		out = content.Text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err != nil {
		telemetry.CountInferenceCall(ctx, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	telemetry.CountInferenceCall(ctx, "ok")
	return out, nil
}

// isRetryable reports whether an API failure is worth another attempt:
// timeouts, rate limits, and 5xx responses.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
