// Package anthropic provides a model.Completion backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/skillmesh/model"
)

// Options configures the Anthropic completion adapter.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	// MaxTokens is used when the request settings do not carry a limit.
	// The Messages API requires one.
	MaxTokens int64
}

// Completion wraps the Messages API behind model.Completion.
type Completion struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:     string(anthropic.ModelClaude3_5Sonnet20241022),
		MaxTokens: 1024,
	}
}

// NewCompletion creates a Completion using the official client.
func NewCompletion(optFns ...func(o *Options)) *Completion {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Completion{client: &client, opts: opts}
}

// NewCompletionFromClient creates a Completion from an existing client.
func NewCompletionFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Completion {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completion{client: client, opts: opts}
}

// Complete implements model.Completion. The prompt is sent as a single user
// message and all returned text blocks are concatenated.
func (c *Completion) Complete(ctx context.Context, prompt string, settings model.CompletionSettings) (string, error) {
	maxTokens := c.opts.MaxTokens
	if settings.MaxTokens > 0 {
		maxTokens = int64(settings.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(settings.Temperature),
	}
	if settings.TopP > 0 {
		params.TopP = anthropic.Float(settings.TopP)
	}
	if len(settings.StopSequences) > 0 {
		params.StopSequences = settings.StopSequences
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	return sb.String(), nil
}

// Info returns metadata describing this backend.
func (c *Completion) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: "anthropic"}
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return model.ErrorFromStatus(apiErr.StatusCode, apiErr.Error(), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return model.NewError(model.CodeUnknown, "anthropic request failed", err)
}
