// Package openai provides model.Completion and model.Embedding backed by
// the OpenAI API. Completions use the Chat Completions endpoint with the
// rendered prompt sent as a single user message.
package openai

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/skillmesh/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the OpenAI adapters.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	// ValidateModel looks the model up once before the first request and
	// fails fast with model-not-found when it does not exist. The result is
	// cached on the adapter instance.
	ValidateModel bool
}

func clientOptions(opts Options) []option.RequestOption {
	// Retries are the job of the kernel's retry policy.
	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return reqOpts
}

// modelCheck memoizes the existence check of a model name per adapter
// instance so several configurations can coexist in one process.
type modelCheck struct {
	mu      sync.Mutex
	checked bool
	err     error
}

func (m *modelCheck) verify(ctx context.Context, client *openai.Client, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checked {
		return m.err
	}

	_, err := client.Models.Get(ctx, name)
	if err != nil {
		mapped := mapError(err)
		if model.CodeOf(mapped) == model.CodeThrottled || model.CodeOf(mapped) == model.CodeServiceUnavailable {
			// Transient, try again next time.
			return mapped
		}
		m.err = mapped
	}
	m.checked = true

	return m.err
}

// Completion wraps the Chat Completions API behind model.Completion.
type Completion struct {
	client *openai.Client
	opts   Options
	check  modelCheck
}

// NewCompletion creates a Completion using a new official client.
func NewCompletion(optFns ...func(o *Options)) *Completion {
	opts := Options{Model: openai.ChatModelGPT4oMini}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(clientOptions(opts)...)
	return &Completion{client: &client, opts: opts}
}

// NewCompletionFromClient creates a Completion from an existing client.
func NewCompletionFromClient(client *openai.Client, optFns ...func(o *Options)) *Completion {
	opts := Options{Model: openai.ChatModelGPT4oMini}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completion{client: client, opts: opts}
}

// Complete implements model.Completion.
func (c *Completion) Complete(ctx context.Context, prompt string, settings model.CompletionSettings) (string, error) {
	if c.opts.ValidateModel {
		if err := c.check.verify(ctx, c.client, c.opts.Model); err != nil {
			return "", err
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, buildParams(c.opts.Model, prompt, settings))
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", model.NewError(model.CodeInvalidResponse, "no choices returned", nil)
	}

	return resp.Choices[0].Message.Content, nil
}

func buildParams(name, prompt string, settings model.CompletionSettings) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:         []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:            name,
		Temperature:      openai.Float(settings.Temperature),
		PresencePenalty:  openai.Float(settings.PresencePenalty),
		FrequencyPenalty: openai.Float(settings.FrequencyPenalty),
	}
	if settings.TopP > 0 {
		params.TopP = openai.Float(settings.TopP)
	}
	if settings.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(settings.MaxTokens))
	}
	if len(settings.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: settings.StopSequences}
	}
	return params
}

// Info returns metadata describing this backend.
func (c *Completion) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: "openai"}
}

// Embedding wraps the Embeddings API behind model.Embedding.
type Embedding struct {
	client *openai.Client
	opts   Options
}

// NewEmbedding creates an Embedding using a new official client.
func NewEmbedding(optFns ...func(o *Options)) *Embedding {
	opts := Options{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(clientOptions(opts)...)
	return &Embedding{client: &client, opts: opts}
}

// NewEmbeddingFromClient creates an Embedding from an existing client.
func NewEmbeddingFromClient(client *openai.Client, optFns ...func(o *Options)) *Embedding {
	opts := Options{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedding{client: client, opts: opts}
}

// Embed implements model.Embedding.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.opts.Model,
	})
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, model.NewError(model.CodeInvalidResponse, "embedding count does not match input count", nil)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, model.NewError(model.CodeInvalidResponse, "embedding index out of range", nil)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}

	return out, nil
}

// Info returns metadata describing this backend.
func (e *Embedding) Info() model.Info {
	return model.Info{Name: e.opts.Model, Provider: "openai"}
}

// mapError converts SDK errors into *model.Error, keeping the cause.
func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return model.ErrorFromStatus(apiErr.StatusCode, apiErr.Message, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return model.NewError(model.CodeUnknown, "openai request failed", err)
}
