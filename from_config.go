package skillmesh

import (
	"context"
	"fmt"

	"github.com/hupe1980/skillmesh/config"
	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/memory"
	"github.com/hupe1980/skillmesh/memory/qdrant"
	"github.com/hupe1980/skillmesh/memory/redis"
	"github.com/hupe1980/skillmesh/memory/sqlite"
	"github.com/hupe1980/skillmesh/model"
	"github.com/hupe1980/skillmesh/model/anthropic"
	"github.com/hupe1980/skillmesh/model/openai"
	"github.com/hupe1980/skillmesh/reliability"
)

// NewFromConfig builds a Kernel with the backends, memory and retry policy
// described by cfg. Call Close to release memory store connections.
func NewFromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Kernel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("skillmesh: nil config")
	}

	logger := cfg.Log.Logger()

	k := New(append([]func(o *Options){func(o *Options) {
		o.Logger = logger
		o.Policy = PolicyFromConfig(cfg.Retry, logger)
	}}, optFns...)...)

	completion, err := completionFromConfig(cfg.Completion)
	if err != nil {
		return nil, err
	}
	if err := k.AddCompletionBackend(cfg.Completion.Label, completion, true); err != nil {
		return nil, err
	}

	if !cfg.Embedding.Enabled() {
		return k, nil
	}

	embedding, err := embeddingFromConfig(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if err := k.AddEmbeddingBackend(cfg.Embedding.Label, embedding, true); err != nil {
		return nil, err
	}

	if !cfg.Memory.Enabled() {
		return k, nil
	}

	store, closer, err := storeFromConfig(ctx, cfg.Memory)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		k.closers = append(k.closers, closer)
	}

	k.RegisterMemory(memory.NewSemanticTextMemory(store, embedding, logger))
	logger.Info("kernel.memory.configured", "provider", cfg.Memory.Provider)

	return k, nil
}

// PolicyFromConfig builds the backend call policy: exponential backoff when
// more than one attempt is configured, optionally behind a rate limiter.
func PolicyFromConfig(cfg config.RetryConfig, logger logging.Logger) reliability.Policy {
	var policy reliability.Policy = reliability.PassThrough{}
	if cfg.MaxAttempts > 1 {
		policy = reliability.NewBackoff(func(o *reliability.BackoffOptions) {
			o.MaxAttempts = cfg.MaxAttempts
			if cfg.InitialDelay > 0 {
				o.InitialDelay = cfg.InitialDelay
			}
			if cfg.MaxDelay > 0 {
				o.MaxDelay = cfg.MaxDelay
			}
			o.Logger = logger
		})
	}
	if cfg.RateLimit > 0 {
		policy = reliability.NewRateLimited(cfg.RateLimit, cfg.Burst, policy)
	}
	return policy
}

func completionFromConfig(cfg config.CompletionConfig) (model.Completion, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewCompletion(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropic.NewCompletion(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "mock":
		return model.NewMockCompletion(cfg.Model), nil
	default:
		return nil, core.Errorf(core.KindInvalidBackendConfiguration, "unknown completion provider %q", cfg.Provider)
	}
}

func embeddingFromConfig(cfg config.EmbeddingConfig) (model.Embedding, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewEmbedding(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "mock":
		return model.NewMockEmbedding(), nil
	default:
		return nil, core.Errorf(core.KindInvalidBackendConfiguration, "unknown embedding provider %q", cfg.Provider)
	}
}

func storeFromConfig(ctx context.Context, cfg config.MemoryConfig) (memory.DataStore, func() error, error) {
	switch cfg.Provider {
	case "volatile":
		return memory.NewVolatileStore(), nil, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "qdrant":
		s, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		s, err := redis.New(ctx, redis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, core.Errorf(core.KindInvalidBackendConfiguration, "unknown memory provider %q", cfg.Provider)
	}
}
