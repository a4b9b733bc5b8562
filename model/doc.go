// Package model defines the provider agnostic backend contracts consumed by
// semantic functions and semantic memory.
//
//   - Completion turns a rendered prompt plus CompletionSettings into text
//   - Embedding turns texts into vectors
//   - Error classifies provider failures (throttled, unauthorized,
//     model-not-found, ...) so retry policies and callers can react
//     without knowing the vendor SDK
//
// Providers (model/openai, model/anthropic) implement these interfaces so
// higher layers stay decoupled from vendor SDKs. MockCompletion and
// MockEmbedding are deterministic stand-ins for tests and examples.
package model
