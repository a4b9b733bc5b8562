package testutil

import (
	"context"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/registry"
)

// ContextBuilder provides a fluent helper for constructing execution
// contexts in tests.
// Example:
//
//	c := NewContextBuilder().Input("hi").Var("lang", "fr").Functions(fn).Build()
type ContextBuilder struct {
	ctx       context.Context
	input     string
	vars      [][2]string
	functions []core.Function
	memory    core.SemanticMemory
	logger    logging.Logger
}

// NewContextBuilder creates a builder with an empty input.
func NewContextBuilder() *ContextBuilder { return &ContextBuilder{ctx: context.Background()} }

// Context sets the cancellation context (chainable).
func (b *ContextBuilder) Context(ctx context.Context) *ContextBuilder { b.ctx = ctx; return b }

// Input sets the main input (chainable).
func (b *ContextBuilder) Input(s string) *ContextBuilder { b.input = s; return b }

// Var sets a named variable (chainable).
func (b *ContextBuilder) Var(name, value string) *ContextBuilder {
	b.vars = append(b.vars, [2]string{name, value})
	return b
}

// Functions registers fns in the registry of the built context (chainable).
func (b *ContextBuilder) Functions(fns ...core.Function) *ContextBuilder {
	b.functions = append(b.functions, fns...)
	return b
}

// Memory sets the semantic memory (chainable).
func (b *ContextBuilder) Memory(m core.SemanticMemory) *ContextBuilder { b.memory = m; return b }

// Logger sets the logger (chainable).
func (b *ContextBuilder) Logger(l logging.Logger) *ContextBuilder { b.logger = l; return b }

// Build returns the context. It panics when a function cannot be
// registered, which in tests means the fixture itself is broken.
func (b *ContextBuilder) Build() *core.Context {
	vars := core.NewContextVariables(b.input)
	for _, kv := range b.vars {
		vars.Set(kv[0], kv[1])
	}

	reg := registry.New()
	for _, fn := range b.functions {
		if err := reg.Add(fn); err != nil {
			panic(err)
		}
	}

	return core.NewContext(b.ctx, vars, func(o *core.ContextOptions) {
		o.Registry = reg.ReadOnly()
		o.Memory = b.memory
		o.Logger = b.logger
	})
}
