package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/skillmesh/logging"
)

// Context is the execution context threaded through every function call.
// It carries the variable bag, a read-only registry view, the semantic
// memory, the cancellation signal and the error slot.
//
// Once the error slot is set, pipeline runners stop executing further steps
// and return the context as is. A Context is owned by a single logical
// request and is not safe for concurrent mutation.
type Context struct {
	ctx            context.Context
	variables      *ContextVariables
	registry       ReadOnlyRegistry
	memory         SemanticMemory
	err            error
	errDescription string

	*contextLogger
}

// ContextOptions configures NewContext.
type ContextOptions struct {
	Registry ReadOnlyRegistry
	Memory   SemanticMemory
	Logger   logging.Logger
}

// NewContext creates an execution context. A nil ctx becomes
// context.Background, nil variables an empty bag and a nil memory NullMemory.
func NewContext(ctx context.Context, variables *ContextVariables, optFns ...func(o *ContextOptions)) *Context {
	opts := ContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if variables == nil {
		variables = NewContextVariables("")
	}

	mem := opts.Memory
	if mem == nil {
		mem = NullMemory{}
	}

	return &Context{
		ctx:           ctx,
		variables:     variables,
		registry:      opts.Registry,
		memory:        mem,
		contextLogger: newContextLogger(opts.Logger),
	}
}

// Context returns the cancellation context.
func (c *Context) Context() context.Context { return c.ctx }

// Variables returns the live variable bag.
func (c *Context) Variables() *ContextVariables { return c.variables }

// Result returns the current input value, which is the output of the last
// executed function.
func (c *Context) Result() string { return c.variables.Input() }

// Registry returns the read-only registry view, or nil when the context was
// built without one.
func (c *Context) Registry() ReadOnlyRegistry { return c.registry }

// Memory returns the semantic memory.
func (c *Context) Memory() SemanticMemory { return c.memory }

// Func resolves a function through the registry view.
func (c *Context) Func(skill, name string) (Function, error) {
	if c.registry == nil {
		return nil, Errorf(KindFunctionNotAvailable, "function not available: %s.%s (no registry)", skill, name)
	}
	return c.registry.GetFunction(skill, name)
}

// Fail records an error in the context. The cause is kept verbatim so
// callers can inspect it with errors.As. A nil err is replaced by an error
// carrying description.
func (c *Context) Fail(description string, err error) *Context {
	if err == nil {
		err = errors.New(description)
	}
	if description == "" {
		description = err.Error()
	}
	c.err = err
	c.errDescription = description
	return c
}

// ErrorOccurred reports whether the error slot is set.
func (c *Context) ErrorOccurred() bool { return c.err != nil }

// LastError returns the recorded error, or nil.
func (c *Context) LastError() error { return c.err }

// LastErrorDescription returns the human readable description of the
// recorded error.
func (c *Context) LastErrorDescription() string { return c.errDescription }

// ClearError empties the error slot.
func (c *Context) ClearError() {
	c.err = nil
	c.errDescription = ""
}

// Canceled reports whether the cancellation signal fired.
func (c *Context) Canceled() bool { return c.ctx.Err() != nil }

// Derive returns a fresh context sharing cancellation, registry, memory and
// logger with c but holding the given variables and an empty error slot.
func (c *Context) Derive(variables *ContextVariables) *Context {
	if variables == nil {
		variables = NewContextVariables("")
	}
	return &Context{
		ctx:           c.ctx,
		variables:     variables,
		registry:      c.registry,
		memory:        c.memory,
		contextLogger: c.contextLogger,
	}
}

// WithContext returns a shallow copy of c bound to ctx, e.g. to carry a
// tracing span. The variable bag is shared with c.
func (c *Context) WithContext(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	cc := *c
	cc.ctx = ctx
	return &cc
}

// String returns the result, or the error description when an error occurred.
func (c *Context) String() string {
	if c.err != nil {
		return fmt.Sprintf("Error: %s", c.errDescription)
	}
	return c.Result()
}
