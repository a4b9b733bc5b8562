// Package skillmesh provides the Kernel, a façade over the function
// registry, the template engine, completion backends and semantic memory.
// Most applications interact with this package by:
//  1. Creating a Kernel via New() or NewFromConfig()
//  2. Adding completion (and optionally embedding) backends by label
//  3. Importing native skills and semantic skills from a directory
//  4. Running pipelines of functions with Run, or handing the kernel to a
//     planning.Planner
package skillmesh

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/model"
	"github.com/hupe1980/skillmesh/registry"
	"github.com/hupe1980/skillmesh/reliability"
	"github.com/hupe1980/skillmesh/template"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// PromptFileName is the prompt template file of a semantic function
	// directory.
	PromptFileName = "skprompt.txt"
)

// Options configures the Kernel.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// MaxParallel bounds concurrent code block evaluation inside one render
	// pass. Values <= 1 render sequentially.
	MaxParallel int

	// Policy wraps every backend call of semantic functions created by the
	// kernel. Defaults to a single attempt.
	Policy reliability.Policy

	// Memory is the semantic memory handed to every context. Defaults to
	// core.NullMemory.
	Memory core.SemanticMemory
}

// Kernel owns the function registry and the backend configuration.
// Registration is expected to happen before concurrent use; Run may be
// called concurrently with independent variables.
type Kernel struct {
	opts     Options
	registry *registry.Collection
	engine   *template.Engine

	mu                sync.RWMutex
	completions       map[string]model.Completion
	defaultCompletion string
	embeddings        map[string]model.Embedding
	defaultEmbedding  string
	memory            core.SemanticMemory
	closers           []func() error

	tracer       trace.Tracer
	stepCounter  metric.Int64Counter
	stepDuration metric.Float64Histogram
}

// New creates a Kernel with an empty registry and no backends.
func New(optFns ...func(o *Options)) *Kernel {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)
	opts.Policy = reliability.OrPassThrough(opts.Policy)

	mem := opts.Memory
	if mem == nil {
		mem = core.NullMemory{}
	}

	k := &Kernel{
		opts:     opts,
		registry: registry.New(),
		engine: template.New(func(o *template.Options) {
			o.Logger = opts.Logger
			o.MaxParallel = opts.MaxParallel
		}),
		completions: make(map[string]model.Completion),
		embeddings:  make(map[string]model.Embedding),
		memory:      mem,
		tracer:      otel.Tracer("skillmesh/kernel"),
	}

	meter := otel.Meter("skillmesh/kernel")
	// Run tolerates nil instruments.
	k.stepCounter, _ = meter.Int64Counter("skillmesh.pipeline.steps",
		metric.WithDescription("Pipeline steps executed by function and outcome"))
	k.stepDuration, _ = meter.Float64Histogram("skillmesh.pipeline.step.duration",
		metric.WithDescription("Pipeline step latency"), metric.WithUnit("ms"))

	return k
}

// Logger returns the kernel logger.
func (k *Kernel) Logger() logging.Logger { return k.opts.Logger }

// Engine returns the template engine shared by all semantic functions.
func (k *Kernel) Engine() *template.Engine { return k.engine }

// Registry returns the read-only registry view.
func (k *Kernel) Registry() core.ReadOnlyRegistry { return k.registry.ReadOnly() }

// AddCompletionBackend registers a completion backend under label. The first
// backend, or any backend added with setDefault, becomes the default.
func (k *Kernel) AddCompletionBackend(label string, c model.Completion, setDefault bool) error {
	if label == "" || c == nil {
		return core.Errorf(core.KindInvalidBackendConfiguration, "completion backend needs a label and an implementation")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.completions[label]; ok {
		return core.Errorf(core.KindInvalidBackendConfiguration, "completion backend %q already exists", label)
	}
	k.completions[label] = c
	if setDefault || k.defaultCompletion == "" {
		k.defaultCompletion = label
	}

	k.opts.Logger.Debug("kernel.backend.added", "kind", "completion", "label", label, "provider", c.Info().Provider)
	return nil
}

// RemoveCompletionBackend drops label. Removing the default leaves the
// kernel without a default completion backend.
func (k *Kernel) RemoveCompletionBackend(label string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.completions, label)
	if k.defaultCompletion == label {
		k.defaultCompletion = ""
	}
}

// SetDefaultCompletionBackend makes label the default completion backend.
func (k *Kernel) SetDefaultCompletionBackend(label string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.completions[label]; !ok {
		return core.Errorf(core.KindBackendNotFound, "completion backend %q not found", label)
	}
	k.defaultCompletion = label
	return nil
}

// CompletionBackend returns the backend registered under label, or the
// default one when label is empty.
func (k *Kernel) CompletionBackend(label string) (model.Completion, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if label == "" {
		if k.defaultCompletion == "" {
			return nil, core.Errorf(core.KindBackendNotFound, "no default completion backend configured")
		}
		label = k.defaultCompletion
	}
	c, ok := k.completions[label]
	if !ok {
		return nil, core.Errorf(core.KindBackendNotFound, "completion backend %q not found", label)
	}
	return c, nil
}

// CompletionBackendLabels returns the registered labels, sorted.
func (k *Kernel) CompletionBackendLabels() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	labels := make([]string, 0, len(k.completions))
	for l := range k.completions {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Backend returns a resolver that looks label up on every call, so
// semantic functions follow later backend changes.
func (k *Kernel) Backend(label string) function.BackendResolver {
	return func() (model.Completion, error) { return k.CompletionBackend(label) }
}

// AddEmbeddingBackend registers an embedding backend under label. The first
// backend, or any backend added with setDefault, becomes the default.
func (k *Kernel) AddEmbeddingBackend(label string, e model.Embedding, setDefault bool) error {
	if label == "" || e == nil {
		return core.Errorf(core.KindInvalidBackendConfiguration, "embedding backend needs a label and an implementation")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.embeddings[label]; ok {
		return core.Errorf(core.KindInvalidBackendConfiguration, "embedding backend %q already exists", label)
	}
	k.embeddings[label] = e
	if setDefault || k.defaultEmbedding == "" {
		k.defaultEmbedding = label
	}
	return nil
}

// RemoveEmbeddingBackend drops label.
func (k *Kernel) RemoveEmbeddingBackend(label string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.embeddings, label)
	if k.defaultEmbedding == label {
		k.defaultEmbedding = ""
	}
}

// SetDefaultEmbeddingBackend makes label the default embedding backend.
func (k *Kernel) SetDefaultEmbeddingBackend(label string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.embeddings[label]; !ok {
		return core.Errorf(core.KindBackendNotFound, "embedding backend %q not found", label)
	}
	k.defaultEmbedding = label
	return nil
}

// EmbeddingBackend returns the backend registered under label, or the
// default one when label is empty.
func (k *Kernel) EmbeddingBackend(label string) (model.Embedding, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if label == "" {
		if k.defaultEmbedding == "" {
			return nil, core.Errorf(core.KindBackendNotFound, "no default embedding backend configured")
		}
		label = k.defaultEmbedding
	}
	e, ok := k.embeddings[label]
	if !ok {
		return nil, core.Errorf(core.KindBackendNotFound, "embedding backend %q not found", label)
	}
	return e, nil
}

// RegisterMemory replaces the semantic memory handed to new contexts.
func (k *Kernel) RegisterMemory(mem core.SemanticMemory) {
	if mem == nil {
		mem = core.NullMemory{}
	}
	k.mu.Lock()
	k.memory = mem
	k.mu.Unlock()
}

// Memory returns the current semantic memory.
func (k *Kernel) Memory() core.SemanticMemory {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.memory
}

// Close releases resources opened by NewFromConfig, e.g. database
// connections of memory stores.
func (k *Kernel) Close() error {
	k.mu.Lock()
	closers := k.closers
	k.closers = nil
	k.mu.Unlock()

	var firstErr error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewSemanticFunction builds a semantic function that renders with the
// kernel engine and calls the backend through the kernel policy, without
// registering it. A nil cfg uses the default prompt configuration. The
// backend is the first of cfg.DefaultBackends, or the kernel default.
func (k *Kernel) NewSemanticFunction(skill, name, prompt string, cfg *function.PromptTemplateConfig) (core.Function, error) {
	if cfg == nil {
		cfg = function.DefaultPromptTemplateConfig()
	}

	label := ""
	if len(cfg.DefaultBackends) > 0 {
		label = cfg.DefaultBackends[0]
	}

	fn, err := function.NewSemanticFromConfig(skill, name, prompt, cfg, k.Backend(label), func(o *function.SemanticOptions) {
		o.Engine = k.engine
		o.Policy = k.opts.Policy
		o.Logger = k.opts.Logger
	})
	if err != nil {
		return nil, err
	}
	return fn, nil
}

// RegisterSemanticFunction creates a semantic function like
// NewSemanticFunction and registers it under skill.name.
func (k *Kernel) RegisterSemanticFunction(skill, name, prompt string, cfg *function.PromptTemplateConfig) (core.Function, error) {
	fn, err := k.NewSemanticFunction(skill, name, prompt, cfg)
	if err != nil {
		return nil, err
	}

	if err := k.registry.Add(fn); err != nil {
		return nil, err
	}

	k.opts.Logger.Debug("kernel.function.registered", "skill", fn.SkillName(), "function", fn.Name(), "semantic", true)
	return fn, nil
}

// CreateSemanticFunction registers an inline prompt under a random name in
// the global skill.
func (k *Kernel) CreateSemanticFunction(prompt string, cfg *function.PromptTemplateConfig) (core.Function, error) {
	return k.RegisterSemanticFunction(core.GlobalSkill, "func"+core.NewCompactID(), prompt, cfg)
}

// RegisterFunction adds an already built function, e.g. a semantic function
// with custom options.
func (k *Kernel) RegisterFunction(fn core.Function) error {
	return k.registry.Add(fn)
}

// ImportSkill registers every function of a native skill under skillName.
// The returned map is keyed by function name.
func (k *Kernel) ImportSkill(skillName string, skill function.NativeSkill) (map[string]core.Function, error) {
	out := make(map[string]core.Function)
	for _, def := range skill.Functions() {
		fn, err := function.NewNative(skillName, def)
		if err != nil {
			return nil, err
		}
		if err := k.registry.Add(fn); err != nil {
			return nil, err
		}
		out[fn.Name()] = fn
	}

	k.opts.Logger.Debug("kernel.skill.imported", "skill", skillName, "functions", len(out))
	return out, nil
}

// ImportSemanticSkillFromDirectory loads <parentDir>/<skill>/<function>/
// directories that contain a skprompt.txt and an optional config.json,
// config.yaml or config.toml. Directories without a prompt are skipped.
func (k *Kernel) ImportSemanticSkillFromDirectory(parentDir, skillDirName string) (map[string]core.Function, error) {
	if err := function.ValidateName("skill", skillDirName); err != nil {
		return nil, err
	}

	skillDir := filepath.Join(parentDir, skillDirName)
	entries, err := os.ReadDir(skillDir)
	if err != nil {
		return nil, core.NewError(core.KindInvalidRequest, fmt.Sprintf("skill directory %s not readable", skillDir), err)
	}

	out := make(map[string]core.Function)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(skillDir, entry.Name())
		prompt, err := os.ReadFile(filepath.Join(dir, PromptFileName))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, core.NewError(core.KindInvalidRequest, fmt.Sprintf("prompt %s not readable", dir), err)
		}

		cfg, err := function.LoadPromptTemplateConfig(dir)
		if err != nil {
			return nil, err
		}

		fn, err := k.RegisterSemanticFunction(skillDirName, entry.Name(), string(prompt), cfg)
		if err != nil {
			return nil, err
		}
		out[fn.Name()] = fn
	}

	k.opts.Logger.Info("kernel.skill.imported", "skill", skillDirName, "functions", len(out), "semantic", true)
	return out, nil
}

// Func resolves skill.name.
func (k *Kernel) Func(skill, name string) (core.Function, error) {
	return k.registry.GetFunction(skill, name)
}

// Skills returns a view of every registered function.
func (k *Kernel) Skills() core.FunctionsView {
	return k.registry.FunctionsView(true, true)
}

// NewContext creates an execution context bound to the kernel registry,
// memory and logger.
func (k *Kernel) NewContext(ctx context.Context, vars *core.ContextVariables) *core.Context {
	return core.NewContext(ctx, vars, func(o *core.ContextOptions) {
		o.Registry = k.registry.ReadOnly()
		o.Memory = k.Memory()
		o.Logger = k.opts.Logger
	})
}

// Run executes pipeline in order against one context. Each step sees the
// variables left by the previous one. Execution stops at the first step
// that records an error, or when ctx is canceled between steps; the
// partially populated context is returned either way.
func (k *Kernel) Run(ctx context.Context, vars *core.ContextVariables, pipeline ...core.Function) *core.Context {
	if vars == nil {
		vars = core.NewContextVariables("")
	}

	ctx, span := k.tracer.Start(ctx, "Kernel.Run", trace.WithAttributes(attribute.Int("pipeline.length", len(pipeline))))
	defer span.End()

	c := k.NewContext(ctx, vars)

	for i, fn := range pipeline {
		if err := ctx.Err(); err != nil {
			c.Fail("pipeline canceled", core.NewError(core.KindCanceled, "pipeline canceled", err))
			k.opts.Logger.Warn("kernel.run.canceled", "step", i)
			break
		}

		c = k.runStep(ctx, c, i, fn)
		if c.ErrorOccurred() {
			k.opts.Logger.Error("kernel.run.step_failed", "step", i, "skill", fn.SkillName(), "function", fn.Name(), "error", c.LastErrorDescription())
			break
		}
	}

	if c.ErrorOccurred() {
		span.RecordError(c.LastError())
		span.SetStatus(codes.Error, c.LastErrorDescription())
	}

	return c
}

func (k *Kernel) runStep(ctx context.Context, c *core.Context, i int, fn core.Function) *core.Context {
	attrs := []attribute.KeyValue{
		attribute.String("skill", fn.SkillName()),
		attribute.String("function", fn.Name()),
	}

	_, span := k.tracer.Start(ctx, "Kernel.Step", trace.WithAttributes(append(attrs, attribute.Int("step", i))...))
	defer span.End()

	start := time.Now()
	out := fn.Invoke(c)
	if out == nil {
		out = c.Fail("function returned no context", core.Errorf(core.KindFunctionInvokeError, "%s.%s returned no context", fn.SkillName(), fn.Name()))
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	success := !out.ErrorOccurred()
	if !success {
		span.RecordError(out.LastError())
		span.SetStatus(codes.Error, out.LastErrorDescription())
	}

	attrs = append(attrs, attribute.Bool("success", success))
	if k.stepCounter != nil {
		k.stepCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if k.stepDuration != nil {
		k.stepDuration.Record(ctx, elapsed, metric.WithAttributes(attrs...))
	}

	return out
}
