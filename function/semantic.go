package function

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/model"
	"github.com/hupe1980/skillmesh/reliability"
	"github.com/hupe1980/skillmesh/template"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BackendResolver returns the completion backend a semantic function talks
// to. It is called on every invocation so backends can be reconfigured
// after the function was registered.
type BackendResolver func() (model.Completion, error)

// StaticBackend returns a resolver that always yields c.
func StaticBackend(c model.Completion) BackendResolver {
	return func() (model.Completion, error) {
		if c == nil {
			return nil, core.Errorf(core.KindBackendNotFound, "no completion backend configured")
		}
		return c, nil
	}
}

// SemanticOptions configure a SemanticFunction.
type SemanticOptions struct {
	Description string
	// Parameters default to the variables referenced by the template.
	Parameters []core.ParameterView
	Settings   model.CompletionSettings
	Engine     *template.Engine
	// Policy wraps every backend call. Defaults to a single attempt.
	Policy reliability.Policy
	Logger logging.Logger
}

// SemanticFunction is a core.Function whose body is a prompt template.
type SemanticFunction struct {
	skill    string
	name     string
	template string
	backend  BackendResolver
	opts     SemanticOptions
	tracer   trace.Tracer
}

// NewSemantic creates a SemanticFunction owned by skill. An empty skill
// places the function in core.GlobalSkill.
func NewSemantic(skill, name, promptTemplate string, backend BackendResolver, optFns ...func(o *SemanticOptions)) (*SemanticFunction, error) {
	opts := SemanticOptions{Settings: model.DefaultCompletionSettings()}
	for _, fn := range optFns {
		fn(&opts)
	}

	if skill == "" {
		skill = core.GlobalSkill
	}
	if skill != core.GlobalSkill {
		if err := ValidateName("skill", skill); err != nil {
			return nil, err
		}
	}
	if err := ValidateName("function", name); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, core.Errorf(core.KindInvalidFunctionDescription, "semantic function %s.%s has no backend resolver", skill, name)
	}

	if opts.Engine == nil {
		opts.Engine = template.New(func(o *template.Options) { o.Logger = opts.Logger })
	}
	opts.Policy = reliability.OrPassThrough(opts.Policy)
	opts.Logger = logging.OrNoOp(opts.Logger)

	if len(opts.Parameters) == 0 {
		opts.Parameters = templateParameters(promptTemplate)
	}

	return &SemanticFunction{
		skill:    skill,
		name:     name,
		template: promptTemplate,
		backend:  backend,
		opts:     opts,
		tracer:   otel.Tracer("skillmesh/function"),
	}, nil
}

// NewSemanticFromConfig creates a SemanticFunction from a prompt and its
// PromptTemplateConfig. Options applied by optFns win over cfg.
func NewSemanticFromConfig(skill, name, promptTemplate string, cfg *PromptTemplateConfig, backend BackendResolver, optFns ...func(o *SemanticOptions)) (*SemanticFunction, error) {
	if cfg == nil {
		cfg = DefaultPromptTemplateConfig()
	}
	fromCfg := func(o *SemanticOptions) {
		o.Description = cfg.Description
		o.Parameters = cfg.ParameterViews()
		o.Settings = cfg.Completion
	}
	return NewSemantic(skill, name, promptTemplate, backend, append([]func(o *SemanticOptions){fromCfg}, optFns...)...)
}

// templateParameters lists the distinct variables a prompt references, in
// order of first use.
func templateParameters(promptTemplate string) []core.ParameterView {
	blocks, err := template.ExtractBlocks(promptTemplate, false)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var params []core.ParameterView
	for _, b := range blocks {
		if b.Type != template.VariableBlock {
			continue
		}
		name := b.VariableName()
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		params = append(params, core.ParameterView{Name: name})
	}
	return params
}

// Name implements core.Function.
func (f *SemanticFunction) Name() string { return f.name }

// SkillName implements core.Function.
func (f *SemanticFunction) SkillName() string { return f.skill }

// Description implements core.Function.
func (f *SemanticFunction) Description() string { return f.opts.Description }

// IsSemantic implements core.Function.
func (f *SemanticFunction) IsSemantic() bool { return true }

// Template returns the raw prompt template.
func (f *SemanticFunction) Template() string { return f.template }

// Settings returns the completion settings sent with every request.
func (f *SemanticFunction) Settings() model.CompletionSettings { return f.opts.Settings }

// Parameters implements core.Function.
func (f *SemanticFunction) Parameters() []core.ParameterView {
	return append([]core.ParameterView(nil), f.opts.Parameters...)
}

// View implements core.Function.
func (f *SemanticFunction) View() core.FunctionView {
	return core.FunctionView{
		Name:        f.name,
		SkillName:   f.skill,
		Description: f.opts.Description,
		IsSemantic:  true,
		Parameters:  f.Parameters(),
	}
}

// Invoke renders the prompt, calls the backend and stores the completion as
// the new input. Failures are recorded in c, which is returned.
func (f *SemanticFunction) Invoke(c *core.Context) *core.Context {
	ctx, span := f.tracer.Start(c.Context(), "SemanticFunction.Invoke",
		trace.WithAttributes(
			attribute.String("skill", f.skill),
			attribute.String("function", f.name),
		))
	defer span.End()

	for _, p := range f.opts.Parameters {
		if p.DefaultValue != "" && !c.Variables().Has(p.Name) {
			c.Variables().Set(p.Name, p.DefaultValue)
		}
	}

	prompt, err := f.opts.Engine.Render(c, f.template)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return c
	}

	backend, err := f.backend()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend not found")
		return c.Fail("completion backend not available", err)
	}
	span.SetAttributes(attribute.String("backend", backend.Info().Name))

	start := time.Now()
	var completion string
	err = f.opts.Policy.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		completion, callErr = backend.Complete(ctx, prompt, f.opts.Settings)
		return callErr
	})
	dur := time.Since(start)

	if err != nil {
		f.opts.Logger.Error("backend.call.failed", "skill", f.skill, "function", f.name,
			"backend", backend.Info().Name, "prompt_length", len(prompt), "duration_ms", dur.Milliseconds(), "error", err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return c.Fail("something went wrong while rendering the semantic function or while executing the text completion", err)
	}

	f.opts.Logger.Debug("backend.call.completed", "skill", f.skill, "function", f.name,
		"backend", backend.Info().Name, "prompt_length", len(prompt), "duration_ms", dur.Milliseconds())

	c.Variables().Update(completion)
	c.ClearError()

	return c
}
