package planning

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// AvailableFunctionsKey is the prompt variable holding the functions manual.
const AvailableFunctionsKey = "available_functions"

// Kernel is what the planner needs from skillmesh.Kernel.
type Kernel interface {
	NewSemanticFunction(skill, name, prompt string, cfg *function.PromptTemplateConfig) (core.Function, error)
	NewContext(ctx context.Context, vars *core.ContextVariables) *core.Context
	Logger() logging.Logger
}

// Options configures a Planner.
type Options struct {
	// MaxTokens bounds the plan generation completion.
	MaxTokens int
	// MaxSteps bounds Execute. Values <= 0 mean unlimited.
	MaxSteps int
	// Prompt overrides FunctionFlowPrompt.
	Prompt string
	// Backend is the completion backend label. Empty uses the default.
	Backend string

	Manual ManualOptions

	// Audit receives one event per executed step. Optional.
	Audit AuditStore
}

// DefaultOptions returns the planner defaults.
func DefaultOptions() Options {
	return Options{
		MaxTokens: 1024,
		MaxSteps:  10,
		Prompt:    FunctionFlowPrompt,
		Manual: ManualOptions{
			ExcludedSkills:       []string{SkillName},
			MaxRelevantFunctions: 100,
		},
	}
}

// Planner creates plans for goals and executes them step by step.
type Planner struct {
	kernel Kernel
	opts   Options
	flow   core.Function
	logger logging.Logger

	tracer trace.Tracer
	steps  metric.Int64Counter
}

// New creates a Planner.
func New(k Kernel, optFns ...func(o *Options)) (*Planner, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Prompt == "" {
		opts.Prompt = FunctionFlowPrompt
	}

	cfg := function.DefaultPromptTemplateConfig()
	cfg.Description = "Create an XML plan of function calls for a goal"
	cfg.Completion = model.CompletionSettings{
		MaxTokens:     opts.MaxTokens,
		Temperature:   0,
		StopSequences: []string{"<!--"},
	}
	if opts.Backend != "" {
		cfg.DefaultBackends = []string{opts.Backend}
	}

	flow, err := k.NewSemanticFunction(SkillName, "FunctionFlow", opts.Prompt, cfg)
	if err != nil {
		return nil, newError(KindCreatePlanError, "plan generation function not available", err)
	}

	p := &Planner{
		kernel: k,
		opts:   opts,
		flow:   flow,
		logger: logging.OrNoOp(k.Logger()),
		tracer: otel.Tracer("skillmesh/planning"),
	}

	p.steps, _ = otel.Meter("skillmesh/planning").Int64Counter("skillmesh.planner.steps",
		metric.WithDescription("Plan steps executed by outcome"))

	return p, nil
}

// CreatePlan asks the backend for a plan that satisfies goal. The returned
// plan has not run any step.
func (p *Planner) CreatePlan(ctx context.Context, goal string) (*Plan, error) {
	return p.createPlan(p.kernel.NewContext(ctx, core.NewContextVariables(goal)), goal, p.opts.Manual)
}

func (p *Planner) createPlan(c *core.Context, goal string, manualOpts ManualOptions) (*Plan, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, newError(KindInvalidGoal, "the goal specified is empty", nil)
	}

	ctx, span := p.tracer.Start(c.Context(), "Planner.CreatePlan")
	defer span.End()

	manual, err := FunctionsManual(c, goal, manualOpts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "manual failed")
		return nil, newError(KindCreatePlanError, "failed to build the functions manual", err)
	}

	vars := core.NewContextVariables(goal)
	vars.Set(AvailableFunctionsKey, manual)

	out := p.flow.Invoke(c.Derive(vars).WithContext(ctx))
	if out.ErrorOccurred() {
		span.RecordError(out.LastError())
		span.SetStatus(codes.Error, "plan generation failed")
		p.logger.Error("planner.create.failed", "goal", goal, "error", out.LastErrorDescription())
		return nil, newError(KindCreatePlanError, out.LastErrorDescription(), out.LastError())
	}

	plan := &Plan{
		ID:     core.NewID(),
		Goal:   goal,
		Markup: fmt.Sprintf("<goal>\n%s\n</goal>\n%s", escapeText(goal), strings.TrimSpace(out.Result())),
	}

	span.SetAttributes(attribute.String("plan.id", plan.ID))
	p.logger.Info("planner.create.completed", "plan_id", plan.ID, "goal", goal)

	return plan, nil
}

// ExecuteStep runs the first remaining function element of plan against
// the variables of c and returns the advanced plan. A complete plan is
// returned unchanged. Unparsable plans and plans without a goal become
// complete and unsuccessful. A failing function or a reference to an
// unknown variable is logged and the step still counts as executed.
func (p *Planner) ExecuteStep(c *core.Context, plan *Plan) *Plan {
	if plan == nil || plan.IsComplete {
		return plan
	}

	_, span := p.tracer.Start(c.Context(), "Planner.ExecuteStep", trace.WithAttributes(attribute.String("plan.id", plan.ID)))
	defer span.End()

	next := plan.Clone()

	doc, err := parseMarkup(next.Markup)
	if err != nil {
		return p.terminate(span, next, err.Error())
	}

	next.Goal = doc.goal
	if doc.goal == "" {
		return p.terminate(span, next, newError(KindInvalidGoal, "no goal found", nil).Error())
	}
	if !doc.hasPlan {
		return p.terminate(span, next, newError(KindInvalidPlan, "failed to parse plan: no <plan> element", nil).Error())
	}

	if len(doc.steps) == 0 {
		next.IsComplete = true
		next.IsSuccessful = true
		p.finish(c, next)
		return next
	}

	s := doc.steps[0]
	span.SetAttributes(attribute.String("function", s.qualifiedName()))

	output, ok := p.runStep(c, next, s)

	next.Markup = removeStep(next.Markup, s)
	next.Steps++
	next.IsSuccessful = true

	if ok {
		c.Variables().Set(InputKey, strings.TrimSpace(output))
	}

	if len(doc.steps) == 1 {
		next.IsComplete = true
		p.finish(c, next)
	}

	return next
}

// runStep invokes the function of s and applies its output directives. It
// reports whether the function produced an output.
func (p *Planner) runStep(c *core.Context, plan *Plan, s step) (string, bool) {
	start := time.Now()
	event := AuditEvent{PlanID: plan.ID, Step: plan.Steps + 1, Function: s.qualifiedName(), StartedAt: start}

	fn, err := c.Func(s.skill, s.name)
	if err != nil {
		p.logger.Warn("planner.step.function_missing", "plan_id", plan.ID, "function", s.qualifiedName())
		event.Status, event.Error = StepSkipped, err.Error()
		p.record(c, event, err)
		return "", false
	}

	input, ok := c.Variables().Get(InputKey)
	if !ok {
		input = plan.Goal
	}
	vars := core.NewContextVariables(input)

	var setVariable, appendTo string
	for _, attr := range s.attrs {
		switch {
		case strings.EqualFold(attr.Name.Local, setContextVariableAttr):
			setVariable = strings.TrimPrefix(attr.Value, "$")
		case strings.EqualFold(attr.Name.Local, appendToResultAttr):
			appendTo = strings.TrimPrefix(attr.Value, "$")
		case strings.HasPrefix(attr.Value, "$"):
			name := attr.Value[1:]
			value, found := c.Variables().Get(name)
			if !found {
				p.logger.Warn("planner.step.missing_variable", "plan_id", plan.ID, "function", s.qualifiedName(), "variable", name)
				continue
			}
			vars.Set(attr.Name.Local, value)
		default:
			vars.Set(attr.Name.Local, attr.Value)
		}
	}

	p.logger.Debug("planner.step.executing", "plan_id", plan.ID, "function", s.qualifiedName())

	out := fn.Invoke(c.Derive(vars))
	event.FinishedAt = time.Now()

	if out.ErrorOccurred() {
		p.logger.Warn("planner.step.failed", "plan_id", plan.ID, "function", s.qualifiedName(), "error", out.LastErrorDescription())
		event.Status, event.Error = StepFailed, out.LastErrorDescription()
		p.record(c, event, out.LastError())
		return "", false
	}

	output := out.Result()
	c.Variables().Update(output)

	if setVariable != "" {
		c.Variables().Set(setVariable, output)
	}
	if appendTo != "" {
		plan.Result = appendResult(plan.Result, appendTo+"\n"+output)
	}

	p.logger.Debug("planner.step.executed", "plan_id", plan.ID, "function", s.qualifiedName())
	event.Status, event.Output = StepSucceeded, output
	p.record(c, event, nil)

	return output, true
}

func (p *Planner) record(c *core.Context, event AuditEvent, err error) {
	if event.FinishedAt.IsZero() {
		event.FinishedAt = time.Now()
	}

	if l, ok := p.logger.(interface {
		LogPlanStep(planID, step string, dur time.Duration, err error)
	}); ok {
		l.LogPlanStep(event.PlanID, event.Function, event.FinishedAt.Sub(event.StartedAt), err)
	}

	if p.steps != nil {
		p.steps.Add(c.Context(), 1, metric.WithAttributes(attribute.String("status", event.Status)))
	}

	if p.opts.Audit == nil {
		return
	}
	if rerr := p.opts.Audit.Record(c.Context(), event); rerr != nil {
		p.logger.Warn("planner.audit.failed", "plan_id", event.PlanID, "error", rerr.Error())
	}
}

// finish fills an empty result of a successful plan with the last output.
func (p *Planner) finish(c *core.Context, plan *Plan) {
	if plan.IsSuccessful && plan.Result == "" {
		if last, ok := c.Variables().Get(InputKey); ok {
			plan.Result = last
		}
	}
	p.logger.Info("planner.plan.completed", "plan_id", plan.ID, "steps", plan.Steps, "successful", plan.IsSuccessful)
}

func (p *Planner) terminate(span trace.Span, plan *Plan, diagnostic string) *Plan {
	plan.IsComplete = true
	plan.IsSuccessful = false
	plan.Result = appendResult(plan.Result, diagnostic)

	span.SetStatus(codes.Error, diagnostic)
	p.logger.Warn("planner.plan.failed", "plan_id", plan.ID, "result", diagnostic)

	return plan
}

func appendResult(result, block string) string {
	if result == "" {
		return strings.TrimSpace(block)
	}
	return strings.TrimSpace(result + "\n\n" + block)
}

// Execute runs ExecuteStep until the plan completes, the step budget is
// exhausted or ctx is canceled. vars seed the context the steps run
// against; nil starts empty.
func (p *Planner) Execute(ctx context.Context, plan *Plan, vars *core.ContextVariables) (*Plan, error) {
	if vars == nil {
		vars = core.NewContextVariables("")
	}
	c := p.kernel.NewContext(ctx, vars)
	budget := NewStepBudget(p.opts.MaxSteps)

	for plan != nil && !plan.IsComplete {
		if err := ctx.Err(); err != nil {
			return plan, core.NewError(core.KindCanceled, "plan execution canceled", err)
		}
		if err := budget.Take(); err != nil {
			p.logger.Warn("planner.budget.exhausted", "plan_id", plan.ID, "max_steps", p.opts.MaxSteps)
			return plan, err
		}
		plan = p.ExecuteStep(c, plan)
	}

	return plan, nil
}

// escapeText makes s safe as XML character data.
func escapeText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
