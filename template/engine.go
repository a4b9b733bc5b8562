package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/logging"
	"golang.org/x/sync/errgroup"
)

// Options configures an Engine.
type Options struct {
	// Logger receives render diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
	// MaxParallel bounds how many code blocks of one render pass run at the
	// same time. Values <= 1 evaluate code blocks sequentially.
	MaxParallel int
}

// Engine renders prompt templates: it resolves {{$variables}} from the
// context and replaces {{function calls}} with the output of the function.
//
// Every code block of a render pass is evaluated against the same frozen
// snapshot of the caller's variables, so blocks never observe each other's
// side effects. This makes concurrent evaluation (MaxParallel > 1) produce
// the same output as sequential evaluation; only the order in which the
// functions start differs. Output is always assembled in source order.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Engine{opts: opts}
}

// ExtractBlocks tokenizes a template. See the package level ExtractBlocks.
func (e *Engine) ExtractBlocks(template string, validate bool) ([]Block, error) {
	return ExtractBlocks(template, validate)
}

// Render tokenizes and renders a template against c. On failure the error
// is also recorded in c.
func (e *Engine) Render(c *core.Context, template string) (string, error) {
	blocks, err := ExtractBlocks(template, false)
	if err != nil {
		c.Fail("template rendering failed", err)
		return "", err
	}
	return e.RenderCode(c, e.RenderVariables(blocks, c.Variables()))
}

// RenderVariables replaces every variable block with a text block holding
// the variable's current value. Undefined variables render as the empty
// string.
func (e *Engine) RenderVariables(blocks []Block, variables *core.ContextVariables) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		if b.Type != VariableBlock {
			out[i] = b
			continue
		}

		value, ok := variables.Get(b.VariableName())
		if !ok {
			e.opts.Logger.Warn("template.render.variable_missing", "variable", b.VariableName())
		}
		out[i] = Block{Type: TextBlock, Content: value, Source: b.Source}
	}
	return out
}

// RenderCode evaluates every code block and concatenates the output of all
// blocks. Any remaining variable blocks are resolved like RenderVariables.
// The first failing block, in source order, aborts rendering; its error is
// recorded in c and returned.
func (e *Engine) RenderCode(c *core.Context, blocks []Block) (string, error) {
	snapshot := c.Variables().Clone()

	outputs := make([]string, len(blocks))
	errs := make([]error, len(blocks))

	var codeIdx []int
	for i, b := range blocks {
		switch b.Type {
		case CodeBlock:
			codeIdx = append(codeIdx, i)
		case VariableBlock:
			outputs[i], _ = snapshot.Get(b.VariableName())
		default:
			outputs[i] = b.Content
		}
	}

	if e.opts.MaxParallel > 1 && len(codeIdx) > 1 {
		var g errgroup.Group
		g.SetLimit(e.opts.MaxParallel)
		for _, i := range codeIdx {
			g.Go(func() error {
				outputs[i], errs[i] = e.evaluate(c, snapshot, blocks[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, i := range codeIdx {
			if outputs[i], errs[i] = e.evaluate(c, snapshot, blocks[i]); errs[i] != nil {
				break
			}
		}
	}

	for _, i := range codeIdx {
		if err := errs[i]; err != nil {
			e.opts.Logger.Error("template.render.code_failed", "block", blocks[i].Content, "error", err.Error())
			c.Fail(fmt.Sprintf("template code block %q failed", blocks[i].Content), err)
			return "", err
		}
	}

	return strings.Join(outputs, ""), nil
}

// evaluate runs a single code block against the frozen snapshot.
func (e *Engine) evaluate(c *core.Context, snapshot *core.ContextVariables, b Block) (string, error) {
	if err := c.Context().Err(); err != nil {
		return "", core.NewError(core.KindCanceled, "rendering canceled", err)
	}

	expr, err := parseCall(b.Content)
	if err != nil {
		return "", &SyntaxError{Kind: InvalidCodeSyntax, Message: err.Error()}
	}

	fn, err := c.Func(expr.skill, expr.function)
	if err != nil {
		return "", err
	}

	vars := core.NewContextVariables(snapshot.Input())
	if expr.input != nil {
		vars.Update(resolve(snapshot, *expr.input, e.opts.Logger))
	}
	for _, arg := range expr.named {
		vars.Set(arg.name, resolve(snapshot, arg.value, e.opts.Logger))
	}

	start := time.Now()
	e.opts.Logger.Debug("template.render.code", "function", expr.qualifiedName())

	result := fn.Invoke(c.Derive(vars))
	if result.ErrorOccurred() {
		return "", core.NewError(core.KindFunctionInvokeError,
			fmt.Sprintf("function %s failed: %s", expr.qualifiedName(), result.LastErrorDescription()),
			result.LastError())
	}

	e.opts.Logger.Debug("template.render.code_done", "function", expr.qualifiedName(), "duration_ms", time.Since(start).Milliseconds())

	return result.Result(), nil
}

func resolve(snapshot *core.ContextVariables, arg argument, logger logging.Logger) string {
	if !arg.variable {
		return arg.value
	}
	value, ok := snapshot.Get(arg.value)
	if !ok {
		logger.Warn("template.render.variable_missing", "variable", arg.value)
	}
	return value
}
