package function

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/skillmesh/core"
)

// Definition declares a native function before it is adapted.
type Definition struct {
	Name        string
	Description string
	Parameters  []core.ParameterView
	// Fn is one of the supported signatures listed in the package doc.
	Fn any
}

// NativeSkill is implemented by types that expose a group of native
// functions, e.g. the skills package.
type NativeSkill interface {
	Functions() []Definition
}

// Shape identifies which of the supported signatures a native function has.
type Shape int

const (
	ShapeNoArgs Shape = iota
	ShapeReturnsString
	ShapeContextReturnsString
	ShapeTakesContext
	ShapeTakesContextReturnsString
	ShapeTakesContextReturnsStringErr
	ShapeTakesContextReturnsContext
	ShapeInputReturnsString
	ShapeInputAndContext
)

var shapeNames = [...]string{
	"func()",
	"func() string",
	"func(context.Context) (string, error)",
	"func(*core.Context)",
	"func(*core.Context) string",
	"func(*core.Context) (string, error)",
	"func(*core.Context) (*core.Context, error)",
	"func(string) string",
	"func(string, *core.Context) (string, error)",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "unknown"
	}
	return shapeNames[s]
}

// NativeFunction is a core.Function backed by Go code.
type NativeFunction struct {
	skill       string
	name        string
	description string
	params      []core.ParameterView
	shape       Shape
	call        func(c *core.Context) (*core.Context, error)
}

// NewNative adapts def into a NativeFunction owned by skill. An empty
// skill places the function in core.GlobalSkill.
func NewNative(skill string, def Definition) (*NativeFunction, error) {
	if skill == "" {
		skill = core.GlobalSkill
	}
	if skill != core.GlobalSkill {
		if err := ValidateName("skill", skill); err != nil {
			return nil, err
		}
	}
	if err := ValidateName("function", def.Name); err != nil {
		return nil, err
	}

	shape, call, err := adapt(def.Fn)
	if err != nil {
		return nil, core.NewError(core.KindFunctionTypeNotSupported,
			fmt.Sprintf("function type not supported: %s.%s has signature %T", skill, def.Name, def.Fn), err)
	}

	params := def.Parameters
	if len(params) == 0 && (shape == ShapeInputReturnsString || shape == ShapeInputAndContext) {
		params = []core.ParameterView{{Name: core.MainKey, Description: "Input string"}}
	}

	return &NativeFunction{
		skill:       skill,
		name:        def.Name,
		description: def.Description,
		params:      append([]core.ParameterView(nil), params...),
		shape:       shape,
		call:        call,
	}, nil
}

// MustNative is like NewNative but panics on error. Intended for package
// level skill tables.
func MustNative(skill string, def Definition) *NativeFunction {
	fn, err := NewNative(skill, def)
	if err != nil {
		panic(err)
	}
	return fn
}

// adapt inspects fn once and returns the closure used on every Invoke.
func adapt(fn any) (Shape, func(c *core.Context) (*core.Context, error), error) {
	setInput := func(c *core.Context, s string) (*core.Context, error) {
		c.Variables().Update(s)
		return c, nil
	}

	switch f := fn.(type) {
	case func():
		return ShapeNoArgs, func(c *core.Context) (*core.Context, error) {
			f()
			return c, nil
		}, nil
	case func() string:
		return ShapeReturnsString, func(c *core.Context) (*core.Context, error) {
			return setInput(c, f())
		}, nil
	case func(context.Context) (string, error):
		return ShapeContextReturnsString, func(c *core.Context) (*core.Context, error) {
			s, err := f(c.Context())
			if err != nil {
				return c, err
			}
			return setInput(c, s)
		}, nil
	case func(*core.Context):
		return ShapeTakesContext, func(c *core.Context) (*core.Context, error) {
			f(c)
			return c, nil
		}, nil
	case func(*core.Context) string:
		return ShapeTakesContextReturnsString, func(c *core.Context) (*core.Context, error) {
			return setInput(c, f(c))
		}, nil
	case func(*core.Context) (string, error):
		return ShapeTakesContextReturnsStringErr, func(c *core.Context) (*core.Context, error) {
			s, err := f(c)
			if err != nil {
				return c, err
			}
			return setInput(c, s)
		}, nil
	case func(*core.Context) (*core.Context, error):
		return ShapeTakesContextReturnsContext, func(c *core.Context) (*core.Context, error) {
			out, err := f(c)
			if out == nil {
				out = c
			}
			return out, err
		}, nil
	case func(string) string:
		return ShapeInputReturnsString, func(c *core.Context) (*core.Context, error) {
			return setInput(c, f(c.Variables().Input()))
		}, nil
	case func(string, *core.Context) (string, error):
		return ShapeInputAndContext, func(c *core.Context) (*core.Context, error) {
			s, err := f(c.Variables().Input(), c)
			if err != nil {
				return c, err
			}
			return setInput(c, s)
		}, nil
	case nil:
		return 0, nil, fmt.Errorf("nil function")
	default:
		return 0, nil, fmt.Errorf("unsupported signature %T", fn)
	}
}

// Name implements core.Function.
func (f *NativeFunction) Name() string { return f.name }

// SkillName implements core.Function.
func (f *NativeFunction) SkillName() string { return f.skill }

// Description implements core.Function.
func (f *NativeFunction) Description() string { return f.description }

// IsSemantic implements core.Function.
func (f *NativeFunction) IsSemantic() bool { return false }

// Parameters implements core.Function.
func (f *NativeFunction) Parameters() []core.ParameterView {
	return append([]core.ParameterView(nil), f.params...)
}

// Shape reports the adapted signature.
func (f *NativeFunction) Shape() Shape { return f.shape }

// View implements core.Function.
func (f *NativeFunction) View() core.FunctionView {
	return core.FunctionView{
		Name:        f.name,
		SkillName:   f.skill,
		Description: f.description,
		IsSemantic:  false,
		Parameters:  f.Parameters(),
	}
}

// Invoke implements core.Function. Errors and panics raised by the wrapped
// func are recorded in the returned context.
func (f *NativeFunction) Invoke(c *core.Context) (out *core.Context) {
	start := time.Now()
	lc := c.WithLogAttrs("skill", f.skill, "function", f.name)
	lc.LogDebug("function.invoke.start")

	defer func() {
		if r := recover(); r != nil {
			err := core.Errorf(core.KindFunctionInvokeError, "function %s.%s panicked: %v", f.skill, f.name, r)
			lc.LogError("function.invoke.panic", "panic", fmt.Sprint(r))
			out = c.Fail(err.Error(), err)
		}
	}()

	if err := c.Context().Err(); err != nil {
		return c.Fail("function invocation canceled", core.NewError(core.KindCanceled, "invocation canceled", err))
	}

	out, err := f.call(c)
	if err != nil {
		lc.LogWarn("function.invoke.failed", "error", err.Error())
		return out.Fail(fmt.Sprintf("function %s.%s failed: %s", f.skill, f.name, err), err)
	}

	lc.LogDebug("function.invoke.completed", "duration_ms", time.Since(start).Milliseconds())

	return out
}
