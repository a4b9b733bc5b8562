// Package registry holds the two level skill → function namespace shared by
// every execution context.
//
// Registration happens while the kernel is being set up; lookups may then
// run concurrently from any number of contexts. Names are case-insensitive.
package registry

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/skillmesh/core"
)

// Collection stores registered functions grouped by skill. It is safe for
// concurrent use.
type Collection struct {
	mu     sync.RWMutex
	skills map[string]map[string]core.Function
}

// New creates an empty Collection.
func New() *Collection {
	return &Collection{skills: make(map[string]map[string]core.Function)}
}

func normalize(skill string) string {
	if skill == "" {
		skill = core.GlobalSkill
	}
	return strings.ToLower(skill)
}

// Add registers fn under its own skill and name. Registering the same
// qualified name twice fails with core.KindDuplicateFunction.
func (r *Collection) Add(fn core.Function) error {
	if fn == nil {
		return core.Errorf(core.KindInvalidFunctionDescription, "function is nil")
	}

	skill, name := normalize(fn.SkillName()), strings.ToLower(fn.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	fns, ok := r.skills[skill]
	if !ok {
		fns = make(map[string]core.Function)
		r.skills[skill] = fns
	}
	if _, exists := fns[name]; exists {
		return core.Errorf(core.KindDuplicateFunction, "function %s.%s is already registered", fn.SkillName(), fn.Name())
	}
	fns[name] = fn

	return nil
}

func (r *Collection) lookup(skill, name string) (core.Function, bool) {
	fns, ok := r.skills[normalize(skill)]
	if !ok {
		return nil, false
	}
	fn, ok := fns[strings.ToLower(name)]
	return fn, ok
}

// GetFunction resolves skill.name, falling back to the global skill when
// the named skill has no such function.
func (r *Collection) GetFunction(skill, name string) (core.Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if fn, ok := r.lookup(skill, name); ok {
		return fn, nil
	}
	if skill != "" {
		if fn, ok := r.lookup(core.GlobalSkill, name); ok {
			return fn, nil
		}
	}

	if skill == "" {
		return nil, core.Errorf(core.KindFunctionNotAvailable, "function not available: %s", name)
	}
	return nil, core.Errorf(core.KindFunctionNotAvailable, "function not available: %s.%s", skill, name)
}

// HasFunction reports whether skill.name is registered, without falling
// back to the global skill.
func (r *Collection) HasFunction(skill, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lookup(skill, name)
	return ok
}

// HasSemanticFunction is like HasFunction but only matches semantic
// functions.
func (r *Collection) HasSemanticFunction(skill, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.lookup(skill, name)
	return ok && fn.IsSemantic()
}

// HasNativeFunction is like HasFunction but only matches native functions.
func (r *Collection) HasNativeFunction(skill, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.lookup(skill, name)
	return ok && !fn.IsSemantic()
}

// FunctionsView returns views of the registered functions, grouped by the
// skill name as registered and sorted by function name.
func (r *Collection) FunctionsView(includeSemantic, includeNative bool) core.FunctionsView {
	view := core.FunctionsView{
		SemanticFunctions: make(map[string][]core.FunctionView),
		NativeFunctions:   make(map[string][]core.FunctionView),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, fns := range r.skills {
		for _, fn := range fns {
			v := fn.View()
			switch {
			case fn.IsSemantic() && includeSemantic:
				view.SemanticFunctions[v.SkillName] = append(view.SemanticFunctions[v.SkillName], v)
			case !fn.IsSemantic() && includeNative:
				view.NativeFunctions[v.SkillName] = append(view.NativeFunctions[v.SkillName], v)
			}
		}
	}

	byName := func(a, b core.FunctionView) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	for _, vs := range view.SemanticFunctions {
		slices.SortFunc(vs, byName)
	}
	for _, vs := range view.NativeFunctions {
		slices.SortFunc(vs, byName)
	}

	return view
}

// Functions returns every registered function sorted by qualified name.
func (r *Collection) Functions() []core.Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.Function
	for _, fns := range r.skills {
		for _, fn := range fns {
			out = append(out, fn)
		}
	}
	slices.SortFunc(out, func(a, b core.Function) int {
		return cmp.Compare(strings.ToLower(a.SkillName()+"."+a.Name()), strings.ToLower(b.SkillName()+"."+b.Name()))
	})
	return out
}

// ReadOnly returns the lookup-only view handed to execution contexts.
func (r *Collection) ReadOnly() core.ReadOnlyRegistry {
	return readOnly{r}
}

// readOnly hides Add from functions that receive the registry through a
// context.
type readOnly struct {
	c *Collection
}

func (v readOnly) HasFunction(skill, name string) bool         { return v.c.HasFunction(skill, name) }
func (v readOnly) HasSemanticFunction(skill, name string) bool { return v.c.HasSemanticFunction(skill, name) }
func (v readOnly) HasNativeFunction(skill, name string) bool   { return v.c.HasNativeFunction(skill, name) }

func (v readOnly) GetFunction(skill, name string) (core.Function, error) {
	return v.c.GetFunction(skill, name)
}

func (v readOnly) FunctionsView(includeSemantic, includeNative bool) core.FunctionsView {
	return v.c.FunctionsView(includeSemantic, includeNative)
}
