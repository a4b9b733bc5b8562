package core

// GlobalSkill is the skill name used for functions registered without a
// skill. Unqualified function references resolve against it.
const GlobalSkill = "_GLOBAL_FUNCTIONS_"

// Function is the uniform invocation contract shared by native and semantic
// functions. Invoke never panics and never returns an error directly:
// failures are recorded in the returned context's error slot.
type Function interface {
	// Name returns the function name within its skill.
	Name() string
	// SkillName returns the owning skill name.
	SkillName() string
	// Description returns a natural language description used in manuals.
	Description() string
	// IsSemantic reports whether the function body is a prompt template.
	IsSemantic() bool
	// Parameters returns the declared parameters in declaration order.
	Parameters() []ParameterView
	// View returns a serializable description of the function.
	View() FunctionView
	// Invoke runs the function against c and returns the resulting context.
	Invoke(c *Context) *Context
}

// ParameterView describes a single function parameter.
type ParameterView struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	DefaultValue string `json:"defaultValue" yaml:"defaultValue"`
}

// FunctionView is a read-only description of a registered function.
type FunctionView struct {
	Name        string          `json:"name"`
	SkillName   string          `json:"skillName"`
	Description string          `json:"description"`
	IsSemantic  bool            `json:"isSemantic"`
	Parameters  []ParameterView `json:"parameters"`
}

// QualifiedName returns "Skill.Function".
func (v FunctionView) QualifiedName() string { return v.SkillName + "." + v.Name }

// FunctionsView groups function views by skill. Skill keys and the views
// inside each skill are sorted so manuals built from it are stable.
type FunctionsView struct {
	SemanticFunctions map[string][]FunctionView `json:"semanticFunctions"`
	NativeFunctions   map[string][]FunctionView `json:"nativeFunctions"`
}

// ReadOnlyRegistry is the lookup side of the function registry, shared by
// every context. Implementations must be safe for concurrent reads.
type ReadOnlyRegistry interface {
	HasFunction(skill, name string) bool
	HasSemanticFunction(skill, name string) bool
	HasNativeFunction(skill, name string) bool
	// GetFunction resolves skill.name. An empty skill resolves against the
	// global skill only.
	GetFunction(skill, name string) (Function, error)
	FunctionsView(includeSemantic, includeNative bool) FunctionsView
}
