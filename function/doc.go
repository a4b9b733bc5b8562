// Package function builds core.Function handles.
//
// Native functions wrap plain Go funcs. The accepted signatures are fixed
// and decided once at construction by a type switch:
//
//	func()
//	func() string
//	func(context.Context) (string, error)
//	func(*core.Context)
//	func(*core.Context) string
//	func(*core.Context) (string, error)
//	func(*core.Context) (*core.Context, error)
//	func(string) string
//	func(string, *core.Context) (string, error)
//
// A returned string replaces the context input. Any other signature is
// rejected with a core.KindFunctionTypeNotSupported error.
//
// Semantic functions own a prompt template. Invoking one renders the
// template against the context, sends the prompt to a completion backend
// through a reliability.Policy and stores the answer as the new input.
package function
