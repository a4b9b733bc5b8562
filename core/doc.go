// Package core provides the foundational types shared by every skillmesh
// package:
//
//   - ContextVariables, the ordered case-insensitive variable bag whose
//     "input" entry carries a function's primary input and output
//   - Context, the per-request execution context with cancellation, a
//     read-only registry view, semantic memory and the error slot
//   - Function, the uniform invocation contract implemented by native and
//     semantic functions, plus FunctionView / ParameterView descriptions
//   - Error, the typed error used for construction time and invocation
//     failures
//   - SemanticMemory, the narrow interface to embedding backed memory
//
// The package intentionally keeps implementation concerns (template
// rendering, backends, storage, planning) out of scope so those packages
// can depend on core without depending on each other.
package core
