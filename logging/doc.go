// Package logging provides a minimal logging interface and adapters for skillmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the kernel, template engine and planner use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - SkillMeshLogger with function, backend and plan step helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "text"})
//	kernel := skillmesh.New(func(o *skillmesh.Options) { o.Logger = logger })
//
// Log messages are dotted event names ("function.invoke.start",
// "planner.step.executed") followed by key/value attributes.
package logging
