package core

import "github.com/hupe1980/skillmesh/logging"

// contextLogger is the logger a Context writes through. Attributes set with
// Context.WithLogAttrs are prepended to every record.
type contextLogger struct {
	logger logging.Logger
	attrs  []any
}

func newContextLogger(l logging.Logger) *contextLogger {
	return &contextLogger{logger: logging.OrNoOp(l)}
}

// Logger returns the underlying logger without the context attributes.
func (l *contextLogger) Logger() logging.Logger { return l.logger }

// LogAttrs returns the key/value pairs added to every record.
func (l *contextLogger) LogAttrs() []any { return l.attrs }

func (l *contextLogger) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.merge(args)...) }

func (l *contextLogger) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.merge(args)...) }

func (l *contextLogger) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.merge(args)...) }

func (l *contextLogger) LogError(msg string, args ...any) { l.logger.Error(msg, l.merge(args)...) }

func (l *contextLogger) merge(args []any) []any {
	if len(l.attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(l.attrs)+len(args))
	return append(append(out, l.attrs...), args...)
}

func (l *contextLogger) with(kv []any) *contextLogger {
	attrs := make([]any, 0, len(l.attrs)+len(kv))
	attrs = append(append(attrs, l.attrs...), kv...)
	return &contextLogger{logger: l.logger, attrs: attrs}
}

// WithLogAttrs returns a shallow copy of c whose log records carry kv in
// addition to the attributes of c. Variables and the error slot are shared
// the same way as with WithContext.
func (c *Context) WithLogAttrs(kv ...any) *Context {
	cc := *c
	cc.contextLogger = c.contextLogger.with(kv)
	return &cc
}
