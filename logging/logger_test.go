package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger = NoOpLogger{}
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*SkillMeshLogger)(nil)
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
}

func TestSkillMeshLogger_KeyValueAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).WithComponent("planner")

	l.Info("planner.step.executed", "plan_id", "p1", "step", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "planner.step.executed", entry["msg"])
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, "p1", entry["plan_id"])
	assert.EqualValues(t, 2, entry["step"])
}

func TestSkillMeshLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Output: &buf})

	l.Debug("dropped")
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSkillMeshLogger_WithContextDoesNotMutate(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf})
	_ = base.WithContext("request", "r1")

	base.Info("x")
	assert.NotContains(t, buf.String(), "r1")
}

func TestSkillMeshLogger_DomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})

	l.LogFunctionCall("text", "uppercase", time.Millisecond, nil)
	assert.Contains(t, buf.String(), "function.invoke.completed")

	buf.Reset()
	l.LogBackendCall("openai", 42, time.Millisecond, errors.New("boom"))
	assert.Contains(t, buf.String(), "backend.call.failed")
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	l.LogPlanStep("p1", "function.text.trim", time.Millisecond, nil)
	assert.Contains(t, buf.String(), "planner.step.completed")
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}
