package function

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/model"
	"github.com/hupe1980/skillmesh/reliability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticFunction_RenderCompleteUpdate(t *testing.T) {
	backend := model.NewMockCompletion("mock")
	backend.AddResponse("Summarize: long text", "short")

	fn, err := NewSemantic("Writer", "Summarize", "Summarize: {{$input}}", StaticBackend(backend),
		func(o *SemanticOptions) { o.Description = "Summarizes text" })
	require.NoError(t, err)

	c := core.NewContext(context.Background(), core.NewContextVariables("long text"))
	c.Fail("earlier failure", nil)

	out := fn.Invoke(c)
	require.False(t, out.ErrorOccurred())
	assert.Equal(t, "short", out.Result())

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.DefaultCompletionSettings(), calls[0].Settings)
	assert.True(t, fn.IsSemantic())
	assert.Equal(t, "Summarizes text", fn.View().Description)
}

func TestSemanticFunction_ParametersFromTemplate(t *testing.T) {
	fn, err := NewSemantic("", "Greet", "Hi {{$name}}, {{$Name}} and {{$input}}", StaticBackend(model.NewMockCompletion("m")))
	require.NoError(t, err)

	params := fn.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "name", params[0].Name)
	assert.Equal(t, "input", params[1].Name)
	assert.Equal(t, core.GlobalSkill, fn.SkillName())
}

func TestSemanticFunction_ParameterDefaults(t *testing.T) {
	backend := model.NewMockCompletion("mock")
	backend.Fallback = func(prompt string) string { return prompt }

	fn, err := NewSemantic("S", "F", "{{$style}}: {{$input}}", StaticBackend(backend), func(o *SemanticOptions) {
		o.Parameters = []core.ParameterView{{Name: "style", DefaultValue: "formal"}}
	})
	require.NoError(t, err)

	c := fn.Invoke(core.NewContext(context.Background(), core.NewContextVariables("text")))
	assert.Equal(t, "formal: text", c.Result())

	vars := core.NewContextVariables("text")
	vars.Set("style", "casual")
	c = fn.Invoke(core.NewContext(context.Background(), vars))
	assert.Equal(t, "casual: text", c.Result())
}

func TestSemanticFunction_BackendErrorSurfacesVerbatim(t *testing.T) {
	backend := model.NewMockCompletion("mock")
	backendErr := model.NewError(model.CodeUnauthorized, "bad key", nil)
	backend.QueueError(backendErr)

	fn, err := NewSemantic("S", "F", "prompt", StaticBackend(backend))
	require.NoError(t, err)

	c := fn.Invoke(core.NewContext(context.Background(), core.NewContextVariables("in")))
	require.True(t, c.ErrorOccurred())
	assert.ErrorIs(t, c.LastError(), backendErr)
	assert.Equal(t, "in", c.Result())
}

func TestSemanticFunction_RetryPolicy(t *testing.T) {
	backend := model.NewMockCompletion("mock")
	backend.AddResponse("prompt", "ok")
	backend.QueueError(model.NewError(model.CodeThrottled, "slow down", nil))

	policy := reliability.NewBackoff(func(o *reliability.BackoffOptions) {
		o.InitialDelay = time.Millisecond
		o.Jitter = 0
	})

	fn, err := NewSemantic("S", "F", "prompt", StaticBackend(backend), func(o *SemanticOptions) { o.Policy = policy })
	require.NoError(t, err)

	c := fn.Invoke(core.NewContext(context.Background(), nil))
	require.False(t, c.ErrorOccurred())
	assert.Equal(t, "ok", c.Result())
	assert.Len(t, backend.Calls(), 2)
}

func TestSemanticFunction_NoBackend(t *testing.T) {
	fn, err := NewSemantic("S", "F", "prompt", StaticBackend(nil))
	require.NoError(t, err)

	c := fn.Invoke(core.NewContext(context.Background(), nil))
	require.True(t, c.ErrorOccurred())
	assert.True(t, core.IsKind(c.LastError(), core.KindBackendNotFound))

	_, err = NewSemantic("S", "F", "prompt", nil)
	assert.Error(t, err)
}

func TestSemanticFunction_RenderErrorAborts(t *testing.T) {
	backend := model.NewMockCompletion("mock")
	fn, err := NewSemantic("S", "F", "{{missing.fn}}", StaticBackend(backend))
	require.NoError(t, err)

	c := fn.Invoke(core.NewContext(context.Background(), nil))
	require.True(t, c.ErrorOccurred())
	assert.True(t, core.IsKind(c.LastError(), core.KindFunctionNotAvailable))
	assert.Empty(t, backend.Calls())
}
