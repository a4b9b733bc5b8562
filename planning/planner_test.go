package planning_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/skillmesh"
	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
	"github.com/hupe1980/skillmesh/internal/testutil"
	"github.com/hupe1980/skillmesh/memory"
	"github.com/hupe1980/skillmesh/model"
	"github.com/hupe1980/skillmesh/planning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSkill struct{}

func (mockSkill) Functions() []function.Definition {
	return []function.Definition{
		{
			Name:        "Echo",
			Description: "Echo the input back",
			Parameters:  []core.ParameterView{{Name: core.MainKey, Description: "Text to echo"}},
			Fn:          func(s string) string { return "Echo Result: " + s },
		},
		{
			Name:        "Upper",
			Description: "Uppercase the input",
			Fn:          strings.ToUpper,
		},
		{
			Name:        "Join",
			Description: "Join the input with other",
			Parameters: []core.ParameterView{
				{Name: core.MainKey, Description: "Left side"},
				{Name: "other", Description: "Right side"},
			},
			Fn: func(c *core.Context) string {
				other, _ := c.Variables().Get("other")
				return c.Variables().Input() + "+" + other
			},
		},
		{
			Name:        "Fail",
			Description: "Always fails",
			Fn: func(*core.Context) (string, error) {
				return "", errors.New("boom")
			},
		},
	}
}

func newKernel(t *testing.T) (*skillmesh.Kernel, *model.MockCompletion) {
	t.Helper()

	k := skillmesh.New()
	backend := model.NewMockCompletion("mock")
	require.NoError(t, k.AddCompletionBackend("mock", backend, true))

	_, err := k.ImportSkill("MockSkill", mockSkill{})
	require.NoError(t, err)

	return k, backend
}

func newPlanner(t *testing.T, k *skillmesh.Kernel, optFns ...func(o *planning.Options)) *planning.Planner {
	t.Helper()
	p, err := planning.New(k, optFns...)
	require.NoError(t, err)
	return p
}

const echoPlan = `<goal>
Test the functionFlowRunner
</goal>
<plan>
  <function.MockSkill.Echo input="Hello World" />
</plan>`

func TestExecuteStep_Echo(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	plan := p.ExecuteStep(c, planning.NewPlan(echoPlan))

	assert.True(t, plan.IsComplete)
	assert.True(t, plan.IsSuccessful)
	assert.Equal(t, "Test the functionFlowRunner", plan.Goal)
	assert.True(t, strings.EqualFold("Echo Result: Hello World", plan.Result))
	assert.Equal(t, 1, plan.Steps)
	assert.NotContains(t, plan.Markup, "function.MockSkill.Echo")
	assert.Contains(t, plan.Markup, "<plan>")
}

func TestExecuteStep_NoGoal(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	plan := p.ExecuteStep(c, planning.NewPlan("Some plan without a goal"))

	assert.True(t, plan.IsComplete)
	assert.False(t, plan.IsSuccessful)
	assert.Empty(t, plan.Goal)
	assert.Contains(t, plan.Result, "no goal found")
}

func TestExecuteStep_InvalidXML(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	plan := p.ExecuteStep(c, planning.NewPlan("<someTag>\n<goal>broken</goal>"))

	assert.True(t, plan.IsComplete)
	assert.False(t, plan.IsSuccessful)
	assert.Contains(t, plan.Result, "failed to parse plan")
}

func TestExecuteStep_MissingPlanElement(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	plan := p.ExecuteStep(c, planning.NewPlan("<goal>do it</goal>"))

	assert.True(t, plan.IsComplete)
	assert.False(t, plan.IsSuccessful)
	assert.Contains(t, plan.Result, "failed to parse plan")
}

func TestExecuteStep_CompletePlanIsUnchanged(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	done := p.ExecuteStep(c, planning.NewPlan(echoPlan))
	require.True(t, done.IsComplete)

	again := p.ExecuteStep(c, done)
	assert.Equal(t, done, again)

	assert.Nil(t, p.ExecuteStep(c, nil))
}

func TestExecuteStep_EmptyPlanSucceeds(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	plan := p.ExecuteStep(c, planning.NewPlan("<goal>nothing</goal>\n<plan>\n  just text\n</plan>"))

	assert.True(t, plan.IsComplete)
	assert.True(t, plan.IsSuccessful)
	assert.Equal(t, 0, plan.Steps)
	assert.Contains(t, plan.Markup, "just text")
}

func TestExecute_ContextVariablesAndResults(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	markup := `<goal>Shout</goal>
<plan>
  <function.MockSkill.Upper input="hello" setContextVariable="$LOUD"/>
  Some free text.
  <function.MockSkill.Echo input="$LOUD" appendToResult="RESULT__ECHO"/>
  <function.MockSkill.Join input="a" other="$LOUD" appendToResult="RESULT__JOIN"/>
</plan>`

	plan, err := p.Execute(context.Background(), planning.NewPlan(markup), nil)
	require.NoError(t, err)

	assert.True(t, plan.IsComplete)
	assert.True(t, plan.IsSuccessful)
	assert.Equal(t, 3, plan.Steps)
	assert.Equal(t, "RESULT__ECHO\nEcho Result: HELLO\n\nRESULT__JOIN\na+HELLO", plan.Result)
	assert.Contains(t, plan.Markup, "Some free text.")
}

func TestExecuteStep_OutputFeedsNextStep(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	markup := `<goal>chain</goal><plan><function.MockSkill.Upper input="abc"/><function.MockSkill.Echo/></plan>`

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	plan := p.ExecuteStep(c, planning.NewPlan(markup))
	require.False(t, plan.IsComplete)
	assert.True(t, plan.IsSuccessful)

	input, ok := c.Variables().Get(planning.InputKey)
	require.True(t, ok)
	assert.Equal(t, "ABC", input)

	plan = p.ExecuteStep(c, plan)
	assert.True(t, plan.IsComplete)
	assert.Equal(t, "Echo Result: ABC", plan.Result)
}

func TestExecuteStep_MissingVariableContinues(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	markup := `<goal>Say hi</goal><plan><function.MockSkill.Echo input="$NOPE"/></plan>`

	plan, err := p.Execute(context.Background(), planning.NewPlan(markup), nil)
	require.NoError(t, err)

	assert.True(t, plan.IsComplete)
	assert.True(t, plan.IsSuccessful)
	assert.Equal(t, "Echo Result: Say hi", plan.Result, "falls back to the goal")
}

func TestExecuteStep_UnknownAndFailingFunctions(t *testing.T) {
	k, _ := newKernel(t)
	audit := planning.NewMemoryAuditStore()
	p := newPlanner(t, k, func(o *planning.Options) { o.Audit = audit })

	markup := `<goal>resilient</goal>
<plan>
  <function.MockSkill.Nope/>
  <function.MockSkill.Fail/>
  <function.MockSkill.Echo/>
</plan>`

	plan, err := p.Execute(context.Background(), planning.NewPlan(markup), nil)
	require.NoError(t, err)

	assert.True(t, plan.IsComplete)
	assert.Equal(t, 3, plan.Steps)
	assert.Equal(t, "Echo Result: resilient", plan.Result)

	events, err := audit.List(context.Background(), planning.AuditFilter{PlanID: plan.ID})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, planning.StepSkipped, events[0].Status)
	assert.Equal(t, "MockSkill.Nope", events[0].Function)
	assert.Equal(t, planning.StepFailed, events[1].Status)
	assert.Contains(t, events[1].Error, "boom")
	assert.Equal(t, planning.StepSucceeded, events[2].Status)
	assert.Equal(t, 3, events[2].Step)
}

func TestExecute_StepBudget(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k, func(o *planning.Options) { o.MaxSteps = 1 })

	markup := `<goal>two</goal><plan><function.MockSkill.Echo/><function.MockSkill.Echo/></plan>`

	plan, err := p.Execute(context.Background(), planning.NewPlan(markup), nil)
	require.Error(t, err)
	assert.True(t, planning.IsKind(err, planning.KindExecutePlanError))
	assert.False(t, plan.IsComplete)
	assert.Equal(t, 1, plan.Steps)
}

func TestExecute_Canceled(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, err := p.Execute(ctx, planning.NewPlan(echoPlan), nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindCanceled))
	assert.Equal(t, 0, plan.Steps)
}

func TestCreatePlan(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	backend.Fallback = func(string) string {
		return `<plan>
  <function.MockSkill.Echo input="hi"/>
</plan>`
	}

	plan, err := p.CreatePlan(context.Background(), "  Greet someone  ")
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "Greet someone", plan.Goal)
	assert.True(t, strings.HasPrefix(plan.Markup, "<goal>\nGreet someone\n</goal>\n<plan>"))
	assert.False(t, plan.IsComplete)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "MockSkill.Echo:\n    description: Echo the input back")
	assert.Contains(t, calls[0].Prompt, "<goal>Greet someone</goal>")
	assert.Equal(t, []string{"<!--"}, calls[0].Settings.StopSequences)

	executed, err := p.Execute(context.Background(), plan, nil)
	require.NoError(t, err)
	assert.Equal(t, "Echo Result: hi", executed.Result)
}

func TestCreatePlan_GoalWithMarkupCharacters(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	backend.Fallback = func(string) string {
		return `<plan>
  <function.MockSkill.Echo input="budgets"/>
</plan>`
	}

	goal := "Compare R&D budgets where cost < 5"
	plan, err := p.CreatePlan(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, goal, plan.Goal)
	assert.Contains(t, plan.Markup, "R&amp;D budgets where cost &lt; 5")

	c := k.NewContext(context.Background(), core.NewContextVariables(""))
	step := p.ExecuteStep(c, plan)
	assert.True(t, step.IsSuccessful, step.Result)
	assert.Equal(t, goal, step.Goal)
	assert.Equal(t, "Echo Result: budgets", step.Result)
}

func TestCreatePlan_Errors(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	_, err := p.CreatePlan(context.Background(), "   ")
	assert.True(t, planning.IsKind(err, planning.KindInvalidGoal))

	backend.QueueError(model.NewError(model.CodeThrottled, "slow down", nil))
	_, err = p.CreatePlan(context.Background(), "goal")
	require.Error(t, err)
	assert.True(t, planning.IsKind(err, planning.KindCreatePlanError))
}

func TestCreatePlan_RelevantFunctions(t *testing.T) {
	k, backend := newKernel(t)
	k.RegisterMemory(memory.NewSemanticTextMemory(memory.NewVolatileStore(), model.NewMockEmbedding(), nil))

	p := newPlanner(t, k, func(o *planning.Options) {
		o.Manual.RelevancyThreshold = 0.3
		o.Manual.MaxRelevantFunctions = 1
	})

	_, err := p.CreatePlan(context.Background(), "uppercase the input")
	require.NoError(t, err)

	prompt := backend.Calls()[0].Prompt
	assert.Contains(t, prompt, "MockSkill.Upper:")
	assert.NotContains(t, prompt, "MockSkill.Fail:")

	saved, err := k.Memory().Get(context.Background(), planning.FunctionsManualCollection, "MockSkill.Echo")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Echo the input back", saved.Text)
}

func TestExecute_BuiltPlan(t *testing.T) {
	k, _ := newKernel(t)
	p := newPlanner(t, k)

	plan := testutil.NewPlanBuilder("Join things").
		Step("MockSkill.Upper", "input", "x & y", "setContextVariable", "$XY").
		Text("then join").
		Step("MockSkill.Join", "input", "$XY", "other", "z").
		Build()

	done, err := p.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	assert.True(t, done.IsSuccessful)
	assert.Equal(t, "X & Y+z", done.Result)
	assert.Contains(t, done.Markup, "then join")
}
