package planning_test

import (
	"context"
	"testing"

	"github.com/hupe1980/skillmesh/config"
	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/planning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlannerSkill_CreateAndExecute(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	s, err := planning.NewSkill(p)
	require.NoError(t, err)
	_, err = k.ImportSkill(planning.SkillName, s)
	require.NoError(t, err)

	backend.Fallback = func(string) string {
		return `<plan><function.MockSkill.Upper/><function.MockSkill.Echo/></plan>`
	}

	create, err := k.Func(planning.SkillName, "CreatePlan")
	require.NoError(t, err)
	execute, err := k.Func(planning.SkillName, "ExecutePlan")
	require.NoError(t, err)

	out := k.Run(context.Background(), core.NewContextVariables("make it loud"), create)
	require.False(t, out.ErrorOccurred(), out.LastErrorDescription())

	assert.NotContains(t, backend.Calls()[0].Prompt, "planner.CreatePlan", "the planner skill is excluded from its own manual")

	for i := 0; i < 5; i++ {
		if complete, _ := out.Variables().Get(planning.IsCompleteKey); complete == "true" {
			break
		}
		out = k.Run(context.Background(), out.Variables(), execute)
		require.False(t, out.ErrorOccurred(), out.LastErrorDescription())
	}

	complete, _ := out.Variables().Get(planning.IsCompleteKey)
	assert.Equal(t, "true", complete)
	successful, _ := out.Variables().Get(planning.IsSuccessfulKey)
	assert.Equal(t, "true", successful)
	assert.Equal(t, "Echo Result: MAKE IT LOUD", out.Result())
}

func TestPlannerSkill_CreatePlanOptions(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	s, err := planning.NewSkill(p)
	require.NoError(t, err)

	vars := core.NewContextVariables("goal")
	vars.Set(planning.ExcludedFunctionsKey, "Fail, Join")
	vars.Set(planning.ExcludedSkillsKey, "Nobody")

	_, err = s.CreatePlan(k.NewContext(context.Background(), vars))
	require.NoError(t, err)

	prompt := backend.Calls()[0].Prompt
	assert.Contains(t, prompt, "MockSkill.Echo:")
	assert.NotContains(t, prompt, "MockSkill.Fail:")
	assert.NotContains(t, prompt, "MockSkill.Join:")

	id, ok := vars.Get(planning.IDKey)
	assert.True(t, ok)
	assert.NotEmpty(t, id)

	bad := core.NewContextVariables("goal")
	bad.Set(planning.RelevancyThresholdKey, "high")
	_, err = s.CreatePlan(k.NewContext(context.Background(), bad))
	assert.True(t, planning.IsKind(err, planning.KindCreatePlanError))
}

func TestPlannerSkill_BucketOutputs(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	s, err := planning.NewSkill(p)
	require.NoError(t, err)

	backend.Fallback = func(string) string {
		return "Result:\n{\"buckets\": [\"first\", \"second\"]}\nthanks"
	}

	vars := core.NewContextVariables("first\nsecond")
	vars.Set(planning.BucketCountKey, "2")
	vars.Set(planning.BucketLabelPrefixKey, "Item")

	c, err := s.BucketOutputs(k.NewContext(context.Background(), vars))
	require.NoError(t, err)

	first, _ := c.Variables().Get("Item 1")
	second, _ := c.Variables().Get("Item 2")
	assert.Equal(t, "first", first)
	assert.Equal(t, "second", second)
	assert.Equal(t, "first\nsecond", c.Result())
	assert.Contains(t, backend.Calls()[0].Prompt, "EXPECTED BUCKETS: 2")
}

func TestPlannerSkill_BucketOutputsInvalid(t *testing.T) {
	k, backend := newKernel(t)
	p := newPlanner(t, k)

	s, err := planning.NewSkill(p)
	require.NoError(t, err)

	backend.Fallback = func(string) string { return "no json here" }

	_, err = s.BucketOutputs(k.NewContext(context.Background(), core.NewContextVariables("x")))
	assert.True(t, planning.IsKind(err, planning.KindExecutePlanError))
}

func TestNewFromConfig(t *testing.T) {
	k, _ := newKernel(t)

	p, closeFn, err := planning.NewFromConfig(k, config.PlannerConfig{MaxSteps: 1}, config.AuditConfig{Enabled: true})
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()

	markup := `<goal>two</goal><plan><function.MockSkill.Echo/><function.MockSkill.Echo/></plan>`
	_, err = p.Execute(context.Background(), planning.NewPlan(markup), nil)
	assert.True(t, planning.IsKind(err, planning.KindExecutePlanError))
}

func TestNewFromConfig_SQLiteAudit(t *testing.T) {
	k, _ := newKernel(t)

	p, closeFn, err := planning.NewFromConfig(k, config.PlannerConfig{}, config.AuditConfig{
		Enabled:    true,
		SQLitePath: t.TempDir() + "/audit.db",
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()

	plan, err := p.Execute(context.Background(), planning.NewPlan(echoPlan), nil)
	require.NoError(t, err)
	assert.True(t, plan.IsComplete)
}
