package planning_test

import (
	"testing"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
	"github.com/hupe1980/skillmesh/internal/testutil"
	"github.com/hupe1980/skillmesh/planning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nativeFn(skill, name, description string, params ...core.ParameterView) core.Function {
	return function.MustNative(skill, function.Definition{
		Name:        name,
		Description: description,
		Parameters:  params,
		Fn:          func(s string) string { return s },
	})
}

func TestFunctionsManual(t *testing.T) {
	c := testutil.NewContextBuilder().Functions(
		nativeFn("Writer", "Summarize", "summarize input text", core.ParameterView{Name: "input", Description: "the text to summarize"}),
		nativeFn("Language", "TranslateTo", "translate the input",
			core.ParameterView{Name: "input", Description: "the text"},
			core.ParameterView{Name: "lang", Description: "target language"}),
		nativeFn(planning.SkillName, "CreatePlan", "create a plan"),
		nativeFn("Writer", "Secret", "hidden"),
	).Build()

	manual, err := planning.FunctionsManual(c, "goal", planning.ManualOptions{
		ExcludedSkills:    []string{"PLANNER"},
		ExcludedFunctions: []string{"secret"},
	})
	require.NoError(t, err)

	want := "  Language.TranslateTo:\n" +
		"    description: translate the input\n" +
		"    inputs:\n" +
		"    - $input: the text\n" +
		"    - $lang: target language\n" +
		"\n" +
		"  Writer.Summarize:\n" +
		"    description: summarize input text\n" +
		"    inputs:\n" +
		"    - $input: the text to summarize\n"
	assert.Equal(t, want, manual)
}

func TestAvailableFunctions_NilRegistry(t *testing.T) {
	assert.Empty(t, planning.AvailableFunctions(nil, planning.ManualOptions{}))
	assert.Empty(t, planning.FormatManual(nil))
}
