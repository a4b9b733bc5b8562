package planning

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
	"github.com/hupe1980/skillmesh/model"
)

// SkillName is the conventional skill name of PlannerSkill. It is excluded
// from functions manuals by default.
const SkillName = "planner"

// Variables read by PlannerSkill.
const (
	RelevancyThresholdKey   = "relevancyThreshold"
	MaxRelevantFunctionsKey = "maxRelevantFunctions"
	ExcludedSkillsKey       = "excludedSkills"
	ExcludedFunctionsKey    = "excludedFunctions"
	BucketCountKey          = "bucketCount"
	BucketLabelPrefixKey    = "bucketLabelPrefix"

	DefaultBucketLabelPrefix = "Result"
)

// PlannerSkill exposes the planner as native functions so plans can be
// created and advanced from pipelines and templates.
type PlannerSkill struct {
	planner *Planner
	bucket  core.Function
}

var _ function.NativeSkill = (*PlannerSkill)(nil)

// NewSkill wraps p.
func NewSkill(p *Planner) (*PlannerSkill, error) {
	cfg := function.DefaultPromptTemplateConfig()
	cfg.Description = "Split a function output into a list of results"
	cfg.Completion = model.CompletionSettings{MaxTokens: p.opts.MaxTokens, Temperature: 0}
	if p.opts.Backend != "" {
		cfg.DefaultBackends = []string{p.opts.Backend}
	}

	bucket, err := p.kernel.NewSemanticFunction(SkillName, "Bucket", BucketPrompt, cfg)
	if err != nil {
		return nil, err
	}

	return &PlannerSkill{planner: p, bucket: bucket}, nil
}

// Functions implements function.NativeSkill.
func (s *PlannerSkill) Functions() []function.Definition {
	return []function.Definition{
		{
			Name:        "CreatePlan",
			Description: "Create a plan for the goal given as input",
			Parameters: []core.ParameterView{
				{Name: core.MainKey, Description: "The goal to satisfy"},
				{Name: RelevancyThresholdKey, Description: "Minimum relevancy of a function to be listed, 0 lists every function"},
				{Name: MaxRelevantFunctionsKey, Description: "Maximum number of relevant functions to list", DefaultValue: "100"},
				{Name: ExcludedSkillsKey, Description: "Comma separated skills to leave out"},
				{Name: ExcludedFunctionsKey, Description: "Comma separated functions to leave out"},
			},
			Fn: s.CreatePlan,
		},
		{
			Name:        "ExecutePlan",
			Description: "Execute the next step of the plan held by the context",
			Parameters:  []core.ParameterView{{Name: core.MainKey, Description: "Plan JSON or plan markup"}},
			Fn:          s.ExecutePlan,
		},
		{
			Name:        "BucketOutputs",
			Description: "Split the input into bucketCount results stored as separate variables",
			Parameters: []core.ParameterView{
				{Name: core.MainKey, Description: "The output to split"},
				{Name: BucketCountKey, Description: "The number of buckets"},
				{Name: BucketLabelPrefixKey, Description: "Prefix of the bucket variable names", DefaultValue: DefaultBucketLabelPrefix},
			},
			Fn: s.BucketOutputs,
		},
	}
}

// CreatePlan creates a plan for the input goal and stores it in the
// context variables.
func (s *PlannerSkill) CreatePlan(c *core.Context) (*core.Context, error) {
	manual, err := s.manualOptions(c.Variables())
	if err != nil {
		return c, err
	}

	plan, err := s.planner.createPlan(c, c.Variables().Input(), manual)
	if err != nil {
		return c, err
	}

	plan.ToVariables(c.Variables())
	return c, nil
}

// ExecutePlan advances the plan held by the context by one step.
func (s *PlannerSkill) ExecutePlan(c *core.Context) (*core.Context, error) {
	plan := s.planner.ExecuteStep(c, PlanFromVariables(c.Variables()))
	plan.ToVariables(c.Variables())
	return c, nil
}

// BucketOutputs asks the backend to split the input into buckets and stores
// them as "<prefix> 1" ... "<prefix> N". The input is left unchanged.
func (s *PlannerSkill) BucketOutputs(c *core.Context) (*core.Context, error) {
	input := c.Variables().Input()

	vars := core.NewContextVariables(input)
	count, _ := c.Variables().Get(BucketCountKey)
	vars.Set(BucketCountKey, count)

	out := s.bucket.Invoke(c.Derive(vars))
	if out.ErrorOccurred() {
		return c, out.LastError()
	}

	buckets, err := parseBuckets(out.Result())
	if err != nil {
		return c, err
	}

	prefix, ok := c.Variables().Get(BucketLabelPrefixKey)
	if !ok || prefix == "" {
		prefix = DefaultBucketLabelPrefix
	}

	for i, b := range buckets {
		c.Variables().Set(prefix+" "+strconv.Itoa(i+1), b)
	}

	c.LogDebug("planner.buckets", "count", len(buckets))
	return c, nil
}

func parseBuckets(raw string) ([]string, error) {
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, newError(KindExecutePlanError, "bucket output holds no JSON object", nil)
	}

	var doc struct {
		Buckets []string `json:"buckets"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &doc); err != nil {
		return nil, newError(KindExecutePlanError, "failed to parse bucket output", err)
	}

	return doc.Buckets, nil
}

func (s *PlannerSkill) manualOptions(vars *core.ContextVariables) (ManualOptions, error) {
	opts := s.planner.opts.Manual
	opts.ExcludedSkills = append([]string(nil), opts.ExcludedSkills...)
	opts.ExcludedFunctions = append([]string(nil), opts.ExcludedFunctions...)

	if v, ok := vars.Get(RelevancyThresholdKey); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return opts, newError(KindCreatePlanError, "invalid relevancy threshold "+strconv.Quote(v), err)
		}
		opts.RelevancyThreshold = f
	}
	if v, ok := vars.Get(MaxRelevantFunctionsKey); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, newError(KindCreatePlanError, "invalid max relevant functions "+strconv.Quote(v), err)
		}
		opts.MaxRelevantFunctions = n
	}
	opts.ExcludedSkills = append(opts.ExcludedSkills, splitList(vars, ExcludedSkillsKey)...)
	opts.ExcludedFunctions = append(opts.ExcludedFunctions, splitList(vars, ExcludedFunctionsKey)...)

	return opts, nil
}

func splitList(vars *core.ContextVariables, key string) []string {
	v, ok := vars.Get(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
