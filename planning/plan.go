package planning

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hupe1980/skillmesh/core"
)

// Context variables used to carry a plan across function invocations.
const (
	IDKey           = "PLAN__ID"
	GoalKey         = "PLAN__GOAL"
	PlanKey         = "PLAN__PLAN"
	IsCompleteKey   = "PLAN__ISCOMPLETE"
	IsSuccessfulKey = "PLAN__ISSUCCESSFUL"
	ResultKey       = "PLAN__RESULT"
	// InputKey holds the output of the last executed step. It is the
	// default input of the next step.
	InputKey = "PLAN__INPUT"
)

// Plan is a goal together with the markup of the steps that remain.
type Plan struct {
	ID           string `json:"id"`
	Goal         string `json:"goal"`
	Markup       string `json:"plan"`
	IsComplete   bool   `json:"is_complete"`
	IsSuccessful bool   `json:"is_successful"`
	Result       string `json:"result"`
	// Steps counts the executed function elements.
	Steps int `json:"steps"`
}

// NewPlan wraps plan markup. The goal is read from the markup's <goal>
// element on the first step.
func NewPlan(markup string) *Plan {
	return &Plan{ID: core.NewID(), Markup: markup}
}

// Clone returns a copy of p.
func (p *Plan) Clone() *Plan {
	c := *p
	return &c
}

// ToJSON encodes the plan.
func (p *Plan) ToJSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		// A struct of strings, bools and an int always marshals.
		panic(err)
	}
	return string(b)
}

// PlanFromJSON decodes a plan written by ToJSON.
func PlanFromJSON(s string) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, newError(KindInvalidPlan, "invalid plan json", err)
	}
	if p.ID == "" && p.Markup == "" {
		return nil, newError(KindInvalidPlan, "plan json has neither id nor markup", nil)
	}
	return &p, nil
}

// ToVariables stores the plan in vars. The input becomes the plan JSON
// while the plan runs and the plan result once it is complete.
func (p *Plan) ToVariables(vars *core.ContextVariables) {
	vars.Set(IDKey, p.ID)
	vars.Set(GoalKey, p.Goal)
	vars.Set(PlanKey, p.ToJSON())
	vars.Set(IsCompleteKey, strconv.FormatBool(p.IsComplete))
	vars.Set(IsSuccessfulKey, strconv.FormatBool(p.IsSuccessful))
	vars.Set(ResultKey, p.Result)

	if p.IsComplete {
		vars.Update(p.Result)
	} else {
		vars.Update(p.ToJSON())
	}
}

// PlanFromVariables restores a plan from vars. The input is tried as plan
// JSON first. When the input is empty or equals the stored result, the
// stored PLAN__PLAN is used. Anything else is treated as new plan markup.
func PlanFromVariables(vars *core.ContextVariables) *Plan {
	input := vars.Input()

	if strings.HasPrefix(strings.TrimSpace(input), "{") {
		if p, err := PlanFromJSON(input); err == nil {
			return p
		}
	}

	if stored, ok := vars.Get(PlanKey); ok && stored != "" {
		result, _ := vars.Get(ResultKey)
		if input == "" || input == result {
			if p, err := PlanFromJSON(stored); err == nil {
				return p
			}
		}
	}

	return NewPlan(input)
}
