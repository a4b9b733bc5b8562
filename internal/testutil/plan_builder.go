package testutil

import (
	"encoding/xml"
	"strings"

	"github.com/hupe1980/skillmesh/planning"
)

// PlanBuilder assembles plan markup in tests.
// Example:
//
//	plan := NewPlanBuilder("Greet").Step("Skill.Echo", "input", "hi").Build()
type PlanBuilder struct {
	goal  string
	parts []string
}

// NewPlanBuilder starts a plan for goal.
func NewPlanBuilder(goal string) *PlanBuilder { return &PlanBuilder{goal: goal} }

// Step appends a function element. attrs are name/value pairs; a trailing
// name without value is ignored (chainable).
func (b *PlanBuilder) Step(qualifiedName string, attrs ...string) *PlanBuilder {
	var sb strings.Builder
	sb.WriteString("<function.")
	sb.WriteString(qualifiedName)
	for i := 0; i+1 < len(attrs); i += 2 {
		sb.WriteString(" ")
		sb.WriteString(attrs[i])
		sb.WriteString(`="`)
		sb.WriteString(escape(attrs[i+1]))
		sb.WriteString(`"`)
	}
	sb.WriteString("/>")
	b.parts = append(b.parts, sb.String())
	return b
}

// Text appends free text inside the plan (chainable).
func (b *PlanBuilder) Text(s string) *PlanBuilder {
	b.parts = append(b.parts, escape(s))
	return b
}

// Markup renders the plan markup.
func (b *PlanBuilder) Markup() string {
	var sb strings.Builder
	sb.WriteString("<goal>\n")
	sb.WriteString(escape(b.goal))
	sb.WriteString("\n</goal>\n<plan>\n")
	for _, p := range b.parts {
		sb.WriteString("  ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	sb.WriteString("</plan>")
	return sb.String()
}

// Build returns a new plan holding the markup.
func (b *PlanBuilder) Build() *planning.Plan { return planning.NewPlan(b.Markup()) }

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
