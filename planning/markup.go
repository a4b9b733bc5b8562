package planning

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/hupe1980/skillmesh/core"
)

const (
	rootTag        = "xmlRoot"
	goalTag        = "goal"
	planTag        = "plan"
	functionPrefix = "function."

	setContextVariableAttr = "setContextVariable"
	appendToResultAttr     = "appendToResult"
)

// step is one executable <function.Skill.Name .../> element.
type step struct {
	skill string
	name  string
	attrs []xml.Attr
	// start and end delimit the element in the unwrapped markup.
	start, end int64
}

func (s step) qualifiedName() string { return s.skill + "." + s.name }

// document is the parsed form of plan markup.
type document struct {
	goal    string
	hasPlan bool
	steps   []step
}

// parseMarkup reads the goal and the function elements of markup. The
// markup is wrapped in a root element so goal and plan may be siblings.
func parseMarkup(markup string) (*document, error) {
	open := "<" + rootTag + ">"
	wrapped := open + markup + "</" + rootTag + ">"
	offset := int64(len(open))

	d := xml.NewDecoder(strings.NewReader(wrapped))
	d.Entity = xml.HTMLEntity

	doc := &document{}

	var (
		depth     int
		inGoal    bool
		goal      strings.Builder
		planDepth int
		current   *step
		stepDepth int
	)

	for {
		pos := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newError(KindInvalidPlan, "failed to parse plan", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++

			switch {
			case current != nil:
				// Children of a function element carry no meaning.
			case depth == 2 && t.Name.Local == goalTag:
				inGoal = true
			case depth == 2 && t.Name.Local == planTag && planDepth == 0:
				doc.hasPlan = true
				planDepth = depth
			case planDepth > 0 && strings.HasPrefix(t.Name.Local, functionPrefix):
				skill, name := splitFunctionName(strings.TrimPrefix(t.Name.Local, functionPrefix))
				current = &step{skill: skill, name: name, attrs: t.Attr, start: pos - offset}
				stepDepth = depth
			}

		case xml.EndElement:
			if current != nil && depth == stepDepth {
				current.end = d.InputOffset() - offset
				doc.steps = append(doc.steps, *current)
				current = nil
			}
			if depth == 2 && t.Name.Local == goalTag {
				inGoal = false
			}
			if depth == planDepth {
				planDepth = 0
			}
			depth--

		case xml.CharData:
			if inGoal {
				goal.Write(t)
			}
		}
	}

	doc.goal = strings.TrimSpace(goal.String())
	return doc, nil
}

// splitFunctionName splits "Skill.Name". Names without a skill belong to
// the global skill.
func splitFunctionName(s string) (string, string) {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return core.GlobalSkill, s
	}
	return s[:i], s[i+1:]
}

// removeStep cuts the element of s out of markup and leaves every other
// byte untouched.
func removeStep(markup string, s step) string {
	if s.start < 0 || s.end > int64(len(markup)) || s.start > s.end {
		return markup
	}
	return markup[:s.start] + markup[s.end:]
}
