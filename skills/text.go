package skills

import (
	"strings"
	"unicode"

	"github.com/hupe1980/skillmesh/function"
)

// TextSkill manipulates strings.
type TextSkill struct{}

var _ function.NativeSkill = TextSkill{}

// Functions implements function.NativeSkill.
func (TextSkill) Functions() []function.Definition {
	return []function.Definition{
		{Name: "Trim", Description: "Trim whitespace from the start and end of a string.", Fn: strings.TrimSpace},
		{Name: "TrimStart", Description: "Trim whitespace from the start of a string.", Fn: trimStart},
		{Name: "TrimEnd", Description: "Trim whitespace from the end of a string.", Fn: trimEnd},
		{Name: "Uppercase", Description: "Convert a string to uppercase.", Fn: strings.ToUpper},
		{Name: "Lowercase", Description: "Convert a string to lowercase.", Fn: strings.ToLower},
	}
}

func trimStart(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

func trimEnd(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
