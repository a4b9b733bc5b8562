package function

import (
	"regexp"

	"github.com/hupe1980/skillmesh/core"
)

var validName = regexp.MustCompile(`^[0-9A-Za-z_]+$`)

// ValidateName checks a skill or function name. Names are restricted to
// ASCII letters, digits and underscores so they can appear in templates and
// plan markup.
func ValidateName(kind, name string) error {
	if name == "" {
		return core.Errorf(core.KindInvalidFunctionDescription, "%s name is empty", kind)
	}
	if !validName.MatchString(name) {
		return core.Errorf(core.KindInvalidFunctionDescription,
			"invalid %s name %q: only ASCII letters, digits and underscores are allowed", kind, name)
	}
	return nil
}
