package planning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/skillmesh/core"
)

// FunctionsManualCollection is the memory collection holding one record per
// function when relevancy filtering is enabled.
const FunctionsManualCollection = "Planning.FunctionsManual"

// ManualOptions select the functions listed in a manual.
type ManualOptions struct {
	ExcludedSkills    []string
	ExcludedFunctions []string
	// RelevancyThreshold > 0 keeps only functions whose description is
	// semantically close to the goal, using the context's memory.
	RelevancyThreshold   float64
	MaxRelevantFunctions int
}

// AvailableFunctions lists every registered function that is not
// excluded, sorted by skill and name.
func AvailableFunctions(registry core.ReadOnlyRegistry, opts ManualOptions) []core.FunctionView {
	if registry == nil {
		return nil
	}

	excludedSkills := lowerSet(opts.ExcludedSkills)
	excludedFunctions := lowerSet(opts.ExcludedFunctions)

	view := registry.FunctionsView(true, true)

	var out []core.FunctionView
	for _, group := range []map[string][]core.FunctionView{view.SemanticFunctions, view.NativeFunctions} {
		for skill, fns := range group {
			if excludedSkills[strings.ToLower(skill)] {
				continue
			}
			for _, fn := range fns {
				if excludedFunctions[strings.ToLower(fn.Name)] {
					continue
				}
				out = append(out, fn)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].QualifiedName()) < strings.ToLower(out[j].QualifiedName())
	})

	return out
}

// FormatManual renders functions in the layout the planning prompt
// examples use:
//
//	  Skill.Function:
//	    description: ...
//	    inputs:
//	    - $name: ...
func FormatManual(functions []core.FunctionView) string {
	entries := make([]string, 0, len(functions))
	for _, fn := range functions {
		var sb strings.Builder
		fmt.Fprintf(&sb, "  %s:\n", fn.QualifiedName())
		fmt.Fprintf(&sb, "    description: %s\n", fn.Description)
		sb.WriteString("    inputs:\n")
		for _, p := range fn.Parameters {
			fmt.Fprintf(&sb, "    - $%s: %s\n", p.Name, p.Description)
		}
		entries = append(entries, sb.String())
	}
	return strings.Join(entries, "\n")
}

// FunctionsManual returns the manual for goal. With a relevancy threshold
// the functions are first remembered in the context's memory and only the
// ones close to goal are listed.
func FunctionsManual(c *core.Context, goal string, opts ManualOptions) (string, error) {
	functions := AvailableFunctions(c.Registry(), opts)

	if opts.RelevancyThreshold > 0 {
		relevant, err := relevantFunctions(c.Context(), c.Memory(), goal, functions, opts)
		if err != nil {
			return "", err
		}
		c.LogDebug("planner.manual.relevant", "available", len(functions), "relevant", len(relevant))
		functions = relevant
	}

	return FormatManual(functions), nil
}

func relevantFunctions(ctx context.Context, mem core.SemanticMemory, goal string, functions []core.FunctionView, opts ManualOptions) ([]core.FunctionView, error) {
	byKey := make(map[string]core.FunctionView, len(functions))
	for _, fn := range functions {
		key := fn.QualifiedName()
		byKey[key] = fn

		existing, err := mem.Get(ctx, FunctionsManualCollection, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		text := fn.Description
		if text == "" {
			text = fn.Name
		}
		if err := mem.SaveInformation(ctx, FunctionsManualCollection, text, key, "planner function"); err != nil {
			return nil, err
		}
	}

	limit := opts.MaxRelevantFunctions
	if limit <= 0 {
		limit = len(functions)
	}
	if limit == 0 {
		return nil, nil
	}

	hits, err := mem.Search(ctx, FunctionsManualCollection, goal, limit, opts.RelevancyThreshold)
	if err != nil {
		return nil, err
	}

	var out []core.FunctionView
	for _, h := range hits {
		if fn, ok := byKey[h.ID]; ok {
			out = append(out, fn)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].QualifiedName()) < strings.ToLower(out[j].QualifiedName())
	})

	return out, nil
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}
