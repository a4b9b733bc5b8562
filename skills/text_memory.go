package skills

import (
	"strconv"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
)

// Context variables read by TextMemorySkill.
const (
	CollectionParam = "collection"
	RelevanceParam  = "relevance"
	KeyParam        = "key"
	LimitParam      = "limit"

	DefaultCollection = "generic"
	DefaultRelevance  = 0.75
)

// TextMemorySkill saves and recalls text through the context's semantic
// memory.
type TextMemorySkill struct{}

var _ function.NativeSkill = TextMemorySkill{}

// Functions implements function.NativeSkill.
func (s TextMemorySkill) Functions() []function.Definition {
	return []function.Definition{
		{
			Name:        "Recall",
			Description: "Semantic search and return up to N memories related to the input text",
			Parameters: []core.ParameterView{
				{Name: core.MainKey, Description: "The input text to find related memories for"},
				{Name: CollectionParam, Description: "Memories collection to search", DefaultValue: DefaultCollection},
				{Name: RelevanceParam, Description: "The relevance score, from 0.0 to 1.0, where 1.0 means perfect match", DefaultValue: "0.75"},
				{Name: LimitParam, Description: "The maximum number of relevant memories to recall", DefaultValue: "1"},
			},
			Fn: s.Recall,
		},
		{
			Name:        "Save",
			Description: "Save information to semantic memory",
			Parameters: []core.ParameterView{
				{Name: core.MainKey, Description: "The information to save"},
				{Name: CollectionParam, Description: "Memories collection associated with the information to save", DefaultValue: DefaultCollection},
				{Name: KeyParam, Description: "The key associated with the information to save"},
			},
			Fn: s.Save,
		},
	}
}

func variableOr(c *core.Context, name, fallback string) string {
	if v, ok := c.Variables().Get(name); ok && v != "" {
		return v
	}
	return fallback
}

// Recall returns the texts of the most relevant memories for the input,
// separated by newlines, or the empty string when nothing matches.
func (TextMemorySkill) Recall(ask string, c *core.Context) (string, error) {
	collection := variableOr(c, CollectionParam, DefaultCollection)

	relevance := DefaultRelevance
	if v, ok := c.Variables().Get(RelevanceParam); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", core.NewError(core.KindInvalidRequest, "invalid relevance "+strconv.Quote(v), err)
		}
		relevance = f
	}

	limit := 1
	if v, ok := c.Variables().Get(LimitParam); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return "", core.Errorf(core.KindInvalidRequest, "invalid limit %q", v)
		}
		limit = n
	}

	c.LogDebug("memory.recall", "collection", collection, "relevance", relevance, "limit", limit)

	results, err := c.Memory().Search(c.Context(), collection, ask, limit, relevance)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		c.LogWarn("memory.recall.empty", "collection", collection)
		return "", nil
	}

	out := results[0].Text
	for _, r := range results[1:] {
		out += "\n" + r.Text
	}
	return out, nil
}

// Save stores the input under the key variable. The input is left
// unchanged.
func (TextMemorySkill) Save(c *core.Context) (*core.Context, error) {
	collection := variableOr(c, CollectionParam, DefaultCollection)
	key, _ := c.Variables().Get(KeyParam)
	if key == "" {
		return c, core.Errorf(core.KindInvalidRequest, "memory key not defined")
	}

	c.LogDebug("memory.save", "collection", collection, "key", key)

	if err := c.Memory().SaveInformation(c.Context(), collection, c.Variables().Input(), key, ""); err != nil {
		return c, err
	}
	return c, nil
}
