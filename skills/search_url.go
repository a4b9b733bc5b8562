package skills

import (
	"net/url"
	"strings"

	"github.com/hupe1980/skillmesh/function"
)

// SearchURLSkill builds search URLs for popular sites.
type SearchURLSkill struct{}

var _ function.NativeSkill = SearchURLSkill{}

// Functions implements function.NativeSkill.
func (SearchURLSkill) Functions() []function.Definition {
	query := []function.Definition{}
	add := func(name, desc, base string) {
		query = append(query, function.Definition{
			Name:        name,
			Description: desc,
			Fn:          func(q string) string { return base + encodeQuery(q) },
		})
	}
	add("AmazonSearchURL", "Return URL for Amazon search query", "https://www.amazon.com/s?k=")
	add("BingSearchURL", "Return URL for Bing search query.", "https://www.bing.com/search?q=")
	add("GoogleSearchURL", "Return URL for Google search query", "https://www.google.com/search?q=")
	return query
}

func encodeQuery(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}
