package filter

import (
	"strings"

	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// Ensure TitleAndLocationFilter implements model.RecordFilter.
var _ model.RecordFilter = (*TitleAndLocationFilter)(nil)

// TitleAndLocationFilter matches records whose title contains any of the title
// keywords and whose location contains any of the location keywords, minus
// the exclusions. Matching ignores case and accents ("Limón" matches
// "limon"). Empty keyword lists are treated as "match all".
type TitleAndLocationFilter struct {
	titleKeywords    []string
	titleExcludes    []string
	locations        []string
	excludeLocations []string
}

// Keywords groups the four keyword lists.
type Keywords struct {
	Titles           []string
	ExcludeTitles    []string
	Locations        []string
	ExcludeLocations []string
}

// NewTitleAndLocationFilter returns a filter that requires both a title keyword
// match and a location keyword match and rejects any exclusion hit.
func NewTitleAndLocationFilter(k Keywords) *TitleAndLocationFilter {
	return &TitleAndLocationFilter{
		titleKeywords:    foldAll(k.Titles),
		titleExcludes:    foldAll(k.ExcludeTitles),
		locations:        foldAll(k.Locations),
		excludeLocations: foldAll(k.ExcludeLocations),
	}
}

// Match reports whether the record passes. A record without a location fails
// whenever location keywords are configured.
func (f *TitleAndLocationFilter) Match(r model.Record) bool {
	title := extract.Fold(r.Get(model.FieldTitle))
	location := extract.Fold(r.Get(model.FieldLocation))

	if containsAny(title, f.titleExcludes) || containsAny(location, f.excludeLocations) {
		return false
	}
	if len(f.titleKeywords) > 0 && !containsAny(title, f.titleKeywords) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(location, f.locations) {
		return false
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, extract.Fold(s))
		}
	}
	return out
}
