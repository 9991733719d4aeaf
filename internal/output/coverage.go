package output

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/amishk599/jobharvest/internal/model"
)

// FieldCoverage is the fill count of one column.
type FieldCoverage struct {
	Field  string
	Filled int
}

// SiteCount is the record count of one source site.
type SiteCount struct {
	Site    string
	Records int
}

// Coverage summarizes how complete an export is.
type Coverage struct {
	Total  int
	Fields []FieldCoverage // schema order
	Sites  []SiteCount     // first-seen order
}

// Measure counts non-empty values per field and records per source_site.
func Measure(schema *model.Schema, records []model.Record) Coverage {
	c := Coverage{Total: len(records)}
	fields := schema.Fields()
	filled := make([]int, len(fields))
	siteIdx := map[string]int{}

	for _, r := range records {
		for i, f := range fields {
			if r.Get(f) != "" {
				filled[i]++
			}
		}
		site := r.Get(model.FieldSourceSite)
		i, ok := siteIdx[site]
		if !ok {
			i = len(c.Sites)
			siteIdx[site] = i
			c.Sites = append(c.Sites, SiteCount{Site: site})
		}
		c.Sites[i].Records++
	}
	for i, f := range fields {
		c.Fields = append(c.Fields, FieldCoverage{Field: f, Filled: filled[i]})
	}
	return c
}

// Empty returns the fields no record filled.
func (c Coverage) Empty() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Filled == 0 {
			out = append(out, f.Field)
		}
	}
	return out
}

// Print writes a plain-text report.
func (c Coverage) Print(w io.Writer) {
	fmt.Fprintf(w, "Records: %d\n\n", c.Total)

	fmt.Fprintf(w, "%-20s %s\n", "Site", "Records")
	fmt.Fprintln(w, strings.Repeat("─", 30))
	sites := slices.Clone(c.Sites)
	slices.SortStableFunc(sites, func(a, b SiteCount) int { return b.Records - a.Records })
	for _, s := range sites {
		name := s.Site
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%-20s %d\n", name, s.Records)
	}

	fmt.Fprintf(w, "\n%-28s %8s %7s\n", "Field", "Filled", "%")
	fmt.Fprintln(w, strings.Repeat("─", 45))
	for _, f := range c.Fields {
		pct := 0.0
		if c.Total > 0 {
			pct = 100 * float64(f.Filled) / float64(c.Total)
		}
		fmt.Fprintf(w, "%-28s %8d %6.1f%%\n", f.Field, f.Filled, pct)
	}
}
