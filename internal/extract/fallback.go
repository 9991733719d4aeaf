package extract

import (
	"regexp"
	"strings"
)

// LineRule picks a value out of the visible lines of a snapshot when every
// selector of a field missed.
type LineRule interface {
	Pick(lines []string) (string, bool)
	String() string
}

type lineFunc struct {
	name string
	fn   func([]string) (string, bool)
}

func (l lineFunc) Pick(lines []string) (string, bool) { return l.fn(lines) }
func (l lineFunc) String() string                     { return l.name }

// FirstLine returns the first line accepted by pred.
func FirstLine(name string, pred Predicate) LineRule {
	return lineFunc{name: name, fn: func(lines []string) (string, bool) {
		for _, l := range lines {
			if pred(l) {
				return l, true
			}
		}
		return "", false
	}}
}

// LineAt returns the line at position i. Listing cards put title and company
// on the first two lines.
func LineAt(i int) LineRule {
	return lineFunc{name: "line-at", fn: func(lines []string) (string, bool) {
		if i < 0 || i >= len(lines) {
			return "", false
		}
		return lines[i], true
	}}
}

var salaryTokens = []string{"₡", "$", "colones", "salario", "confidencial"}

// salaryLine requires a monetary marker plus either a digit or the
// confidentiality token, so "Salario a convenir" alone is not a salary.
func salaryLine(l string) bool {
	f := Fold(l)
	marked := false
	for _, t := range salaryTokens {
		if strings.Contains(f, t) {
			marked = true
			break
		}
	}
	return marked && (hasDigit(l) || mentionsConfidential(l))
}

// SalaryLine picks the first line with a currency symbol or the token for
// monetary confidentiality.
var SalaryLine = FirstLine("salary-line", salaryLine)

// PlaceLine picks the first short line naming a known place.
var PlaceLine = FirstLine("place-line", All(MaxLen(120), KnownPlace))

var relativeDate = regexp.MustCompile(`(?i)\bhace\b|\bhoy\b|\bayer\b|publicad[oa]|\b\d{1,2}\s+(?:de\s+)?(?:ene|feb|mar|abr|may|jun|jul|ago|sep|set|oct|nov|dic)[a-z]*\b`)

// DateLine picks the first short line with a relative-time token ("hace 3
// días", "hoy") or a day-month date.
var DateLine = FirstLine("date-line", All(MaxLen(80), relativeDate.MatchString))

var yearsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:años?|anos?|years?)`)

// ExperienceLine extracts "N años" from the first line stating years of
// experience.
var ExperienceLine LineRule = lineFunc{name: "experience-line", fn: func(lines []string) (string, bool) {
	for _, l := range lines {
		if m := yearsPattern.FindStringSubmatch(l); m != nil {
			return m[1] + " años", true
		}
	}
	return "", false
}}
