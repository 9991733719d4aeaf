package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Predicate decides whether an extracted value is plausible for a field.
type Predicate func(string) bool

// MinLen accepts values of at least n runes.
func MinLen(n int) Predicate {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

// MaxLen rejects values longer than n runes, typically whole-card text picked
// up by a loose selector.
func MaxLen(n int) Predicate {
	return func(s string) bool { return utf8.RuneCountInString(s) <= n }
}

// ContainsAny accepts values containing one of tokens, ignoring case and
// accents.
func ContainsAny(tokens ...string) Predicate {
	folded := make([]string, len(tokens))
	for i, t := range tokens {
		folded[i] = Fold(t)
	}
	return func(s string) bool {
		f := Fold(s)
		for _, t := range folded {
			if strings.Contains(f, t) {
				return true
			}
		}
		return false
	}
}

// All accepts a value only when every predicate does.
func All(preds ...Predicate) Predicate {
	return func(s string) bool {
		for _, p := range preds {
			if p != nil && !p(s) {
				return false
			}
		}
		return true
	}
}

var currencyGlyphs = []string{"₡", "$", "US$", "¢"}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasCurrencyGlyph(s string) bool {
	for _, g := range currencyGlyphs {
		if strings.Contains(s, g) {
			return true
		}
	}
	return false
}

func mentionsConfidential(s string) bool {
	return strings.Contains(Fold(s), "confidencial")
}

// SalarySignal accepts text carrying a digit, a currency glyph, or the
// "confidencial" token used when the salary is withheld.
func SalarySignal(s string) bool {
	return hasDigit(s) || hasCurrencyGlyph(s) || mentionsConfidential(s)
}

// KnownPlace accepts text mentioning one of KnownPlaces.
func KnownPlace(s string) bool {
	return MentionsPlace(s)
}
