package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics so "Limón" and "limon" compare
// equal.
func Fold(s string) string {
	// transform.Chain keeps state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// KnownPlaces are the provinces and larger cantons of Costa Rica, plus the
// country itself.
var KnownPlaces = []string{
	"San José", "Heredia", "Cartago", "Alajuela", "Limón", "Guanacaste",
	"Puntarenas", "Costa Rica", "Escazú", "Santa Ana", "Curridabat",
	"Belén", "Liberia", "Pérez Zeledón", "Desamparados", "Tibás", "Moravia",
	"Grecia", "San Carlos", "Montes de Oca", "Goicoechea", "La Uruca",
	"Santo Domingo", "Coronado", "Nicoya",
}

// PlaceMatcher tests text against a fixed list of place names.
type PlaceMatcher struct {
	folded []string
}

func NewPlaceMatcher(places []string) *PlaceMatcher {
	pm := &PlaceMatcher{folded: make([]string, 0, len(places))}
	for _, p := range places {
		if f := Fold(strings.TrimSpace(p)); f != "" {
			pm.folded = append(pm.folded, f)
		}
	}
	return pm
}

var defaultPlaces = NewPlaceMatcher(KnownPlaces)

// Mentions reports whether s contains any known place name.
func (pm *PlaceMatcher) Mentions(s string) bool {
	f := Fold(s)
	for _, p := range pm.folded {
		if strings.Contains(f, p) {
			return true
		}
	}
	return false
}

// MentionsPlace checks s against KnownPlaces.
func MentionsPlace(s string) bool {
	return defaultPlaces.Mentions(s)
}
