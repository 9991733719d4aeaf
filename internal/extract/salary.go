package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var amountPattern = regexp.MustCompile(`\d[\d.,]*`)

// parseAmount reads "450,000", "450.000" or "1.200.000,50" as a whole number
// of currency units. A trailing group of exactly two digits is taken as
// cents and dropped.
func parseAmount(raw string) (int64, bool) {
	raw = strings.TrimRight(raw, ".,")
	if i := strings.LastIndexAny(raw, ".,"); i >= 0 && len(raw)-i-1 == 2 {
		raw = raw[:i]
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSalary returns the largest amount in a salary string as plain digits,
// or "" when the string holds no number.
func MaxSalary(salary string) string {
	var best int64
	found := false
	for _, raw := range amountPattern.FindAllString(salary, -1) {
		if n, ok := parseAmount(raw); ok && (!found || n > best) {
			best, found = n, true
		}
	}
	if !found {
		return ""
	}
	return strconv.FormatInt(best, 10)
}

// SalaryType classifies the pay period. Amounts without an explicit period
// are monthly, which is how the configured boards publish salaries.
func SalaryType(salary string) string {
	f := Fold(salary)
	switch {
	case strings.Contains(f, "por hora") || strings.Contains(f, "/hora") || strings.Contains(f, "hourly"):
		return "Por hora"
	case strings.Contains(f, "quincenal"):
		return "Quincenal"
	case strings.Contains(f, "semanal"):
		return "Semanal"
	case strings.Contains(f, "anual"):
		return "Anual"
	case hasDigit(salary):
		return "Mensual"
	}
	return ""
}
