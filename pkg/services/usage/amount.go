package usage

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// thousandsOnly matches amounts such as 1,500 or 12,345,678 where the comma can only be a group separator.
var thousandsOnly = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+$`)

// plainNumber is what ParseFloat may see once separators are resolved; it
// keeps out NaN, Inf, exponents and hex floats.
var plainNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

var spaces = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// NormalizeAmount reads a report amount written with optional thousands
// separators and either decimal mark. Empty or unparseable input is 0.
func NormalizeAmount(raw string) float64 {
	value, ok := parseAmount(raw)
	if !ok {
		return 0
	}
	return value
}

// parseAmount applies the separator rule: with both ',' and '.' the comma
// groups thousands; a lone ',' is the decimal mark unless the value is
// written in strict groups of three digits. Empty input is 0.
func parseAmount(raw string) (float64, bool) {
	s := spaces.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, true
	}

	hasComma, hasDot := strings.Contains(s, ","), strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ",", "")
	case hasComma && thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	if !plainNumber.MatchString(s) {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
