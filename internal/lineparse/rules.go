package lineparse

import (
	"regexp"
	"strings"
)

// Rule is one alternative of a token pattern. Rules are tried in table order
// at each position; the leftmost match in the line wins, and among matches
// starting at the same position the earlier rule wins.
type Rule struct {
	Name    string
	Pattern string
}

// DoseUnits lists the recognized dose units. A dose is a number with an
// optional decimal part, an optional single space, then one of these units.
var DoseUnits = []Rule{
	{Name: "milligram", Pattern: `mg`},
	{Name: "gram", Pattern: `g`},
	{Name: "millilitre", Pattern: `ml`},
	{Name: "microgram", Pattern: `mcg`},
	{Name: "unit", Pattern: `unit`},
	{Name: "tablet", Pattern: `Tablet`},
	{Name: "capsule", Pattern: `Cap`},
}

// FrequencyRules lists the recognized frequency forms.
var FrequencyRules = []Rule{
	{Name: "times-per-day", Pattern: `\d+x\d+`},
	{Name: "twice", Pattern: `twice`},
	{Name: "thrice", Pattern: `thrice`},
	{Name: "daily", Pattern: `daily`},
	{Name: "every-n-hours", Pattern: `every \d+ h`},
	{Name: "q-n-h", Pattern: `q\d+h`},
	{Name: "bedtime", Pattern: `bedtime`},
}

// nameNoise matches everything that is not a letter, digit, underscore,
// whitespace or hyphen.
var nameNoise = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// compileDose builds the case-insensitive dose matcher from units.
func compileDose(units []Rule) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(\d+(\.\d+)?\s?(` + alternation(units) + `))`)
}

// compileFrequency builds the case-insensitive frequency matcher from rules.
func compileFrequency(rules []Rule) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(` + alternation(rules) + `)`)
}

func alternation(rules []Rule) string {
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = r.Pattern
	}
	return strings.Join(parts, "|")
}
