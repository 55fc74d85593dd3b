// Package lineparse extracts medicine entries from raw OCR text when no
// structured recognizer output is available.
//
// Each line is handled independently: the first dose token and the first
// frequency token are pulled out, and whatever text remains is taken as the
// drug name. The parser never fails; a line either yields a medicine or is
// skipped.
//
// Known limitation: tokens are removed by literal text replacement, not by
// position. If the matched dose or frequency text also occurs inside the drug
// name, every occurrence is removed and the name is mangled, e.g.
// "Cal5mg 5mg daily" yields drug "Cal". Lines with unusual punctuation may also
// leave fragments behind.
package lineparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackzampolin/rxdecode/internal/rx"
)

// MinLineLength is the shortest trimmed line considered; shorter lines are scanner noise.
const MinLineLength = 3

// Parser turns raw recognized text into medicine entries.
type Parser struct {
	dose *regexp.Regexp
	freq *regexp.Regexp
}

// New returns a parser over the given dose units and frequency rules.
func New(units, frequencies []Rule) *Parser {
	return &Parser{
		dose: compileDose(units),
		freq: compileFrequency(frequencies),
	}
}

var defaultParser = New(DoseUnits, FrequencyRules)

// Default returns the parser built from DoseUnits and FrequencyRules.
func Default() *Parser {
	return defaultParser
}

// Parse runs the default rule tables over text.
func Parse(text string) []rx.Medicine {
	return defaultParser.Parse(text)
}

// Parse returns one medicine per line that leaves a non-empty drug name, in line order.
func (p *Parser) Parse(text string) []rx.Medicine {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\r' || r == '\n'
	})

	medicines := make([]rx.Medicine, 0, len(lines))
	for _, raw := range lines {
		if m, ok := p.ParseLine(raw); ok {
			medicines = append(medicines, m)
		}
	}
	return medicines
}

// ParseLine extracts a medicine from a single line.
// It reports false for blank lines, lines shorter than MinLineLength, and
// lines with nothing left after the dose and frequency are removed.
func (p *Parser) ParseLine(line string) (rx.Medicine, bool) {
	line = strings.TrimSpace(line)
	if len([]rune(line)) < MinLineLength {
		return rx.Medicine{}, false
	}

	dose := p.dose.FindString(line)
	freq := p.freq.FindString(line)

	drug := line
	if dose != "" {
		drug = strings.TrimSpace(strings.ReplaceAll(drug, dose, ""))
	}
	if freq != "" {
		drug = strings.TrimSpace(strings.ReplaceAll(drug, freq, ""))
	}
	drug = strings.TrimSpace(nameNoise.ReplaceAllString(drug, ""))
	if drug == "" {
		return rx.Medicine{}, false
	}

	m := rx.NewMedicine(drug)
	if dose != "" {
		m.Dose = dose
	}
	if freq != "" {
		m.Freq = freq
	}
	m.Notes = fmt.Sprintf("Extracted via OCR from line: '%s'", line)
	return m, true
}
