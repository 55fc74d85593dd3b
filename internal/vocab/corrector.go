package vocab

import (
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// maxCorrectionDistance caps the edits a correction may make.
	maxCorrectionDistance = 2.0
	// correctionRatio bounds the edits relative to the input length.
	correctionRatio = 0.2
)

// Corrector maps free-text drug names onto a Vocabulary.
// It is safe for concurrent use; it holds no mutable state.
type Corrector struct {
	vocab  *Vocabulary
	logger *slog.Logger
}

// NewCorrector returns a corrector over v. A nil v behaves as an empty vocabulary.
func NewCorrector(v *Vocabulary, logger *slog.Logger) *Corrector {
	if v == nil {
		v = Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{vocab: v, logger: logger}
}

// Vocabulary returns the vocabulary the corrector reads from.
func (c *Corrector) Vocabulary() *Vocabulary {
	return c.vocab
}

// Correct returns the corrected name and whether it differs from name.
//
// A case-insensitive exact hit returns name verbatim, keeping its casing.
// Otherwise the entry with the smallest edit distance to name (both lowercased,
// earliest entry on ties) is accepted when
//
//	dist <= min(2, runes(name) * 0.2)
//
// The bound is real-valued: names under 5 runes never correct, names of 5 to 9
// runes tolerate one edit, 10 and longer tolerate two. An accepted match is
// returned in the vocabulary's casing.
func (c *Corrector) Correct(name string) (string, bool) {
	if strings.TrimSpace(name) == "" || c.vocab.Len() == 0 {
		return name, false
	}
	if c.vocab.ContainsFold(name) {
		return name, false
	}

	lowered := strings.ToLower(name)
	best := -1
	bestDist := math.MaxInt
	for i, entry := range c.vocab.lower {
		d := Distance(lowered, entry)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	threshold := math.Min(maxCorrectionDistance, float64(utf8.RuneCountInString(name))*correctionRatio)
	if best < 0 || float64(bestDist) > threshold {
		return name, false
	}

	corrected := c.vocab.names[best]
	c.logger.Debug("corrected drug name", "input", name, "corrected", corrected, "distance", bestDist)
	return corrected, true
}
