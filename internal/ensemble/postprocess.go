package ensemble

import (
	"fmt"

	"github.com/jackzampolin/rxdecode/internal/rx"
)

// ReviewThreshold is the confidence below which a medicine needs manual review.
const ReviewThreshold = 70

// LowConfidenceNote is appended to medicines flagged for review.
const LowConfidenceNote = " [Low Confidence - Check Manually]"

// CorrectedNote returns the annotation recording an auto-correction.
func CorrectedNote(original string) string {
	return fmt.Sprintf(" [Auto-Corrected from '%s']", original)
}

// NameCorrector maps a recognized drug name to its canonical spelling.
type NameCorrector interface {
	Correct(name string) (string, bool)
}

// Stats counts what PostProcess changed.
type Stats struct {
	Corrected int
	Flagged   int
}

// PostProcess corrects every drug name in order and then flags low confidence
// entries. A correction resets confidence to 100 before the review check, so a
// corrected entry is never flagged. Each medicine is visited exactly once.
// A nil corrector skips correction.
func PostProcess(p *rx.Prescription, corrector NameCorrector) Stats {
	var stats Stats
	if p == nil {
		return stats
	}

	for i := range p.Medicines {
		m := &p.Medicines[i]

		if corrector != nil {
			original := m.Drug
			if corrected, _ := corrector.Correct(original); corrected != original {
				m.Drug = corrected
				m.AppendNote(CorrectedNote(original))
				m.SetConfidence(rx.MaxConfidence)
				stats.Corrected++
			}
		}

		if m.Confidence < ReviewThreshold {
			m.RequiresManualReview = true
			m.AppendNote(LowConfidenceNote)
			stats.Flagged++
		}
	}
	return stats
}
