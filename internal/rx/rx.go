// Package rx defines the prescription data model shared by the recognizers,
// the line parser, and the reconciliation pipeline.
// This package has no dependencies on other rxdecode packages to avoid import cycles.
package rx

import "strings"

// NotStated is the placeholder for a dose or frequency that could not be read.
const NotStated = "Not Stated"

// Confidence bounds.
const (
	MinConfidence = 0
	MaxConfidence = 100
)

// Medicine is a single prescribed drug entry.
// Notes are append-only: annotations accumulate, prior content is never replaced.
type Medicine struct {
	Drug                 string `json:"drug"`
	Dose                 string `json:"dose"`
	Freq                 string `json:"freq"`
	Notes                string `json:"notes"`
	Confidence           int    `json:"confidence"`
	RequiresManualReview bool   `json:"requiresManualReview"`
}

// NewMedicine returns a Medicine with the dose and frequency defaulted to NotStated.
func NewMedicine(drug string) Medicine {
	return Medicine{
		Drug: drug,
		Dose: NotStated,
		Freq: NotStated,
	}
}

// SetConfidence stores c clamped to [MinConfidence, MaxConfidence].
func (m *Medicine) SetConfidence(c int) {
	m.Confidence = ClampConfidence(c)
}

// AppendNote appends an annotation verbatim to the notes.
func (m *Medicine) AppendNote(note string) {
	m.Notes += note
}

// ClampConfidence bounds c to [MinConfidence, MaxConfidence].
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Prescription is the structured result of decoding one prescription image.
// Medicines keep source-extraction order through every stage.
type Prescription struct {
	DoctorName string     `json:"doctorName"`
	Specialist string     `json:"specialist"`
	Notes      string     `json:"notes"`
	Medicines  []Medicine `json:"medicines"`
}

// Empty returns a Prescription with no medicines and the given explanatory note.
// Recognizers use it for results they could not extract anything from.
func Empty(note string) *Prescription {
	return &Prescription{
		Notes:     note,
		Medicines: []Medicine{},
	}
}

// HasMedicines reports whether the prescription lists at least one medicine.
func (p *Prescription) HasMedicines() bool {
	return p != nil && len(p.Medicines) > 0
}

// AnyConfidenceAbove reports whether any medicine has confidence strictly above threshold.
func (p *Prescription) AnyConfidenceAbove(threshold int) bool {
	if p == nil {
		return false
	}
	for _, m := range p.Medicines {
		if m.Confidence > threshold {
			return true
		}
	}
	return false
}

// Normalize clamps every confidence and fills blank dose/frequency fields.
// It is applied to recognizer output before it enters the pipeline.
func (p *Prescription) Normalize() {
	if p.Medicines == nil {
		p.Medicines = []Medicine{}
	}
	for i := range p.Medicines {
		m := &p.Medicines[i]
		m.SetConfidence(m.Confidence)
		if strings.TrimSpace(m.Dose) == "" {
			m.Dose = NotStated
		}
		if strings.TrimSpace(m.Freq) == "" {
			m.Freq = NotStated
		}
	}
}
