// Package ensemble picks one prescription out of two independently recognized
// candidates and normalizes its medicine list.
package ensemble

import (
	"github.com/jackzampolin/rxdecode/internal/rx"
)

// HighConfidence is the exclusive bound above which a single primary medicine
// makes the primary candidate win outright.
const HighConfidence = 85

// Candidate identifies which input the reconciler returned.
type Candidate string

const (
	Primary   Candidate = "primary"
	Secondary Candidate = "secondary"
)

// Rule names the selection rule that fired.
type Rule string

const (
	RuleHighConfidence    Rule = "high_confidence"
	RuleSecondaryNonEmpty Rule = "secondary_has_medicines"
	RuleDefault           Rule = "default"
)

// Selection is the reconciler's decision.
type Selection struct {
	Prescription *rx.Prescription
	Candidate    Candidate
	Rule         Rule
}

// selectionRule picks a candidate when match holds.
type selectionRule struct {
	rule      Rule
	candidate Candidate
	match     func(primary, secondary *rx.Prescription) bool
}

// selectionRules are evaluated in order; the first match wins.
var selectionRules = []selectionRule{
	{
		rule:      RuleHighConfidence,
		candidate: Primary,
		match: func(primary, _ *rx.Prescription) bool {
			return primary.AnyConfidenceAbove(HighConfidence)
		},
	},
	{
		rule:      RuleSecondaryNonEmpty,
		candidate: Secondary,
		match: func(_, secondary *rx.Prescription) bool {
			return secondary.HasMedicines()
		},
	},
}

// Select applies the selection rules to the two candidates. The chosen
// prescription is returned as is; nothing is merged across candidates.
func Select(primary, secondary *rx.Prescription) Selection {
	for _, r := range selectionRules {
		if r.match(primary, secondary) {
			return pick(r.candidate, r.rule, primary, secondary)
		}
	}
	return pick(Primary, RuleDefault, primary, secondary)
}

// Reconcile returns the winning candidate.
func Reconcile(primary, secondary *rx.Prescription) *rx.Prescription {
	return Select(primary, secondary).Prescription
}

func pick(c Candidate, rule Rule, primary, secondary *rx.Prescription) Selection {
	p := primary
	if c == Secondary {
		p = secondary
	}
	return Selection{Prescription: p, Candidate: c, Rule: rule}
}
