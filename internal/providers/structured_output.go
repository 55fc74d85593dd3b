package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/rxdecode/internal/prompts/extract"
	"github.com/jackzampolin/rxdecode/internal/rx"
)

// jsonFence matches a ```json fenced block anywhere in model output.
var jsonFence = regexp.MustCompile("(?s)```json(.*?)```")

// compiled caches compiled schemas by their raw text.
var compiled sync.Map

// wirePrescription is the typed shape recognizers decode model JSON into.
type wirePrescription struct {
	DoctorName string         `json:"doctorName"`
	Specialist string         `json:"specialist"`
	Notes      string         `json:"notes"`
	Medicines  []wireMedicine `json:"medicines"`
}

type wireMedicine struct {
	Drug                 string  `json:"drug"`
	Dose                 string  `json:"dose"`
	Freq                 string  `json:"freq"`
	Notes                string  `json:"notes"`
	Confidence           float64 `json:"confidence"`
	RequiresManualReview bool    `json:"requiresManualReview"`
}

// parsePrescription extracts the prescription JSON from model output,
// validates it against the prescription schema and decodes it.
// Any failure is a *SchemaError.
func parsePrescription(provider, content string) (*rx.Prescription, error) {
	parsed, err := parseStructuredJSON(content)
	if err != nil {
		return nil, &SchemaError{Provider: provider, Err: err}
	}

	// A bare array is read as the medicines list.
	if trimmed := bytes.TrimSpace(parsed); len(trimmed) > 0 && trimmed[0] == '[' {
		parsed = append(append([]byte(`{"medicines":`), trimmed...), '}')
	}

	if err := validateStructuredJSON(extract.PrescriptionSchema, parsed); err != nil {
		return nil, &SchemaError{Provider: provider, Err: err}
	}

	var wire wirePrescription
	if err := json.Unmarshal(parsed, &wire); err != nil {
		return nil, &SchemaError{Provider: provider, Err: fmt.Errorf("failed to decode prescription: %w", err)}
	}

	p := &rx.Prescription{
		DoctorName: wire.DoctorName,
		Specialist: wire.Specialist,
		Notes:      wire.Notes,
		Medicines:  make([]rx.Medicine, 0, len(wire.Medicines)),
	}
	for _, m := range wire.Medicines {
		p.Medicines = append(p.Medicines, rx.Medicine{
			Drug:                 strings.TrimSpace(m.Drug),
			Dose:                 m.Dose,
			Freq:                 m.Freq,
			Notes:                m.Notes,
			Confidence:           rx.ClampConfidence(int(math.Round(m.Confidence))),
			RequiresManualReview: m.RequiresManualReview,
		})
	}
	p.Normalize()
	return p, nil
}

// parseStructuredJSON parses JSON from model output. A ```json fence is
// preferred; otherwise the whole text, a generic fence, or the outermost
// bracketed span is tried in that order.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	var candidates []string
	if m := jsonFence.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)
	if stripped := stripCodeFences(content); stripped != "" {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("no JSON found in model output")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONCandidate returns the span from the first opening bracket to the
// last matching closing bracket of the same kind.
func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start, closeChar := -1, ""
	switch {
	case objectStart >= 0 && (arrayStart < 0 || objectStart < arrayStart):
		start, closeChar = objectStart, "}"
	case arrayStart >= 0:
		start, closeChar = arrayStart, "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// validateStructuredJSON validates parsed JSON against a schema document.
func validateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	schema, err := compileSchema(schemaRaw)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)
	if s, ok := compiled.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	coreSchema, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(coreSchema)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	compiled.Store(key, schema)
	return schema, nil
}

// extractValidationSchema unwraps {"name","strict","schema":{...}} wrappers.
func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	if inner, ok := root["schema"]; ok {
		return inner, nil
	}
	return schemaRaw, nil
}
