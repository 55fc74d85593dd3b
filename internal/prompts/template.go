package prompts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"text/template"
)

// variablePattern matches template references like {{.OCRHint}}, {{ .Group.Names }}
// or {{- range .KnowledgeBase}}.
var variablePattern = regexp.MustCompile(`\{\{-?\s*(?:(?:if|range|with)\s+)?\.([a-zA-Z_][a-zA-Z0-9_.]*)`)

// ExtractVariables returns the sorted, de-duplicated field references in text.
// "Hint: {{.OCRHint}} {{range .KnowledgeBase}}" returns ["KnowledgeBase", "OCRHint"].
func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if name := match[1]; !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Render parses text as a Go template and executes it with data.
func Render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
