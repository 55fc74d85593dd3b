// Package prompts manages the prompt templates sent to vision recognizers.
//
// Embedded .tmpl files are the defaults. Operators may override any prompt by
// key from configuration; overrides are swapped in on config reload.
//
// Resolution order for a key:
//  1. Configured override (if set and non-blank)
//  2. Embedded default
package prompts

// EmbeddedPrompt is a prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: recognizers.vision
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 of Text for change detection
}

// ResolvedPrompt is the text in effect for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	Hash       string   `json:"hash"`
	IsOverride bool     `json:"is_override"`
}
