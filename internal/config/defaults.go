package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is one scalar configuration key with its default and description.
type Entry struct {
	Key         string
	Value       any
	Description string
}

// DefaultEntries returns the scalar configuration keys with their defaults.
// Provider maps (recognizers, ocr_hints) are defaulted as whole sections.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// Pipeline
		{
			Key:         "pipeline.primary",
			Value:       d.Pipeline.Primary,
			Description: "Recognizer whose high-confidence result wins outright",
		},
		{
			Key:         "pipeline.secondary",
			Value:       d.Pipeline.Secondary,
			Description: "Recognizer used when the primary is not confident",
		},
		{
			Key:         "pipeline.ocr_hint",
			Value:       d.Pipeline.OCRHint,
			Description: "OCR provider whose text is passed to openai-compatible recognizers (empty disables hints)",
		},
		{
			Key:         "pipeline.degrade_on_failure",
			Value:       d.Pipeline.DegradeOnFailure,
			Description: "Continue with one recognizer when the other fails to respond",
		},
		{
			Key:         "pipeline.preprocess",
			Value:       d.Pipeline.Preprocess,
			Description: "Grayscale, contrast and threshold uploads before recognition",
		},
		{
			Key:         "pipeline.timeout",
			Value:       d.Pipeline.Timeout,
			Description: "Deadline for one decode request",
		},

		// Vocabulary
		{
			Key:         "vocabulary.path",
			Value:       d.Vocabulary.Path,
			Description: "Reference drug name list (empty uses ~/.rxdecode/data/vocabulary.json)",
		},

		// Server
		{
			Key:         "server.host",
			Value:       d.Server.Host,
			Description: "Address the HTTP server binds to",
		},
		{
			Key:         "server.port",
			Value:       d.Server.Port,
			Description: "Port the HTTP server listens on",
		},
		{
			Key:         "server.max_upload_mb",
			Value:       d.Server.MaxUploadMB,
			Description: "Largest accepted upload in megabytes",
		},
		{
			Key:         "server.cors_origins",
			Value:       d.Server.CORSOrigins,
			Description: "Allowed CORS origins",
		},
	}
}

// GetDefault returns the default value for a key.
func GetDefault(key string) (any, error) {
	for _, e := range DefaultEntries() {
		if e.Key == key {
			return e.Value, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDefault, key)
}

// describeDefaults renders the entries as YAML comment lines, sorted by key.
func describeDefaults() string {
	entries := DefaultEntries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "#   %s: %s\n", e.Key, e.Description)
	}
	return b.String()
}
