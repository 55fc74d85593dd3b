// Package data embeds the example drug vocabulary written by rxdecode init.
package data

import _ "embed"

// Vocabulary is a JSON array of canonical drug names.
//
//go:embed vocabulary.json
var Vocabulary []byte
