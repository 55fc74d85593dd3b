// Package vocab holds the reference drug vocabulary and the name corrector
// that maps noisy recognized text onto it.
//
// A Vocabulary is built once at startup and never mutated afterwards, so a
// single instance is shared by every request without locking.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrNotFound is returned by Load when the vocabulary file does not exist.
var ErrNotFound = errors.New("vocabulary file not found")

// Vocabulary is an ordered, case-preserved, read-only list of canonical drug names.
type Vocabulary struct {
	names []string
	lower []string
	index map[string]struct{}
}

// New builds a Vocabulary from names. The slice is copied; order is kept.
func New(names []string) *Vocabulary {
	v := &Vocabulary{
		names: make([]string, len(names)),
		lower: make([]string, len(names)),
		index: make(map[string]struct{}, len(names)),
	}
	copy(v.names, names)
	for i, n := range v.names {
		l := strings.ToLower(n)
		v.lower[i] = l
		v.index[l] = struct{}{}
	}
	return v
}

// Empty returns a vocabulary with no entries. A corrector over it is a no-op.
func Empty() *Vocabulary {
	return New(nil)
}

// Load reads a JSON array of drug names from path.
// A missing file yields ErrNotFound; malformed JSON yields a wrapped decode error.
// A JSON null is treated as an empty list.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}
	return New(names), nil
}

// LoadOrEmpty loads the vocabulary at path and degrades to an empty vocabulary
// with a warning when the file is missing. Other errors are returned.
func LoadOrEmpty(path string, logger *slog.Logger) (*Vocabulary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		logger.Warn("no drug vocabulary configured, name correction disabled")
		return Empty(), nil
	}

	v, err := Load(path)
	if errors.Is(err, ErrNotFound) {
		logger.Warn("drug vocabulary not found, name correction disabled", "path", path)
		return Empty(), nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("loaded drug vocabulary", "path", path, "entries", v.Len())
	return v, nil
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.names)
}

// Names returns a copy of the entries in order.
func (v *Vocabulary) Names() []string {
	if v == nil {
		return []string{}
	}
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// ContainsFold reports whether name matches an entry ignoring case.
func (v *Vocabulary) ContainsFold(name string) bool {
	if v == nil {
		return false
	}
	_, ok := v.index[strings.ToLower(name)]
	return ok
}
