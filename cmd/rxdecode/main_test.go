package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/rxdecode/internal/server/endpoints"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rxdecode %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func writeVocabulary(t *testing.T, names ...string) string {
	t.Helper()
	data, err := json.Marshal(names)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "vocabulary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out := execute(t, "", "init", "--home", dir)
	if !strings.Contains(out, "wrote config") || !strings.Contains(out, "wrote vocabulary") {
		t.Errorf("first init output = %q", out)
	}
	for _, path := range []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "data", "vocabulary.json"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s: %v", path, err)
		}
	}

	out = execute(t, "", "init", "--home", dir)
	if !strings.Contains(out, "config exists") || !strings.Contains(out, "vocabulary exists") {
		t.Errorf("second init output = %q", out)
	}
}

func TestRunExitCodes(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	vocabPath := writeVocabulary(t, "Augmentin")

	if code := run(context.Background(), []string{"correct", "Augmentn", "--vocabulary", vocabPath, "-o", "json"}); code != 0 {
		t.Errorf("run(correct) = %d, want 0\n%s", code, out.String())
	}
	if code := run(context.Background(), []string{"no-such-command"}); code != 1 {
		t.Errorf("run(unknown command) = %d, want 1", code)
	}
}

func TestCorrectCommand(t *testing.T) {
	vocabPath := writeVocabulary(t, "Augmentin", "Panadol")

	out := execute(t, "", "correct", "Augmentn", "--vocabulary", vocabPath, "-o", "json")

	var got endpoints.CorrectResponse
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if got.Corrected != "Augmentin" || !got.Changed {
		t.Errorf("correct = %+v, want Augmentin changed", got)
	}
}

func TestParseCommand_Stdin(t *testing.T) {
	vocabPath := writeVocabulary(t, "Panadol")

	out := execute(t, "Panadoll 500mg 1x3\n", "parse", "-", "--vocabulary", vocabPath, "-o", "json")

	var got endpoints.ParseTextResponse
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if len(got.Medicines) != 1 {
		t.Fatalf("medicines = %d, want 1", len(got.Medicines))
	}
	m := got.Medicines[0]
	if m.Drug != "Panadol" || m.Dose != "500mg" || m.Freq != "1x3" {
		t.Errorf("medicine = %+v", m)
	}
	if m.RequiresManualReview {
		t.Error("corrected medicine flagged for review")
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("newLogger(%q) error = %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger(loud) error = nil, want error")
	}
}
