package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/config"
	"github.com/jackzampolin/rxdecode/internal/home"
	"github.com/jackzampolin/rxdecode/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "rxdecode",
	Short: "Handwritten prescription decoding with two recognizers and drug name correction",
	Long: `rxdecode turns a photographed handwritten prescription into a structured record:
doctor, specialist and a list of medicines with dose, frequency and confidence.

The pipeline includes:
  - Two vision recognizers queried concurrently, Groq helped by an OCR text hint
  - Confidence-based reconciliation of the two candidates
  - Drug name correction against a reference vocabulary
  - Low-confidence flagging for manual review`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.rxdecode/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "rxdecode home directory (default: ~/.rxdecode)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the text logger used by every command.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig resolves the home directory and loads configuration from
// --config, the home directory, or the default search path.
func loadConfig(logger *slog.Logger) (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}

	cm, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	cm.SetLogger(logger)
	return h, cm, nil
}
