package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/ensemble"
	"github.com/jackzampolin/rxdecode/internal/lineparse"
	"github.com/jackzampolin/rxdecode/internal/metrics"
	"github.com/jackzampolin/rxdecode/internal/prompts"
	"github.com/jackzampolin/rxdecode/internal/prompts/extract"
	"github.com/jackzampolin/rxdecode/internal/providers"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/server/endpoints"
	"github.com/jackzampolin/rxdecode/internal/vocab"
)

var vocabularyPath string

// loadCorrector loads the vocabulary from --vocabulary, vocabulary.path, or
// the home directory, in that order.
func loadCorrector(logger *slog.Logger) (*vocab.Corrector, error) {
	path := vocabularyPath
	if path == "" {
		h, cm, err := loadConfig(logger)
		if err != nil {
			return nil, err
		}
		path = cm.Get().Vocabulary.Path
		if path == "" {
			path = h.VocabularyPath()
		}
	}

	v, err := vocab.LoadOrEmpty(path, logger)
	if err != nil {
		return nil, err
	}
	return vocab.NewCorrector(v, logger), nil
}

var correctCmd = &cobra.Command{
	Use:   "correct <name>...",
	Short: "Correct drug names against the reference vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		corrector, err := loadCorrector(logger)
		if err != nil {
			return err
		}

		results := make([]endpoints.CorrectResponse, len(args))
		for i, name := range args {
			corrected, changed := corrector.Correct(name)
			results[i] = endpoints.CorrectResponse{Input: name, Corrected: corrected, Changed: changed}
		}
		if len(results) == 1 {
			return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), results[0])
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), results)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse prescription text into medicines, with correction and review flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		corrector, err := loadCorrector(logger)
		if err != nil {
			return err
		}

		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		p := &rx.Prescription{Medicines: lineparse.Parse(string(text))}
		ensemble.PostProcess(p, corrector)
		if p.Medicines == nil {
			p.Medicines = []rx.Medicine{}
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), endpoints.ParseTextResponse{Medicines: p.Medicines})
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <image>",
	Short: "Decode a prescription image locally, without a server",
	Long: `Decode a prescription image in-process using the configured recognizers.

This runs the same pipeline as the server's upload endpoint, so the
recognizer API keys must be available in the environment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		_, cm, err := loadConfig(logger)
		if err != nil {
			return err
		}
		cfg := cm.Get()

		corrector, err := loadCorrector(logger)
		if err != nil {
			return err
		}

		resolver := prompts.NewResolver(logger)
		extract.RegisterPrompts(resolver)
		resolver.SetOverrides(cfg.Prompts)
		registry := providers.NewRegistryFromConfig(cfg.ToRegistryConfig(), providers.Prompts{
			Vision: extract.NewBuilder(resolver, nil, logger),
			Gemini: extract.NewGeminiBuilder(resolver, nil, logger),
		}, logger)
		if !registry.HasRecognizers() {
			return fmt.Errorf("no recognizers configured: set GROQ_API_KEY or GEMINI_API_KEY, or edit the config")
		}

		pipeline := ensemble.NewPipeline(ensemble.Config{
			Primary:          cfg.Pipeline.Primary,
			Secondary:        cfg.Pipeline.Secondary,
			DegradeOnFailure: cfg.Pipeline.DegradeOnFailure,
			Timeout:          cfg.PipelineTimeout(),
			Preprocess:       cfg.Pipeline.Preprocess,
		}, registry, corrector, metrics.NewRecorder(), logger)

		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		result, err := pipeline.Run(cmd.Context(), data)
		if err != nil {
			return err
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), result)
	},
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return data, nil
}

func init() {
	for _, cmd := range []*cobra.Command{correctCmd, parseCmd, decodeCmd} {
		cmd.Flags().StringVar(&vocabularyPath, "vocabulary", "", "Vocabulary JSON file (default: vocabulary.path or ~/.rxdecode/data/vocabulary.json)")
		rootCmd.AddCommand(cmd)
	}
}
