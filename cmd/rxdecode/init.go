package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/data"
	"github.com/jackzampolin/rxdecode/internal/config"
	"github.com/jackzampolin/rxdecode/internal/home"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the home directory with a default config and vocabulary",
	Long: `Create ~/.rxdecode (or --home) containing:
  - config.yaml           default configuration with every key documented
  - data/vocabulary.json  example reference vocabulary for name correction

Existing files are kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if h.ConfigExists() && !initForce {
			fmt.Fprintf(out, "config exists:     %s\n", h.ConfigPath())
		} else {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote config:      %s\n", h.ConfigPath())
		}

		wrote, err := h.WriteVocabulary(data.Vocabulary)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Fprintf(out, "wrote vocabulary:  %s\n", h.VocabularyPath())
		} else {
			fmt.Fprintf(out, "vocabulary exists: %s\n", h.VocabularyPath())
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(initCmd)
}
