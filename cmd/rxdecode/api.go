package main

import (
	"os"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.All() {
		registry.Register(ep)
	}
	apiCmd := registry.BuildCommands(getServerURL)

	defaultURL := "http://localhost:8080"
	if env := os.Getenv("RXDECODE_SERVER"); env != "" {
		defaultURL = env
	}
	// Persistent so all subcommands inherit it
	apiCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "Server URL (env RXDECODE_SERVER)")

	rootCmd.AddCommand(apiCmd)
}
