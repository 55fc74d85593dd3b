package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rxdecode server",
	Long: `Start the rxdecode HTTP server.

The configuration file is watched; recognizers, prompts and pipeline
settings are reloaded when it changes.

The server provides:
  - POST /api/prescription/upload - Decode a prescription image
  - POST /api/text/parse          - Parse raw prescription text
  - /health, /ready, /status      - Health and readiness checks
  - /metrics                      - Prometheus metrics
  - /swagger                      - API documentation

Examples:
  rxdecode serve                    # Start on the configured port (default 8080)
  rxdecode serve --port 3000        # Start on custom port
  rxdecode serve --host 127.0.0.1   # Bind to loopback only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}

		h, cm, err := loadConfig(logger)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if used := cm.ConfigFileUsed(); used != "" {
			logger.Info("loaded config", "path", used)
			cm.WatchConfig()
		} else {
			logger.Info("no config file found, using defaults (run rxdecode init to create one)")
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cm,
			Logger:        logger,
			Home:          h,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")

	rootCmd.AddCommand(serveCmd)
}
