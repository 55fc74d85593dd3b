package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status      string `json:"status"`
	Recognizers string `json:"recognizers,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

var _ api.Endpoint = (*HealthEndpoint)(nil)

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Health check
//	@Description	Returns ok while the HTTP server is responding
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

var _ api.Endpoint = (*ReadyEndpoint)(nil)

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns ok only when at least one recognizer is registered
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Recognizers: "not_initialized"})
		return
	}
	if !registry.HasRecognizers() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Recognizers: "none"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Recognizers: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes recognizers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:      %s\n", resp.Status)
			if resp.Recognizers != "" {
				fmt.Printf("Recognizers: %s\n", resp.Recognizers)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string           `json:"server"`
	Providers  ProvidersStatus  `json:"providers"`
	Pipeline   PipelineStatus   `json:"pipeline"`
	Vocabulary VocabularyStatus `json:"vocabulary"`
}

// ProvidersStatus shows registered recognizers and OCR providers.
type ProvidersStatus struct {
	Recognizers []string `json:"recognizers"`
	OCR         []string `json:"ocr"`
}

// PipelineStatus shows the configured pipeline.
type PipelineStatus struct {
	Primary          string `json:"primary"`
	Secondary        string `json:"secondary"`
	OCRHint          string `json:"ocr_hint"`
	DegradeOnFailure bool   `json:"degrade_on_failure"`
	Preprocess       bool   `json:"preprocess"`
}

// VocabularyStatus shows the loaded reference vocabulary.
type VocabularyStatus struct {
	Entries int `json:"entries"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

var _ api.Endpoint = (*StatusEndpoint)(nil)

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Registered providers, pipeline configuration and vocabulary size
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server: "running",
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.Recognizers = registry.ListRecognizers()
		resp.Providers.OCR = registry.ListOCR()
	}

	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		p := cm.Get().Pipeline
		resp.Pipeline = PipelineStatus{
			Primary:          p.Primary,
			Secondary:        p.Secondary,
			OCRHint:          p.OCRHint,
			DegradeOnFailure: p.DegradeOnFailure,
			Preprocess:       p.Preprocess,
		}
	}

	if corrector := svcctx.CorrectorFrom(ctx); corrector != nil {
		resp.Vocabulary.Entries = corrector.Vocabulary().Len()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
