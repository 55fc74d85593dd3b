package endpoints

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/svcctx"
)

// CorrectResponse is the result of correcting one drug name.
type CorrectResponse struct {
	Input     string `json:"input"`
	Corrected string `json:"corrected"`
	Changed   bool   `json:"changed"`
}

// VocabularyResponse lists the reference vocabulary.
type VocabularyResponse struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// CorrectEndpoint handles GET /api/vocabulary/correct.
type CorrectEndpoint struct{}

var _ api.Endpoint = (*CorrectEndpoint)(nil)

func (e *CorrectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/vocabulary/correct", e.handler
}

func (e *CorrectEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Correct a drug name
//	@Description	Maps a misspelled drug name onto the reference vocabulary
//	@Tags			vocabulary
//	@Produce		json
//	@Param			name	query		string	true	"Drug name as recognized"
//	@Success		200		{object}	CorrectResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/vocabulary/correct [get]
func (e *CorrectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("name") {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	name := r.URL.Query().Get("name")

	corrector := svcctx.CorrectorFrom(r.Context())
	if corrector == nil {
		writeError(w, http.StatusServiceUnavailable, "corrector not initialized")
		return
	}

	corrected, changed := corrector.Correct(name)
	writeJSON(w, http.StatusOK, CorrectResponse{Input: name, Corrected: corrected, Changed: changed})
}

func (e *CorrectEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "correct <name>",
		Short: "Correct a drug name against the server's vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CorrectResponse
			path := "/api/vocabulary/correct?name=" + url.QueryEscape(args[0])
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatYAML {
				fmt.Println(resp.Corrected)
				return nil
			}
			return api.Output(resp)
		},
	}
}

// VocabularyEndpoint handles GET /api/vocabulary.
type VocabularyEndpoint struct{}

var _ api.Endpoint = (*VocabularyEndpoint)(nil)

func (e *VocabularyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/vocabulary", e.handler
}

func (e *VocabularyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List the reference vocabulary
//	@Description	Canonical drug names used for correction, in file order
//	@Tags			vocabulary
//	@Produce		json
//	@Success		200	{object}	VocabularyResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/vocabulary [get]
func (e *VocabularyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	corrector := svcctx.CorrectorFrom(r.Context())
	if corrector == nil {
		writeError(w, http.StatusServiceUnavailable, "corrector not initialized")
		return
	}

	names := corrector.Vocabulary().Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, VocabularyResponse{Count: len(names), Names: names})
}

func (e *VocabularyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "List the server's reference vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp VocabularyResponse
			if err := client.Get(cmd.Context(), "/api/vocabulary", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
