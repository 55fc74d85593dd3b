package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/ensemble"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/svcctx"
)

const maxTextBytes = 1 << 20

// ParseTextResponse lists the medicines found in raw text.
type ParseTextResponse struct {
	Medicines []rx.Medicine `json:"medicines"`
}

// ParseTextEndpoint handles POST /api/text/parse.
type ParseTextEndpoint struct{}

var _ api.Endpoint = (*ParseTextEndpoint)(nil)

func (e *ParseTextEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/text/parse", e.handler
}

func (e *ParseTextEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Parse prescription text
//	@Description	Runs the line parser and the correction and review pass over raw OCR text
//	@Tags			prescription
//	@Accept			plain
//	@Produce		json
//	@Param			body	body		string	true	"Raw prescription text, one medicine per line"
//	@Success		200		{object}	ParseTextResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Router			/api/text/parse [post]
func (e *ParseTextEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "text too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}

	p := &rx.Prescription{Medicines: svcctx.ParserFrom(ctx).Parse(string(body))}

	var corrector ensemble.NameCorrector
	if c := svcctx.CorrectorFrom(ctx); c != nil {
		corrector = c
	}
	ensemble.PostProcess(p, corrector)
	svcctx.MetricsFrom(ctx).TextParse()

	if p.Medicines == nil {
		p.Medicines = []rx.Medicine{}
	}
	writeJSON(w, http.StatusOK, ParseTextResponse{Medicines: p.Medicines})
}

func (e *ParseTextEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse prescription text on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextArg(cmd, args[0])
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var resp ParseTextResponse
			if err := client.PostText(cmd.Context(), "/api/text/parse", text, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// readTextArg reads a file, or stdin for "-".
func readTextArg(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return string(data), nil
}
