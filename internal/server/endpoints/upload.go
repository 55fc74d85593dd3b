package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/imageprep"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/svcctx"
)

// UploadSuccessMessage is the message of a successful decode.
const UploadSuccessMessage = "Success (Dual AI Engine)"

// DefaultMaxUploadBytes applies when no config manager is available.
const DefaultMaxUploadBytes = 10 << 20

// UploadResponse is the response of a successful decode.
type UploadResponse struct {
	Message string           `json:"message"`
	Data    *rx.Prescription `json:"data"`
}

// UploadEndpoint handles POST /api/prescription/upload with a multipart image.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prescription/upload", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Decode a prescription image
//	@Description	Runs both recognizers on the uploaded image, reconciles them, corrects drug names and flags low-confidence entries
//	@Tags			prescription
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Prescription image (JPEG, PNG, GIF, WebP, BMP, TIFF) or PDF"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/prescription/upload [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := int64(DefaultMaxUploadBytes)
	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		limit = cm.Get().MaxUploadBytes()
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	data, err := readUpload(r, "file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (limit %d bytes).", limit))
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	decoder := svcctx.DecoderFrom(ctx)
	if decoder == nil {
		writeError(w, http.StatusServiceUnavailable, "decoder not initialized")
		return
	}

	result, err := decoder.Run(ctx, data)
	if err != nil {
		if errors.Is(err, imageprep.ErrUnsupportedFormat) || errors.Is(err, imageprep.ErrNoImageInPDF) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Unsupported image", Details: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Processing Error", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Message: UploadSuccessMessage, Data: result})
}

// readUpload returns the contents of the named multipart file field.
func readUpload(r *http.Request, field string) ([]byte, error) {
	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <image>",
		Short: "Decode a prescription image on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.PostFile(cmd.Context(), "/api/prescription/upload", "file", args[0], data, &resp); err != nil {
				return err
			}
			return api.Output(resp.Data)
		},
	}
}
