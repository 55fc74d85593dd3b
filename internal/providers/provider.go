package providers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/rxdecode/internal/rx"
)

// Recognizer turns a prescription image into a structured Prescription.
//
// A recognizer that reaches its service but cannot extract anything returns an
// empty-medicines Prescription whose Notes explain why (API error status,
// safety block, unparseable output). Only transport failures are returned as
// errors; they abort the request that issued them.
type Recognizer interface {
	// Name returns the provider identifier (e.g., "groq", "gemini").
	Name() string

	// Recognize extracts a prescription from an image.
	Recognize(ctx context.Context, img *Image) (*rx.Prescription, error)

	// RequestsPerMinute is the configured rate limit.
	RequestsPerMinute() int
}

// OCRProvider handles image-to-text extraction.
// Separate from Recognizer because its output is raw text, used as a hint for
// vision models or as input to the line parser.
type OCRProvider interface {
	// Name returns the provider identifier (e.g., "ocrspace", "mistral").
	Name() string

	// ProcessImage extracts text from an image.
	ProcessImage(ctx context.Context, image []byte) (*OCRResult, error)

	// RequestsPerMinute is the configured rate limit.
	RequestsPerMinute() int
}

// PromptBuilder renders the instruction text sent alongside the image.
type PromptBuilder interface {
	Build(ocrHint string) string
}

// HintFunc returns best-effort OCR text for an image. It never fails; an
// unavailable hint is the empty string.
type HintFunc func(ctx context.Context, img *Image) string

// Image is one upload prepared for the recognizers.
type Image struct {
	// Data is the image sent to vision models (JPEG).
	Data []byte
	// OCR is the variant tuned for OCR engines. Empty means use Data.
	OCR []byte
	// MIMEType of Data; defaults to image/jpeg.
	MIMEType string
}

// ForOCR returns the bytes to send to an OCR engine.
func (i *Image) ForOCR() []byte {
	if len(i.OCR) > 0 {
		return i.OCR
	}
	return i.Data
}

// ContentType returns the MIME type of Data.
func (i *Image) ContentType() string {
	if i.MIMEType == "" {
		return "image/jpeg"
	}
	return i.MIMEType
}

// OCRResult is the result of an OCR operation.
type OCRResult struct {
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	Text          string         `json:"text"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
}

// Hint runs provider against img and returns its text, or "" on any failure.
// A nil provider yields "".
func Hint(ctx context.Context, provider OCRProvider, img *Image, logger *slog.Logger) string {
	if provider == nil || img == nil {
		return ""
	}
	if logger == nil {
		logger = slog.Default()
	}

	result, err := provider.ProcessImage(ctx, img.ForOCR())
	if err != nil {
		logger.Warn("OCR hint failed", "provider", provider.Name(), "error", err)
		return ""
	}
	if result == nil || !result.Success {
		return ""
	}
	return strings.TrimSpace(result.Text)
}
