package providers

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/rxdecode/internal/lineparse"
	"github.com/jackzampolin/rxdecode/internal/rx"
)

// OCRRecognizer adapts an OCRProvider into a Recognizer by running the line
// parser over the extracted text.
type OCRRecognizer struct {
	ocr    OCRProvider
	parser *lineparse.Parser
	logger *slog.Logger
}

// NewOCRRecognizer wraps ocr. A nil parser uses the default rule tables.
func NewOCRRecognizer(ocr OCRProvider, parser *lineparse.Parser, logger *slog.Logger) *OCRRecognizer {
	if parser == nil {
		parser = lineparse.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRRecognizer{ocr: ocr, parser: parser, logger: logger}
}

// Name returns the wrapped provider's name.
func (r *OCRRecognizer) Name() string {
	return r.ocr.Name()
}

// RequestsPerMinute returns the wrapped provider's rate limit.
func (r *OCRRecognizer) RequestsPerMinute() int {
	return r.ocr.RequestsPerMinute()
}

// Recognize extracts text and parses it line by line. Transport failures are
// returned; an unsuccessful OCR result becomes an empty prescription.
func (r *OCRRecognizer) Recognize(ctx context.Context, img *Image) (*rx.Prescription, error) {
	result, err := r.ocr.ProcessImage(ctx, img.ForOCR())
	if err != nil {
		if IsTransport(err) {
			return nil, err
		}
		return rx.Empty("Error: " + err.Error()), nil
	}
	if result == nil || !result.Success {
		note := "Error: OCR failed"
		if result != nil && result.ErrorMessage != "" {
			note = "Error: " + result.ErrorMessage
		}
		return rx.Empty(note), nil
	}

	p := &rx.Prescription{Medicines: r.parser.Parse(result.Text)}
	r.logger.Debug("OCR recognizer parsed lines", "provider", r.ocr.Name(), "medicines", len(p.Medicines))
	return p, nil
}

// Verify interface
var _ Recognizer = (*OCRRecognizer)(nil)
