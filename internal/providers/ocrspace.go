package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	OCRSpaceName    = "ocrspace"
	OCRSpaceBaseURL = "https://api.ocr.space/parse/image"
)

// OCRSpaceConfig holds configuration for the OCR.space client.
type OCRSpaceConfig struct {
	APIKey     string
	BaseURL    string
	Language   string // default: eng
	Engine     int    // default: 2
	Timeout    time.Duration
	RateLimit  int // Requests per minute (default: 60)
	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// OCRSpaceClient implements OCRProvider using the OCR.space parse API.
type OCRSpaceClient struct {
	apiKey   string
	endpoint string
	language string
	engine   int
	rpm      int
	limiter  *RateLimiter
	retry    retryPolicy
	client   *http.Client
	logger   *slog.Logger
}

// NewOCRSpaceClient creates a new OCR.space client.
func NewOCRSpaceClient(cfg OCRSpaceConfig) *OCRSpaceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OCRSpaceBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Engine == 0 {
		cfg.Engine = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &OCRSpaceClient{
		apiKey:   cfg.APIKey,
		endpoint: cfg.BaseURL,
		language: cfg.Language,
		engine:   cfg.Engine,
		rpm:      cfg.RateLimit,
		limiter:  NewRateLimiter(cfg.RateLimit),
		retry:    retryPolicy{Attempts: uint(max(cfg.MaxRetries, 0)), Delay: cfg.RetryDelay},
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *OCRSpaceClient) Name() string {
	return OCRSpaceName
}

// RequestsPerMinute returns the rate limit.
func (c *OCRSpaceClient) RequestsPerMinute() int {
	return c.rpm
}

// ProcessImage uploads the image as multipart form data and joins the parsed
// text of every result. A response flagged IsErroredOnProcessing is an
// unsuccessful result, not an error.
func (c *OCRSpaceClient) ProcessImage(ctx context.Context, image []byte) (*OCRResult, error) {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Provider: OCRSpaceName, Err: err}
	}

	body, contentType, err := c.buildForm(image)
	if err != nil {
		return nil, err
	}

	respBody, err := doWithRetry(ctx, c.client, OCRSpaceName, c.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return &OCRResult{
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	var resp ocrSpaceResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &SchemaError{Provider: OCRSpaceName, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if resp.IsErroredOnProcessing {
		msg := resp.errorText()
		c.logger.Warn("OCR.space could not process image", "error", msg)
		return &OCRResult{
			ErrorMessage:  msg,
			ExecutionTime: time.Since(start),
		}, nil
	}

	texts := make([]string, 0, len(resp.ParsedResults))
	for _, r := range resp.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			texts = append(texts, t)
		}
	}

	return &OCRResult{
		Success: true,
		Text:    strings.Join(texts, "\n"),
		Metadata: map[string]any{
			"exit_code":       resp.OCRExitCode,
			"processing_time": resp.ProcessingTimeInMilliseconds,
		},
		ExecutionTime: time.Since(start),
	}, nil
}

func (c *OCRSpaceClient) buildForm(image []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"apikey", c.apiKey},
		{"language", c.language},
		{"isOverlayRequired", "true"},
		{"OCREngine", fmt.Sprint(c.engine)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("file", "prescription.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// OCR.space API types

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
	} `json:"ParsedResults"`
	OCRExitCode                  int             `json:"OCRExitCode"`
	IsErroredOnProcessing        bool            `json:"IsErroredOnProcessing"`
	ErrorMessage                 json.RawMessage `json:"ErrorMessage"`
	ProcessingTimeInMilliseconds string          `json:"ProcessingTimeInMilliseconds"`
}

// errorText flattens ErrorMessage, which the API sends as a string or a list.
func (r *ocrSpaceResponse) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return "OCR processing failed"
	}
	var list []string
	if json.Unmarshal(r.ErrorMessage, &list) == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if json.Unmarshal(r.ErrorMessage, &single) == nil {
		return single
	}
	return string(r.ErrorMessage)
}

// Verify interface
var _ OCRProvider = (*OCRSpaceClient)(nil)
