package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  int // Requests per minute (default: 360)
	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// MistralOCRClient implements OCRProvider using the Mistral OCR API.
type MistralOCRClient struct {
	apiKey  string
	baseURL string
	model   string
	rpm     int
	limiter *RateLimiter
	retry   retryPolicy
	client  *http.Client
	logger  *slog.Logger
}

// NewMistralOCRClient creates a new Mistral OCR client.
func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 360
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &MistralOCRClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		rpm:     cfg.RateLimit,
		limiter: NewRateLimiter(cfg.RateLimit),
		retry:   retryPolicy{Attempts: uint(max(cfg.MaxRetries, 0)), Delay: cfg.RetryDelay},
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// RequestsPerMinute returns the rate limit.
func (c *MistralOCRClient) RequestsPerMinute() int {
	return c.rpm
}

// ProcessImage extracts markdown text from an image.
func (c *MistralOCRClient) ProcessImage(ctx context.Context, image []byte) (*OCRResult, error) {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Provider: MistralOCRName, Err: err}
	}

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:     "image_url",
			ImageURL: "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image),
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := doWithRetry(ctx, c.client, MistralOCRName, c.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/ocr", bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			var errResp mistralErrorResponse
			if json.Unmarshal([]byte(statusErr.Message), &errResp) == nil && errResp.Error.Message != "" {
				statusErr.Message = errResp.Error.Message
			}
		}
		return &OCRResult{
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	var resp mistralOCRResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &SchemaError{Provider: MistralOCRName, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if len(resp.Pages) == 0 {
		return &OCRResult{
			ErrorMessage:  "no pages in OCR response",
			ExecutionTime: time.Since(start),
		}, nil
	}

	page := resp.Pages[0]
	c.logger.Debug("mistral OCR complete", "chars", len(page.Markdown), "duration", time.Since(start))

	return &OCRResult{
		Success: true,
		Text:    page.Markdown,
		Metadata: map[string]any{
			"model_used": resp.Model,
			"width":      page.Dimensions.Width,
			"height":     page.Dimensions.Height,
		},
		ExecutionTime: time.Since(start),
	}, nil
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type mistralOCRResponse struct {
	Model string           `json:"model"`
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index      int                   `json:"index"`
	Markdown   string                `json:"markdown"`
	Dimensions mistralPageDimensions `json:"dimensions"`
}

type mistralPageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Verify interface
var _ OCRProvider = (*MistralOCRClient)(nil)
