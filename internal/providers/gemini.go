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
	"net/url"
	"strings"
	"time"

	"github.com/jackzampolin/rxdecode/internal/rx"
)

const (
	GeminiName    = "gemini"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	GeminiModel   = "gemini-1.5-flash"

	// BlockedNote marks a response the safety filters withheld.
	BlockedNote = "Blocked by Safety Filters"
)

// geminiSafetyCategories are all sent with threshold BLOCK_NONE.
var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// GeminiConfig holds configuration for the Gemini recognizer.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  int           // Requests per minute (default: 15)
	MaxRetries int           // Attempts for transient failures (default: 3)
	RetryDelay time.Duration // Base backoff (default: 2s)
	Prompt     PromptBuilder // Required in production; tests may leave nil
	Logger     *slog.Logger
}

// GeminiRecognizer implements Recognizer using the Gemini generateContent API.
type GeminiRecognizer struct {
	apiKey  string
	baseURL string
	model   string
	limiter *RateLimiter
	rpm     int
	retry   retryPolicy
	prompt  PromptBuilder
	client  *http.Client
	logger  *slog.Logger
}

// NewGeminiRecognizer creates a new Gemini recognizer.
func NewGeminiRecognizer(cfg GeminiConfig) *GeminiRecognizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GeminiModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 15 // free tier
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &GeminiRecognizer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
		rpm:     cfg.RateLimit,
		retry:   retryPolicy{Attempts: uint(max(cfg.MaxRetries, 0)), Delay: cfg.RetryDelay},
		prompt:  cfg.Prompt,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

// Name returns the provider identifier.
func (g *GeminiRecognizer) Name() string {
	return GeminiName
}

// RequestsPerMinute returns the rate limit.
func (g *GeminiRecognizer) RequestsPerMinute() int {
	return g.rpm
}

// Recognize sends the image and prompt to Gemini and parses the JSON block
// out of the response text. Gemini reads the image alone; it never receives
// an OCR hint.
func (g *GeminiRecognizer) Recognize(ctx context.Context, img *Image) (*rx.Prescription, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Provider: GeminiName, Err: err}
	}

	prompt := ""
	if g.prompt != nil {
		prompt = g.prompt.Build("")
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{
					MIMEType: img.ContentType(),
					Data:     base64.StdEncoding.EncodeToString(img.Data),
				}},
			},
		}},
	}
	for _, category := range geminiSafetyCategories {
		reqBody.SafetySettings = append(reqBody.SafetySettings, geminiSafetySetting{
			Category:  category,
			Threshold: "BLOCK_NONE",
		})
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	respBody, err := doWithRetry(ctx, g.client, GeminiName, g.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			g.logger.Warn("gemini returned error status", "status", statusErr.StatusCode)
			return rx.Empty(statusErr.Note()), nil
		}
		return nil, err
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		schemaErr := &SchemaError{Provider: GeminiName, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
		g.logger.Warn("gemini response malformed", "error", schemaErr)
		return rx.Empty("Error: " + schemaErr.Error()), nil
	}

	text, ok := resp.firstText()
	if !ok {
		g.logger.Warn("gemini returned no content", "block_reason", resp.PromptFeedback.BlockReason)
		return rx.Empty(BlockedNote), nil
	}

	p, err := parsePrescription(GeminiName, text)
	if err != nil {
		g.logger.Warn("gemini output not usable", "error", err)
		return rx.Empty("Error: " + err.Error()), nil
	}
	g.logger.Debug("gemini recognized prescription", "medicines", len(p.Medicines))
	return p, nil
}

// Gemini API types

type geminiRequest struct {
	Contents       []geminiContent       `json:"contents"`
	SafetySettings []geminiSafetySetting `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// firstText returns the text of the first part of the first candidate.
// A missing candidate or empty part list counts as blocked.
func (r *geminiResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}

// Verify interface
var _ Recognizer = (*GeminiRecognizer)(nil)
