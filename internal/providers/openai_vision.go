package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jackzampolin/rxdecode/internal/rx"
)

const (
	GroqName    = "groq"
	GroqBaseURL = "https://api.groq.com/openai/v1"
	GroqModel   = "meta-llama/llama-4-scout-17b-16e-instruct"

	visionTemperature = 0.1
	visionMaxTokens   = 1024
)

// OpenAIVisionConfig holds configuration for an OpenAI-compatible vision
// recognizer. Defaults target Groq.
type OpenAIVisionConfig struct {
	Name        string // Provider identifier (default: groq)
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	RateLimit   int // Requests per minute (default: 30)
	MaxRetries  int // Passed to the SDK (default: 2)
	Temperature float64
	MaxTokens   int64
	Prompt      PromptBuilder
	Hint        HintFunc
	Logger      *slog.Logger
}

// OpenAIVisionRecognizer implements Recognizer over the chat completions API
// with an inline base64 image part.
type OpenAIVisionRecognizer struct {
	name        string
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	rpm         int
	limiter     *RateLimiter
	prompt      PromptBuilder
	hint        HintFunc
	logger      *slog.Logger
}

// NewOpenAIVisionRecognizer creates a new OpenAI-compatible recognizer.
func NewOpenAIVisionRecognizer(cfg OpenAIVisionConfig) *OpenAIVisionRecognizer {
	if cfg.Name == "" {
		cfg.Name = GroqName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GroqModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = visionTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = visionMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithBaseURL(cfg.BaseURL),
	)

	return &OpenAIVisionRecognizer{
		name:        cfg.Name,
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		rpm:         cfg.RateLimit,
		limiter:     NewRateLimiter(cfg.RateLimit),
		prompt:      cfg.Prompt,
		hint:        cfg.Hint,
		logger:      cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *OpenAIVisionRecognizer) Name() string {
	return c.name
}

// RequestsPerMinute returns the rate limit.
func (c *OpenAIVisionRecognizer) RequestsPerMinute() int {
	return c.rpm
}

// Recognize sends the prompt and image as one user message and parses the
// first choice's content.
func (c *OpenAIVisionRecognizer) Recognize(ctx context.Context, img *Image) (*rx.Prescription, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Provider: c.name, Err: err}
	}

	var hint string
	if c.hint != nil {
		hint = c.hint(ctx, img)
	}
	prompt := ""
	if c.prompt != nil {
		prompt = c.prompt.Build(hint)
	}

	dataURL := "data:" + img.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			statusErr := &StatusError{Provider: c.name, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
			c.logger.Warn("vision model returned error status", "provider", c.name, "status", apiErr.StatusCode)
			return rx.Empty(statusErr.Note()), nil
		}
		return nil, &TransportError{Provider: c.name, Err: err}
	}

	if len(resp.Choices) == 0 {
		schemaErr := &SchemaError{Provider: c.name, Err: errors.New("response has no choices")}
		return rx.Empty("Error: " + schemaErr.Error()), nil
	}

	p, err := parsePrescription(c.name, resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("vision output not usable", "provider", c.name, "error", err)
		return rx.Empty("Error: " + err.Error()), nil
	}
	c.logger.Debug("vision model recognized prescription", "provider", c.name, "medicines", len(p.Medicines))
	return p, nil
}

// Verify interface
var _ Recognizer = (*OpenAIVisionRecognizer)(nil)
