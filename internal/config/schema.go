package config

import (
	"fmt"
	"time"
)

// Config holds rxdecode configuration.
// Stored at: ~/.rxdecode/config.yaml
type Config struct {
	Recognizers map[string]RecognizerCfg `mapstructure:"recognizers" yaml:"recognizers"`
	OCRHints    map[string]OCRHintCfg    `mapstructure:"ocr_hints" yaml:"ocr_hints"`
	Pipeline    PipelineCfg              `mapstructure:"pipeline" yaml:"pipeline"`
	Vocabulary  VocabularyCfg            `mapstructure:"vocabulary" yaml:"vocabulary"`
	Server      ServerCfg                `mapstructure:"server" yaml:"server"`

	// Prompts overrides embedded prompt templates by key.
	Prompts map[string]string `mapstructure:"prompts" yaml:"prompts,omitempty"`
}

// RecognizerCfg configures a prescription recognizer.
type RecognizerCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`                       // "openai-compatible", "gemini", "ocr"
	Model     string `mapstructure:"model" yaml:"model,omitempty"`           // Model name
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`     // API base URL
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"` // Requests per minute
	Timeout   string `mapstructure:"timeout" yaml:"timeout,omitempty"`       // Go duration, e.g. "60s"
	Source    string `mapstructure:"source" yaml:"source,omitempty"`         // OCR hint provider, for type "ocr"
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// OCRHintCfg configures an OCR provider used for hints.
type OCRHintCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`                       // "ocrspace", "mistral-ocr"
	Model     string `mapstructure:"model" yaml:"model,omitempty"`           // Model name (for mistral-ocr)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`     // API base URL
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"` // Requests per minute
	Timeout   string `mapstructure:"timeout" yaml:"timeout,omitempty"`
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// PipelineCfg selects the recognizers and controls a decode run.
type PipelineCfg struct {
	Primary   string `mapstructure:"primary" yaml:"primary"`
	Secondary string `mapstructure:"secondary" yaml:"secondary"`
	// OCRHint names the ocr_hints entry whose text is passed to openai-compatible recognizers.
	OCRHint string `mapstructure:"ocr_hint" yaml:"ocr_hint"`
	// DegradeOnFailure lets a request survive the transport failure of one recognizer.
	DegradeOnFailure bool   `mapstructure:"degrade_on_failure" yaml:"degrade_on_failure"`
	Preprocess       bool   `mapstructure:"preprocess" yaml:"preprocess"`
	Timeout          string `mapstructure:"timeout" yaml:"timeout"`
}

// VocabularyCfg locates the reference vocabulary.
type VocabularyCfg struct {
	// Path to the JSON name list. Empty means {home}/data/vocabulary.json.
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerCfg holds HTTP server settings.
type ServerCfg struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        string   `mapstructure:"port" yaml:"port"`
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Recognizers: map[string]RecognizerCfg{
			"groq": {
				Type:      "openai-compatible",
				Model:     "meta-llama/llama-4-scout-17b-16e-instruct",
				BaseURL:   "https://api.groq.com/openai/v1",
				APIKey:    "${GROQ_API_KEY}",
				RateLimit: 30,
				Timeout:   "60s",
				Enabled:   true,
			},
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-1.5-flash",
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 15,
				Timeout:   "60s",
				Enabled:   true,
			},
		},
		OCRHints: map[string]OCRHintCfg{
			"ocrspace": {
				Type:      "ocrspace",
				APIKey:    "${OCRSPACE_API_KEY}",
				RateLimit: 60,
				Timeout:   "30s",
				Enabled:   true,
			},
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 360,
				Timeout:   "60s",
				Enabled:   false,
			},
		},
		Pipeline: PipelineCfg{
			Primary:          "groq",
			Secondary:        "gemini",
			OCRHint:          "ocrspace",
			DegradeOnFailure: false,
			Preprocess:       true,
			Timeout:          "90s",
		},
		Server: ServerCfg{
			Host:        "0.0.0.0",
			Port:        "8080",
			MaxUploadMB: 10,
			CORSOrigins: []string{"*"},
		},
	}
}

// Validate checks values viper cannot type-check on its own.
func (c *Config) Validate() error {
	for name, r := range c.Recognizers {
		if _, err := parseDuration(r.Timeout); err != nil {
			return fmt.Errorf("recognizers.%s.timeout: %w", name, err)
		}
	}
	for name, o := range c.OCRHints {
		if _, err := parseDuration(o.Timeout); err != nil {
			return fmt.Errorf("ocr_hints.%s.timeout: %w", name, err)
		}
	}
	if _, err := parseDuration(c.Pipeline.Timeout); err != nil {
		return fmt.Errorf("pipeline.timeout: %w", err)
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}
	return nil
}

// PipelineTimeout returns the per-request deadline, zero when unset.
func (c *Config) PipelineTimeout() time.Duration {
	d, _ := parseDuration(c.Pipeline.Timeout)
	return d
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Server.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

// GetRecognizer returns a recognizer config by name.
func (c *Config) GetRecognizer(name string) (RecognizerCfg, bool) {
	cfg, ok := c.Recognizers[name]
	return cfg, ok
}

// EnabledRecognizers returns all enabled recognizers.
func (c *Config) EnabledRecognizers() map[string]RecognizerCfg {
	result := make(map[string]RecognizerCfg)
	for name, cfg := range c.Recognizers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
