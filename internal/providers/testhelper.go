package providers

import (
	"os"
)

// TestConfig holds provider API keys loaded from environment variables.
// Live-provider tests skip themselves when the key they need is absent.
type TestConfig struct {
	GroqAPIKey     string
	GeminiAPIKey   string
	OCRSpaceAPIKey string
	MistralAPIKey  string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		OCRSpaceAPIKey: os.Getenv("OCRSPACE_API_KEY"),
		MistralAPIKey:  os.Getenv("MISTRAL_API_KEY"),
	}
}

// HasGroq returns true if a Groq API key is configured.
func (c TestConfig) HasGroq() bool {
	return c.GroqAPIKey != ""
}

// HasGemini returns true if a Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasOCRSpace returns true if an OCR.space API key is configured.
func (c TestConfig) HasOCRSpace() bool {
	return c.OCRSpaceAPIKey != ""
}

// HasMistral returns true if a Mistral API key is configured.
func (c TestConfig) HasMistral() bool {
	return c.MistralAPIKey != ""
}

// ToRegistryConfig converts test config to a RegistryConfig.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		Recognizers: make(map[string]RecognizerConfig),
		OCR:         make(map[string]OCRConfig),
	}

	if c.HasGroq() {
		cfg.Recognizers[GroqName] = RecognizerConfig{
			Type:      TypeOpenAICompatible,
			APIKey:    c.GroqAPIKey,
			RateLimit: 30,
			Enabled:   true,
		}
	}
	if c.HasGemini() {
		cfg.Recognizers[GeminiName] = RecognizerConfig{
			Type:      TypeGemini,
			APIKey:    c.GeminiAPIKey,
			RateLimit: 15,
			Enabled:   true,
		}
	}
	if c.HasOCRSpace() {
		cfg.OCR[OCRSpaceName] = OCRConfig{
			Type:      TypeOCRSpace,
			APIKey:    c.OCRSpaceAPIKey,
			RateLimit: 60,
			Enabled:   true,
		}
		cfg.HintProvider = OCRSpaceName
	}
	if c.HasMistral() {
		cfg.OCR["mistral"] = OCRConfig{
			Type:      TypeMistralOCR,
			APIKey:    c.MistralAPIKey,
			RateLimit: 360,
			Enabled:   true,
		}
	}

	return cfg
}
