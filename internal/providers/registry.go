package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Recognizer types accepted in configuration.
const (
	TypeOpenAICompatible = "openai-compatible"
	TypeGemini           = "gemini"
	TypeOCR              = "ocr"
)

// OCR provider types accepted in configuration.
const (
	TypeOCRSpace   = "ocrspace"
	TypeMistralOCR = "mistral-ocr"
)

// Registry holds recognizers and OCR providers built from configuration.
// It supports hot-reload and provides thread-safe access.
type Registry struct {
	mu sync.RWMutex

	recognizers map[string]Recognizer
	ocr         map[string]OCRProvider

	recognizerCfgs map[string]RecognizerConfig
	ocrCfgs        map[string]OCRConfig
	hintProvider   string

	prompts Prompts
	logger  *slog.Logger
}

// Prompts holds the prompt each recognizer kind renders.
type Prompts struct {
	// Vision is rendered by openai-compatible recognizers with the OCR hint.
	Vision PromptBuilder
	// Gemini is rendered without a hint.
	Gemini PromptBuilder
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		recognizers:    make(map[string]Recognizer),
		ocr:            make(map[string]OCRProvider),
		recognizerCfgs: make(map[string]RecognizerConfig),
		ocrCfgs:        make(map[string]OCRConfig),
		logger:         slog.Default(),
	}
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Recognizers map[string]RecognizerConfig
	OCR         map[string]OCRConfig

	// HintProvider names the OCR provider whose text is passed to openai-compatible
	// recognizers as a hint. Gemini never receives it. Empty disables hints.
	HintProvider string
}

// RecognizerConfig matches config.RecognizerCfg with a resolved API key.
type RecognizerConfig struct {
	Type      string // openai-compatible, gemini, ocr
	Model     string
	BaseURL   string
	APIKey    string
	RateLimit int // Requests per minute
	Timeout   time.Duration
	Source    string // OCR provider name, for type ocr
	Enabled   bool
}

// OCRConfig matches config.OCRHintCfg with a resolved API key.
type OCRConfig struct {
	Type      string // ocrspace, mistral-ocr
	Model     string
	BaseURL   string
	APIKey    string
	RateLimit int
	Timeout   time.Duration
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys are registered.
func NewRegistryFromConfig(cfg RegistryConfig, prompts Prompts, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.prompts = prompts
	if logger != nil {
		r.logger = logger
	}
	r.Reload(cfg)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetPrompts sets the prompts used by recognizers built afterwards and by
// existing ones on their next call.
func (r *Registry) SetPrompts(prompts Prompts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = prompts
}

// RegisterRecognizer registers a recognizer by name.
func (r *Registry) RegisterRecognizer(name string, rec Recognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[name] = rec
	delete(r.recognizerCfgs, name)
	r.logger.Info("registered recognizer", "name", name)
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr[name] = provider
	delete(r.ocrCfgs, name)
	r.logger.Info("registered OCR provider", "name", name)
}

// SetHintProvider selects the OCR provider used for hints.
func (r *Registry) SetHintProvider(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hintProvider = name
}

// GetRecognizer returns a recognizer by name.
func (r *Registry) GetRecognizer(name string) (Recognizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recognizers[name]
	if !ok {
		return nil, fmt.Errorf("recognizer not found: %s", name)
	}
	return rec, nil
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ocr[name]
	if !ok {
		return nil, fmt.Errorf("OCR provider not found: %s", name)
	}
	return provider, nil
}

// HintProvider returns the configured hint provider, or nil when none is
// configured or registered.
func (r *Registry) HintProvider() OCRProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.hintProvider == "" {
		return nil
	}
	return r.ocr[r.hintProvider]
}

// ListRecognizers returns registered recognizer names, sorted.
func (r *Registry) ListRecognizers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.recognizers)
}

// ListOCR returns registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.ocr)
}

// HasRecognizers reports whether any recognizer is registered.
func (r *Registry) HasRecognizers() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recognizers) > 0
}

// Reload updates the registry from new configuration. Providers no longer
// configured are removed; providers whose settings changed are rebuilt.
// OCR-backed recognizers are always rebuilt so they pick up new OCR clients.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hintProvider = cfg.HintProvider

	for name, provCfg := range cfg.OCR {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		prev, hasExisting := r.ocrCfgs[name]
		if hasExisting && prev == provCfg {
			continue
		}
		provider := r.createOCRProvider(provCfg)
		if provider == nil {
			r.logger.Warn("unknown OCR provider type", "name", name, "type", provCfg.Type)
			continue
		}
		r.ocr[name] = provider
		r.ocrCfgs[name] = provCfg
		r.logRegistered("OCR provider", name, provCfg.Type, hasExisting)
	}
	for name := range r.ocrCfgs {
		if c, ok := cfg.OCR[name]; !ok || !c.Enabled || c.APIKey == "" {
			delete(r.ocr, name)
			delete(r.ocrCfgs, name)
			r.logger.Info("unregistered OCR provider", "name", name)
		}
	}

	for name, recCfg := range cfg.Recognizers {
		if !recCfg.Enabled || (recCfg.Type != TypeOCR && recCfg.APIKey == "") {
			continue
		}
		prev, hasExisting := r.recognizerCfgs[name]
		if hasExisting && prev == recCfg && recCfg.Type != TypeOCR {
			continue
		}
		rec := r.createRecognizer(name, recCfg)
		if rec == nil {
			r.logger.Warn("could not build recognizer", "name", name, "type", recCfg.Type)
			if hasExisting {
				delete(r.recognizers, name)
				delete(r.recognizerCfgs, name)
			}
			continue
		}
		r.recognizers[name] = rec
		r.recognizerCfgs[name] = recCfg
		r.logRegistered("recognizer", name, recCfg.Type, hasExisting)
	}
	for name := range r.recognizerCfgs {
		c, ok := cfg.Recognizers[name]
		if !ok || !c.Enabled || (c.Type != TypeOCR && c.APIKey == "") {
			delete(r.recognizers, name)
			delete(r.recognizerCfgs, name)
			r.logger.Info("unregistered recognizer", "name", name)
		}
	}
}

func (r *Registry) logRegistered(kind, name, typ string, updated bool) {
	if updated {
		r.logger.Info("updated "+kind, "name", name, "type", typ)
		return
	}
	r.logger.Info("registered "+kind, "name", name, "type", typ)
}

// createRecognizer must be called with the write lock held.
func (r *Registry) createRecognizer(name string, cfg RecognizerConfig) Recognizer {
	switch cfg.Type {
	case TypeOpenAICompatible:
		return NewOpenAIVisionRecognizer(OpenAIVisionConfig{
			Name:      name,
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Prompt:    registryPrompt{r: r},
			Hint:      r.hint,
			Logger:    r.logger,
		})
	case TypeGemini:
		return NewGeminiRecognizer(GeminiConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Prompt:    registryPrompt{r: r, gemini: true},
			Logger:    r.logger,
		})
	case TypeOCR:
		provider, ok := r.ocr[cfg.Source]
		if !ok {
			return nil
		}
		return NewOCRRecognizer(provider, nil, r.logger)
	default:
		return nil
	}
}

// createOCRProvider must be called with the write lock held.
func (r *Registry) createOCRProvider(cfg OCRConfig) OCRProvider {
	switch cfg.Type {
	case TypeOCRSpace:
		return NewOCRSpaceClient(OCRSpaceConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Logger:    r.logger,
		})
	case TypeMistralOCR:
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Logger:    r.logger,
		})
	default:
		return nil
	}
}

// hint resolves the hint provider at call time so reloads take effect.
func (r *Registry) hint(ctx context.Context, img *Image) string {
	r.mu.RLock()
	logger := r.logger
	r.mu.RUnlock()
	return Hint(ctx, r.HintProvider(), img, logger)
}

// registryPrompt resolves the registry's prompt builder at call time.
type registryPrompt struct {
	r      *Registry
	gemini bool
}

func (p registryPrompt) Build(ocrHint string) string {
	p.r.mu.RLock()
	prompt := p.r.prompts.Vision
	if p.gemini {
		prompt = p.r.prompts.Gemini
	}
	p.r.mu.RUnlock()
	if prompt == nil {
		return ""
	}
	return prompt.Build(ocrHint)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
