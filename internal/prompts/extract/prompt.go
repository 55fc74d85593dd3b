// Package extract holds the prompts that ask a model to turn a prescription
// image into the prescription JSON shape.
package extract

import (
	_ "embed"
	"log/slog"
	"strings"

	"github.com/jackzampolin/rxdecode/internal/prompts"
)

var (
	//go:embed vision.tmpl
	visionPrompt string

	//go:embed gemini.tmpl
	geminiPrompt string
)

// Resolver keys.
const (
	// VisionPromptKey is rendered for openai-compatible recognizers and
	// carries the OCR hint.
	VisionPromptKey = "recognizers.vision"
	// GeminiPromptKey is rendered for Gemini; it has no hint section.
	GeminiPromptKey = "recognizers.gemini"
)

// DrugGroup is one category of the knowledge base listed in the prompt.
type DrugGroup struct {
	Category string
	Names    []string
}

// List returns the names joined for display.
func (g DrugGroup) List() string {
	return strings.Join(g.Names, ", ")
}

// DefaultKnowledgeBase lists commonly prescribed brands the models are primed with.
var DefaultKnowledgeBase = []DrugGroup{
	{Category: "Antibiotics", Names: []string{
		"Augmentin", "Hibiotic", "Curam", "Megamox", "Flumox", "Klacid",
		"Zithromax", "Ciprofar", "Tavanic", "Dalacin", "Flagyl", "Amikin",
	}},
	{Category: "Pain/NSAIDs", Names: []string{
		"Panadol", "Abimol", "Cetal", "Cataflam", "Voltaren", "Brufen",
		"Ketolgin", "Oflam", "Dimra", "Myolgin",
	}},
	{Category: "GI/Stomach", Names: []string{
		"Antinal", "Streptoquin", "Visceralgine", "Spasmo-Digestin", "Gast-Reg",
		"Nexium", "Controloc", "Downoprazol", "Gaviscon", "Maalox",
	}},
}

// GeminiKnowledgeBase is the shorter list the Gemini prompt is primed with.
var GeminiKnowledgeBase = []DrugGroup{
	{Category: "Antibiotics", Names: []string{
		"Augmentin", "Hibiotic", "Curam", "Megamox", "Flumox", "Klacid", "Zithromax", "Ciprofar",
	}},
	{Category: "Pain/NSAIDs", Names: []string{
		"Panadol", "Abimol", "Cetal", "Cataflam", "Voltaren", "Brufen", "Ketolgin",
	}},
	{Category: "GI/Stomach", Names: []string{
		"Antinal", "Streptoquin", "Visceralgine", "Nexium", "Controloc", "Downoprazol",
	}},
}

// Data is the template input of the extraction prompts.
type Data struct {
	OCRHint       string
	KnowledgeBase []DrugGroup
}

// RegisterPrompts registers the extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         VisionPromptKey,
		Text:        visionPrompt,
		Description: "Vision prompt: decode a handwritten prescription image into prescription JSON, using the OCR hint",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         GeminiPromptKey,
		Text:        geminiPrompt,
		Description: "Gemini prompt: decode a handwritten prescription image into prescription JSON from the image alone",
	})
}

// Builder renders one extraction prompt for one request.
type Builder struct {
	key       string
	embedded  string
	resolver  *prompts.Resolver
	knowledge []DrugGroup
	logger    *slog.Logger
}

// NewBuilder returns a builder for the vision prompt. A nil resolver renders
// the embedded default; a nil knowledge base uses DefaultKnowledgeBase.
func NewBuilder(resolver *prompts.Resolver, knowledge []DrugGroup, logger *slog.Logger) *Builder {
	if knowledge == nil {
		knowledge = DefaultKnowledgeBase
	}
	return newBuilder(VisionPromptKey, visionPrompt, resolver, knowledge, logger)
}

// NewGeminiBuilder returns a builder for the Gemini prompt. A nil knowledge
// base uses GeminiKnowledgeBase.
func NewGeminiBuilder(resolver *prompts.Resolver, knowledge []DrugGroup, logger *slog.Logger) *Builder {
	if knowledge == nil {
		knowledge = GeminiKnowledgeBase
	}
	return newBuilder(GeminiPromptKey, geminiPrompt, resolver, knowledge, logger)
}

func newBuilder(key, embedded string, resolver *prompts.Resolver, knowledge []DrugGroup, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{key: key, embedded: embedded, resolver: resolver, knowledge: knowledge, logger: logger}
}

// Build renders the prompt with the given OCR hint (may be empty).
// A broken override falls back to the embedded template.
func (b *Builder) Build(ocrHint string) string {
	data := Data{
		OCRHint:       strings.TrimSpace(ocrHint),
		KnowledgeBase: b.knowledge,
	}

	text := b.embedded
	if b.resolver != nil {
		if p, err := b.resolver.Resolve(b.key); err == nil {
			text = p.Text
		}
	}

	out, err := prompts.Render(b.key, text, data)
	if err != nil && text != b.embedded {
		b.logger.Warn("prompt override failed to render, using default", "key", b.key, "error", err)
		out, err = prompts.Render(b.key, b.embedded, data)
	}
	if err != nil {
		return b.embedded
	}
	return out
}
