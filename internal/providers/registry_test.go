package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get recognizer", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockRecognizer("primary", nil)

		r.RegisterRecognizer("primary", mock)

		rec, err := r.GetRecognizer("primary")
		if err != nil {
			t.Fatalf("GetRecognizer() error = %v", err)
		}
		if rec != mock {
			t.Error("got different recognizer than registered")
		}
		if !r.HasRecognizers() {
			t.Error("HasRecognizers() = false after register")
		}
	})

	t.Run("get nonexistent", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetRecognizer("nope"); err == nil {
			t.Error("expected error for nonexistent recognizer")
		}
		if _, err := r.GetOCR("nope"); err == nil {
			t.Error("expected error for nonexistent OCR provider")
		}
		if r.HasRecognizers() {
			t.Error("HasRecognizers() = true on empty registry")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterRecognizer("gemini", NewMockRecognizer("gemini", nil))
		r.RegisterRecognizer("groq", NewMockRecognizer("groq", nil))
		r.RegisterOCR("ocrspace", NewMockOCRProvider(""))

		got := r.ListRecognizers()
		if len(got) != 2 || got[0] != "gemini" || got[1] != "groq" {
			t.Errorf("ListRecognizers() = %v", got)
		}
		if ocr := r.ListOCR(); len(ocr) != 1 {
			t.Errorf("ListOCR() = %v", ocr)
		}
	})

	t.Run("hint provider resolved at call time", func(t *testing.T) {
		r := NewRegistry()
		img := &Image{Data: []byte("x")}

		if got := r.hint(context.Background(), img); got != "" {
			t.Errorf("hint with no provider = %q", got)
		}

		r.RegisterOCR("ocr", NewMockOCRProvider(" Augmentin 1g "))
		r.SetHintProvider("ocr")
		if got := r.hint(context.Background(), img); got != "Augmentin 1g" {
			t.Errorf("hint = %q", got)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterRecognizer("mock", NewMockRecognizer("mock", nil))
			}()
			go func() {
				defer wg.Done()
				r.GetRecognizer("mock")
				r.ListRecognizers()
			}()
		}
		wg.Wait()
	})
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		Recognizers: map[string]RecognizerConfig{
			"groq":     {Type: TypeOpenAICompatible, APIKey: "g", Enabled: true},
			"gemini":   {Type: TypeGemini, APIKey: "k", Enabled: true},
			"disabled": {Type: TypeGemini, APIKey: "k", Enabled: false},
			"nokey":    {Type: TypeGemini, Enabled: true},
			"ocr-only": {Type: TypeOCR, Source: "ocrspace", Enabled: true},
			"unknown":  {Type: "carrier-pigeon", APIKey: "k", Enabled: true},
		},
		OCR: map[string]OCRConfig{
			"ocrspace": {Type: TypeOCRSpace, APIKey: "o", Enabled: true},
		},
		HintProvider: "ocrspace",
	}

	r := NewRegistryFromConfig(cfg, Prompts{Vision: staticPrompt("p"), Gemini: staticPrompt("g")}, nil)

	got := r.ListRecognizers()
	want := []string{"gemini", "groq", "ocr-only"}
	if len(got) != len(want) {
		t.Fatalf("ListRecognizers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListRecognizers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if rec, _ := r.GetRecognizer("groq"); rec.Name() != "groq" {
		t.Errorf("groq recognizer Name() = %q", rec.Name())
	}
	if rec, _ := r.GetRecognizer("ocr-only"); rec.Name() != OCRSpaceName {
		t.Errorf("ocr-only recognizer Name() = %q", rec.Name())
	}
	if r.HintProvider() == nil {
		t.Error("expected hint provider to be registered")
	}
}

func TestRegistryReload(t *testing.T) {
	base := RegistryConfig{
		Recognizers: map[string]RecognizerConfig{
			"groq":   {Type: TypeOpenAICompatible, APIKey: "g", Enabled: true},
			"gemini": {Type: TypeGemini, APIKey: "k", Enabled: true},
		},
	}
	r := NewRegistryFromConfig(base, Prompts{}, nil)

	groqBefore, _ := r.GetRecognizer("groq")
	geminiBefore, _ := r.GetRecognizer("gemini")

	t.Run("unchanged config keeps instances", func(t *testing.T) {
		r.Reload(base)
		groqAfter, _ := r.GetRecognizer("groq")
		if groqAfter != groqBefore {
			t.Error("unchanged recognizer was rebuilt")
		}
	})

	t.Run("changed key rebuilds", func(t *testing.T) {
		changed := RegistryConfig{Recognizers: map[string]RecognizerConfig{
			"groq":   base.Recognizers["groq"],
			"gemini": {Type: TypeGemini, APIKey: "rotated", Enabled: true},
		}}
		r.Reload(changed)

		geminiAfter, err := r.GetRecognizer("gemini")
		if err != nil {
			t.Fatalf("GetRecognizer() error = %v", err)
		}
		if geminiAfter == geminiBefore {
			t.Error("changed recognizer was not rebuilt")
		}
	})

	t.Run("removed and disabled are unregistered", func(t *testing.T) {
		r.Reload(RegistryConfig{Recognizers: map[string]RecognizerConfig{
			"gemini": {Type: TypeGemini, APIKey: "rotated", Enabled: false},
		}})
		if r.HasRecognizers() {
			t.Errorf("expected empty registry, got %v", r.ListRecognizers())
		}
	})

	t.Run("OCR recognizer dropped with its source", func(t *testing.T) {
		withOCR := RegistryConfig{
			Recognizers: map[string]RecognizerConfig{"ocr-only": {Type: TypeOCR, Source: "mistral", Enabled: true}},
			OCR:         map[string]OCRConfig{"mistral": {Type: TypeMistralOCR, APIKey: "m", Enabled: true}},
		}
		r.Reload(withOCR)
		if _, err := r.GetRecognizer("ocr-only"); err != nil {
			t.Fatalf("GetRecognizer() error = %v", err)
		}

		withOCR.OCR = nil
		r.Reload(withOCR)
		if _, err := r.GetRecognizer("ocr-only"); err == nil {
			t.Error("OCR recognizer should be removed when its source is gone")
		}
	})
}

func TestRegistry_OCRHintOnlyForVisionRecognizer(t *testing.T) {
	var geminiPrompt string
	geminiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		geminiPrompt = req.Contents[0].Parts[0].Text
		io.WriteString(w, geminiTextResponse(`{"medicines":[{"drug":"Panadol","confidence":90}]}`))
	}))
	defer geminiServer.Close()

	var groqPrompt string
	groqServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		groqPrompt = body.Messages[0].Content[0].Text
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatCompletion(`{"medicines":[{"drug":"Panadol","confidence":90}]}`))
	}))
	defer groqServer.Close()

	r := NewRegistryFromConfig(RegistryConfig{
		Recognizers: map[string]RecognizerConfig{
			"groq":   {Type: TypeOpenAICompatible, APIKey: "g", BaseURL: groqServer.URL, Enabled: true},
			"gemini": {Type: TypeGemini, APIKey: "k", BaseURL: geminiServer.URL, Enabled: true},
		},
	}, Prompts{Vision: staticPrompt("vision"), Gemini: staticPrompt("gemini")}, nil)

	ocr := NewMockOCRProvider("Panadl 500mg")
	r.RegisterOCR("ocrspace", ocr)
	r.SetHintProvider("ocrspace")

	img := &Image{Data: []byte("jpeg"), OCR: []byte("bw")}
	gemini, err := r.GetRecognizer("gemini")
	if err != nil {
		t.Fatalf("GetRecognizer(gemini) error = %v", err)
	}
	if _, err := gemini.Recognize(context.Background(), img); err != nil {
		t.Fatalf("gemini Recognize() error = %v", err)
	}
	if n := ocr.CallCount(); n != 0 {
		t.Errorf("OCR calls after gemini Recognize = %d, want 0", n)
	}
	if geminiPrompt != "gemini" {
		t.Errorf("gemini prompt = %q, want the hint-free gemini prompt", geminiPrompt)
	}

	groq, err := r.GetRecognizer("groq")
	if err != nil {
		t.Fatalf("GetRecognizer(groq) error = %v", err)
	}
	if _, err := groq.Recognize(context.Background(), img); err != nil {
		t.Fatalf("groq Recognize() error = %v", err)
	}
	if n := ocr.CallCount(); n != 1 {
		t.Errorf("OCR calls after groq Recognize = %d, want 1", n)
	}
	if !strings.HasPrefix(groqPrompt, "vision") || !strings.Contains(groqPrompt, "HINT: Panadl 500mg") {
		t.Errorf("groq prompt = %q, want vision prompt with hint", groqPrompt)
	}
}

func TestTestConfig_ToRegistryConfig(t *testing.T) {
	cfg := TestConfig{GroqAPIKey: "g", OCRSpaceAPIKey: "o"}
	rc := cfg.ToRegistryConfig()

	if _, ok := rc.Recognizers[GroqName]; !ok {
		t.Error("expected groq recognizer")
	}
	if _, ok := rc.Recognizers[GeminiName]; ok {
		t.Error("gemini should be absent without a key")
	}
	if rc.HintProvider != OCRSpaceName {
		t.Errorf("HintProvider = %q", rc.HintProvider)
	}
}
