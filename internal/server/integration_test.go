package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/rxdecode/internal/config"
	"github.com/jackzampolin/rxdecode/internal/ensemble"
	"github.com/jackzampolin/rxdecode/internal/providers"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/server/endpoints"
	"github.com/jackzampolin/rxdecode/internal/testutil"
	"github.com/jackzampolin/rxdecode/internal/vocab"
)

func postUpload(t *testing.T, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/prescription/upload", contentType, body)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return resp
}

func newHTTPTestServer(t *testing.T, srv *Server) string {
	t.Helper()
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return hs.URL
}

func TestUpload_Decode(t *testing.T) {
	ts := newTestServer(t,
		&rx.Prescription{
			DoctorName: "Dr. Rahman",
			Specialist: "Pediatrics",
			Medicines: []rx.Medicine{
				{Drug: "Augmentn", Dose: "1g", Freq: "1x2", Confidence: 92},
				{Drug: "Zyrtec", Dose: "10mg", Freq: "1x1", Confidence: 40},
			},
		},
		&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 99}}},
	)

	body, contentType := testutil.Multipart(t, "file", "scan.png", testutil.PNG(t))
	resp := postUpload(t, ts.http.URL, body, contentType)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got endpoints.UploadResponse
	decodeJSON(t, resp, &got)

	if got.Message != endpoints.UploadSuccessMessage {
		t.Errorf("Message = %q, want %q", got.Message, endpoints.UploadSuccessMessage)
	}
	if got.Data == nil || len(got.Data.Medicines) != 2 {
		t.Fatalf("Data = %+v, want two medicines", got.Data)
	}
	if got.Data.DoctorName != "Dr. Rahman" {
		t.Errorf("DoctorName = %q, want %q", got.Data.DoctorName, "Dr. Rahman")
	}

	first := got.Data.Medicines[0]
	if first.Drug != "Augmentin" {
		t.Errorf("first drug = %q, want %q", first.Drug, "Augmentin")
	}
	if first.Notes != ensemble.CorrectedNote("Augmentn") {
		t.Errorf("first notes = %q", first.Notes)
	}
	if first.RequiresManualReview {
		t.Error("corrected medicine flagged for review")
	}

	second := got.Data.Medicines[1]
	if !second.RequiresManualReview {
		t.Error("low confidence medicine not flagged")
	}
	if !strings.HasSuffix(second.Notes, ensemble.LowConfidenceNote) {
		t.Errorf("second notes = %q", second.Notes)
	}

	if ts.primary.CallCount() != 1 || ts.secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", ts.primary.CallCount(), ts.secondary.CallCount())
	}

	metricsResp, err := http.Get(ts.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	defer metricsResp.Body.Close()
	scrape, _ := io.ReadAll(metricsResp.Body)
	for _, want := range []string{
		`rxdecode_pipeline_runs_total{outcome="success"} 1`,
		`rxdecode_candidate_selected_total{candidate="primary",rule="high_confidence"} 1`,
	} {
		if !strings.Contains(string(scrape), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestUpload_Errors(t *testing.T) {
	ts := newTestServer(t, &rx.Prescription{}, &rx.Prescription{})

	t.Run("missing file", func(t *testing.T) {
		body, contentType := testutil.Multipart(t, "", "", nil)
		resp := postUpload(t, ts.http.URL, body, contentType)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		var e endpoints.ErrorResponse
		decodeJSON(t, resp, &e)
		if e.Error != "No file uploaded." {
			t.Errorf("error = %q", e.Error)
		}
	})

	t.Run("wrong field name", func(t *testing.T) {
		body, contentType := testutil.Multipart(t, "image", "scan.png", testutil.PNG(t))
		resp := postUpload(t, ts.http.URL, body, contentType)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		body, contentType := testutil.Multipart(t, "file", "notes.txt", []byte("this is not an image"))
		resp := postUpload(t, ts.http.URL, body, contentType)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		var e endpoints.ErrorResponse
		decodeJSON(t, resp, &e)
		if e.Error != "Unsupported image" {
			t.Errorf("error = %q", e.Error)
		}
		if ts.primary.CallCount() != 0 {
			t.Error("recognizer called for unsupported upload")
		}
	})

	t.Run("recognizer failure", func(t *testing.T) {
		ts.primary.ShouldFail = true
		defer func() { ts.primary.ShouldFail = false }()

		body, contentType := testutil.Multipart(t, "file", "scan.png", testutil.PNG(t))
		resp := postUpload(t, ts.http.URL, body, contentType)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
		}
		var e endpoints.ErrorResponse
		decodeJSON(t, resp, &e)
		if e.Error != "Processing Error" {
			t.Errorf("error = %q", e.Error)
		}
		if !strings.Contains(e.Details, providers.ErrMockFailure.Error()) {
			t.Errorf("details = %q", e.Details)
		}
	})
}

func TestUpload_TooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  max_upload_mb: 1\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cm, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	registry := providers.NewRegistry()
	registry.RegisterRecognizer("groq", providers.NewMockRecognizer("groq", nil))
	registry.RegisterRecognizer("gemini", providers.NewMockRecognizer("gemini", nil))

	srv, err := New(Config{
		ConfigManager: cm,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:      registry,
		Vocabulary:    vocab.Empty(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	hs := newHTTPTestServer(t, srv)

	big := bytes.Repeat([]byte{0xff}, 2<<20)
	body, contentType := testutil.Multipart(t, "file", "big.png", big)
	resp := postUpload(t, hs, body, contentType)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
	}
	resp.Body.Close()
}

func TestParseText(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	text := "Panadoll 500mg 1x3\nSergel 40mg daily\nxy\n"
	resp, err := http.Post(ts.http.URL+"/api/text/parse", "text/plain", strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got endpoints.ParseTextResponse
	decodeJSON(t, resp, &got)
	if len(got.Medicines) != 2 {
		t.Fatalf("medicines = %d, want 2", len(got.Medicines))
	}

	corrected := got.Medicines[0]
	if corrected.Drug != "Panadol" || corrected.RequiresManualReview {
		t.Errorf("first = %+v, want corrected Panadol without review", corrected)
	}
	exact := got.Medicines[1]
	if exact.Drug != "Sergel" || !exact.RequiresManualReview {
		t.Errorf("second = %+v, want Sergel flagged for review", exact)
	}
}

func TestParseText_Empty(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Post(ts.http.URL+"/api/text/parse", "text/plain", strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(raw)) != `{"medicines":[]}` {
		t.Errorf("body = %s, want empty medicines array", raw)
	}
}

func TestVocabularyEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.http.URL + "/api/vocabulary/correct?name=Augmentn")
	if err != nil {
		t.Fatalf("correct failed: %v", err)
	}
	var correct endpoints.CorrectResponse
	decodeJSON(t, resp, &correct)
	if correct.Corrected != "Augmentin" || !correct.Changed {
		t.Errorf("correct = %+v, want Augmentin changed", correct)
	}

	resp, err = http.Get(ts.http.URL + "/api/vocabulary/correct")
	if err != nil {
		t.Fatalf("correct failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, err = http.Get(ts.http.URL + "/api/vocabulary")
	if err != nil {
		t.Fatalf("vocabulary failed: %v", err)
	}
	var list endpoints.VocabularyResponse
	decodeJSON(t, resp, &list)
	if list.Count != 3 || list.Names[0] != "Augmentin" {
		t.Errorf("vocabulary = %+v", list)
	}
}

func TestPromptEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.http.URL + "/api/prompts")
	if err != nil {
		t.Fatalf("prompts failed: %v", err)
	}
	var list endpoints.PromptsListResponse
	decodeJSON(t, resp, &list)
	if len(list.Prompts) == 0 {
		t.Fatal("no prompts registered")
	}

	resp, err = http.Get(ts.http.URL + "/api/prompts/recognizers.vision")
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var prompt endpoints.PromptResponse
	decodeJSON(t, resp, &prompt)
	if prompt.IsOverride || prompt.Text == "" {
		t.Errorf("prompt = %+v, want embedded text", prompt)
	}

	resp, err = http.Get(ts.http.URL + "/api/prompts/missing.key")
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing prompt status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
