package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMistralOCRClient_ProcessImage(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if req.Document.Type != "image_url" || !strings.HasPrefix(req.Document.ImageURL, "data:") {
				t.Errorf("unexpected document: %+v", req.Document)
			}

			resp := mistralOCRResponse{
				Model: "mistral-ocr-latest",
				Pages: []mistralOCRPage{{
					Index:      0,
					Markdown:   "Augmentin 1g 1x2\nPanadol 500mg",
					Dimensions: mistralPageDimensions{Width: 1200, Height: 1600, DPI: 200},
				}},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.ProcessImage(context.Background(), []byte("fake image data"))
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Text != "Augmentin 1g 1x2\nPanadol 500mg" {
			t.Errorf("unexpected text: %q", result.Text)
		}
		if result.Metadata["model_used"] != "mistral-ocr-latest" {
			t.Errorf("model_used = %v", result.Metadata["model_used"])
		}
		if result.Metadata["width"] != 1200 {
			t.Errorf("width = %v", result.Metadata["width"])
		}
	})

	t.Run("empty pages response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(mistralOCRResponse{Model: "mistral-ocr-latest"})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.ProcessImage(context.Background(), []byte("fake"))
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if result.Success {
			t.Error("expected Success = false")
		}
		if result.ErrorMessage == "" {
			t.Error("expected error message")
		}
	})

	t.Run("API error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"message": "Invalid image format",
					"type":    "invalid_request_error",
				},
			})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.ProcessImage(context.Background(), []byte("fake"))
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if statusErr.Message != "Invalid image format" {
			t.Errorf("Message = %q", statusErr.Message)
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.ProcessImage(ctx, []byte("fake"))
		if !IsTransport(err) {
			t.Errorf("expected transport error from cancelled context, got %v", err)
		}
	})

	t.Run("hint from provider", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 1,
		})

		if got := Hint(context.Background(), client, &Image{Data: []byte("x")}, nil); got != "" {
			t.Errorf("Hint() = %q, want empty on failure", got)
		}
	})
}

// TestMistralOCRIntegration runs real OCR against the Mistral API.
// Requires MISTRAL_API_KEY and testdata/prescription.jpg.
func TestMistralOCRIntegration(t *testing.T) {
	cfg := LoadTestConfig()
	if !cfg.HasMistral() {
		t.Skip("MISTRAL_API_KEY not set - skipping integration test")
	}

	imageData, err := os.ReadFile("testdata/prescription.jpg")
	if err != nil {
		t.Skipf("test image not found: %v", err)
	}

	client := NewMistralOCRClient(MistralOCRConfig{APIKey: cfg.MistralAPIKey})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := client.ProcessImage(ctx, imageData)
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if !result.Success {
		t.Errorf("OCR failed: %s", result.ErrorMessage)
	}
	t.Logf("Extracted %d characters in %v", len(result.Text), result.ExecutionTime)
}
