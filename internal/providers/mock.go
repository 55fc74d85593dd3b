package providers

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/rxdecode/internal/rx"
)

const (
	MockRecognizerName = "mock"
	MockOCRName        = "mock-ocr"
)

// ErrMockFailure is the transport failure mocks return when ShouldFail is set.
var ErrMockFailure = errors.New("mock transport failure")

// MockRecognizer is a Recognizer for testing.
type MockRecognizer struct {
	// Configurable behavior
	ID         string
	Latency    time.Duration
	ShouldFail bool
	Result     *rx.Prescription
	RPM        int

	// State
	callCount atomic.Int64
	lastImage atomic.Pointer[Image]
}

// NewMockRecognizer creates a mock that returns result.
func NewMockRecognizer(name string, result *rx.Prescription) *MockRecognizer {
	if name == "" {
		name = MockRecognizerName
	}
	return &MockRecognizer{
		ID:     name,
		Result: result,
		RPM:    60,
	}
}

// Name returns the recognizer identifier.
func (m *MockRecognizer) Name() string {
	return m.ID
}

// RequestsPerMinute returns the configured RPM.
func (m *MockRecognizer) RequestsPerMinute() int {
	return m.RPM
}

// Recognize returns a copy of Result after Latency, or a TransportError when
// ShouldFail is set.
func (m *MockRecognizer) Recognize(ctx context.Context, img *Image) (*rx.Prescription, error) {
	m.callCount.Add(1)
	m.lastImage.Store(img)

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, &TransportError{Provider: m.ID, Err: ctx.Err()}
		case <-time.After(m.Latency):
		}
	}

	if m.ShouldFail {
		return nil, &TransportError{Provider: m.ID, Err: ErrMockFailure}
	}
	if m.Result == nil {
		return &rx.Prescription{}, nil
	}

	out := *m.Result
	out.Medicines = append([]rx.Medicine(nil), m.Result.Medicines...)
	return &out, nil
}

// CallCount returns how many times Recognize was called.
func (m *MockRecognizer) CallCount() int64 {
	return m.callCount.Load()
}

// LastImage returns the image passed to the most recent call.
func (m *MockRecognizer) LastImage() *Image {
	return m.lastImage.Load()
}

// MockOCRProvider is an OCRProvider for testing.
type MockOCRProvider struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	Unsuccessful bool
	Text         string
	RPM          int

	// State
	callCount atomic.Int64
}

// NewMockOCRProvider creates a mock that returns text.
func NewMockOCRProvider(text string) *MockOCRProvider {
	return &MockOCRProvider{
		Text: text,
		RPM:  60,
	}
}

// Name returns the provider identifier.
func (m *MockOCRProvider) Name() string {
	return MockOCRName
}

// RequestsPerMinute returns the configured RPM.
func (m *MockOCRProvider) RequestsPerMinute() int {
	return m.RPM
}

// ProcessImage returns Text after Latency.
func (m *MockOCRProvider) ProcessImage(ctx context.Context, image []byte) (*OCRResult, error) {
	start := time.Now()
	m.callCount.Add(1)

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, &TransportError{Provider: MockOCRName, Err: ctx.Err()}
		case <-time.After(m.Latency):
		}
	}

	if m.ShouldFail {
		return nil, &TransportError{Provider: MockOCRName, Err: ErrMockFailure}
	}
	if m.Unsuccessful {
		return &OCRResult{ErrorMessage: "mock OCR could not read image", ExecutionTime: time.Since(start)}, nil
	}

	return &OCRResult{
		Success:       true,
		Text:          m.Text,
		Metadata:      map[string]any{"request_id": uuid.NewString(), "bytes": len(image)},
		ExecutionTime: time.Since(start),
	}, nil
}

// CallCount returns how many times ProcessImage was called.
func (m *MockOCRProvider) CallCount() int64 {
	return m.callCount.Load()
}

// Verify interfaces
var (
	_ Recognizer  = (*MockRecognizer)(nil)
	_ OCRProvider = (*MockOCRProvider)(nil)
)
