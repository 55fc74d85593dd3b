package ensemble

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/rxdecode/internal/imageprep"
	"github.com/jackzampolin/rxdecode/internal/metrics"
	"github.com/jackzampolin/rxdecode/internal/providers"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/vocab"
)

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 24, 24))
	for i := 0; i < 24; i++ {
		img.SetGray(i, i, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type pipelineFixture struct {
	primary   *providers.MockRecognizer
	secondary *providers.MockRecognizer
	registry  *providers.Registry
	recorder  *metrics.Recorder
}

func newFixture(primary, secondary *rx.Prescription) *pipelineFixture {
	f := &pipelineFixture{
		primary:   providers.NewMockRecognizer("groq", primary),
		secondary: providers.NewMockRecognizer("gemini", secondary),
		registry:  providers.NewRegistry(),
		recorder:  metrics.NewRecorder(),
	}
	f.registry.RegisterRecognizer("groq", f.primary)
	f.registry.RegisterRecognizer("gemini", f.secondary)
	return f
}

func (f *pipelineFixture) pipeline(cfg Config) *Pipeline {
	if cfg.Primary == "" {
		cfg.Primary = "groq"
	}
	if cfg.Secondary == "" {
		cfg.Secondary = "gemini"
	}
	corrector := vocab.NewCorrector(vocab.New([]string{"Augmentin", "Sergel"}), nil)
	return NewPipeline(cfg, f.registry, corrector, f.recorder, nil)
}

func (f *pipelineFixture) scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.recorder.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPipeline_ConfidentPrimaryWins(t *testing.T) {
	f := newFixture(
		&rx.Prescription{DoctorName: "Dr. Rahman", Medicines: []rx.Medicine{{Drug: "Augmentn", Confidence: 92}}},
		&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 99}}},
	)
	p := f.pipeline(Config{Preprocess: true})

	got, err := p.Run(context.Background(), testImage(t))
	require.NoError(t, err)

	assert.Equal(t, "Dr. Rahman", got.DoctorName)
	require.Len(t, got.Medicines, 1)
	assert.Equal(t, "Augmentin", got.Medicines[0].Drug)
	assert.Equal(t, 100, got.Medicines[0].Confidence)
	assert.Contains(t, got.Medicines[0].Notes, "[Auto-Corrected from 'Augmentn']")

	assert.EqualValues(t, 1, f.primary.CallCount())
	assert.EqualValues(t, 1, f.secondary.CallCount())

	img := f.primary.LastImage()
	require.NotNil(t, img)
	assert.Equal(t, "image/jpeg", img.ContentType())
	assert.NotEmpty(t, img.OCR, "preprocessing builds the OCR variant")

	body := f.scrape(t)
	assert.Contains(t, body, `rxdecode_pipeline_runs_total{outcome="success"} 1`)
	assert.Contains(t, body, `rxdecode_candidate_selected_total{candidate="primary",rule="high_confidence"} 1`)
	assert.Contains(t, body, "rxdecode_names_corrected_total 1")
}

func TestPipeline_SecondaryWinsAndIsFlagged(t *testing.T) {
	f := newFixture(
		&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Napa", Confidence: 50}}},
		&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Xyzzyx", Confidence: 30}}},
	)
	p := f.pipeline(Config{})

	got, err := p.Run(context.Background(), testImage(t))
	require.NoError(t, err)

	require.Len(t, got.Medicines, 1)
	assert.Equal(t, "Xyzzyx", got.Medicines[0].Drug)
	assert.True(t, got.Medicines[0].RequiresManualReview)
	assert.Contains(t, got.Medicines[0].Notes, LowConfidenceNote)
	assert.Empty(t, f.secondary.LastImage().OCR, "no OCR variant without preprocessing")
}

func TestPipeline_ResultIndependentOfCompletionOrder(t *testing.T) {
	cases := []struct {
		name      string
		primary   *rx.Prescription
		secondary *rx.Prescription
		selected  string
		drug      string
	}{
		{
			name:      "confident primary",
			primary:   &rx.Prescription{DoctorName: "Dr. Rahman", Medicines: []rx.Medicine{{Drug: "Augmentin", Confidence: 90}}},
			secondary: &rx.Prescription{DoctorName: "Dr. Other", Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 95}}},
			selected:  `rxdecode_candidate_selected_total{candidate="primary",rule="high_confidence"} 1`,
			drug:      "Augmentin",
		},
		{
			name:      "unsure primary",
			primary:   &rx.Prescription{DoctorName: "Dr. Rahman", Medicines: []rx.Medicine{{Drug: "Augmentin", Confidence: 60}}},
			secondary: &rx.Prescription{DoctorName: "Dr. Other", Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 95}}},
			selected:  `rxdecode_candidate_selected_total{candidate="secondary",rule="secondary_has_medicines"} 1`,
			drug:      "Sergel",
		},
	}
	orders := []struct {
		name             string
		primaryLatency   time.Duration
		secondaryLatency time.Duration
	}{
		{name: "primary finishes last", primaryLatency: 40 * time.Millisecond, secondaryLatency: time.Millisecond},
		{name: "secondary finishes last", primaryLatency: time.Millisecond, secondaryLatency: 40 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var results []*rx.Prescription
			for _, order := range orders {
				f := newFixture(tc.primary, tc.secondary)
				f.primary.Latency = order.primaryLatency
				f.secondary.Latency = order.secondaryLatency

				got, err := f.pipeline(Config{}).Run(context.Background(), testImage(t))
				require.NoError(t, err, order.name)
				require.Len(t, got.Medicines, 1, order.name)
				assert.Equal(t, tc.drug, got.Medicines[0].Drug, order.name)
				assert.Contains(t, f.scrape(t), tc.selected, order.name)
				results = append(results, got)
			}
			assert.Equal(t, results[0], results[1])
		})
	}
}

func TestPipeline_TransportFailureAbortsByDefault(t *testing.T) {
	f := newFixture(nil, &rx.Prescription{Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 90}}})
	f.primary.ShouldFail = true
	p := f.pipeline(Config{})

	got, err := p.Run(context.Background(), testImage(t))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, providers.ErrMockFailure)
	assert.True(t, providers.IsTransport(err))
	assert.Contains(t, f.scrape(t), `rxdecode_pipeline_runs_total{outcome="failure"} 1`)
}

func TestPipeline_DegradeOnFailure(t *testing.T) {
	t.Run("secondary carries the request", func(t *testing.T) {
		f := newFixture(nil, &rx.Prescription{Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 90}}})
		f.primary.ShouldFail = true
		p := f.pipeline(Config{DegradeOnFailure: true})

		got, err := p.Run(context.Background(), testImage(t))
		require.NoError(t, err)
		require.Len(t, got.Medicines, 1)
		assert.Equal(t, "Sergel", got.Medicines[0].Drug)
		assert.Contains(t, f.scrape(t), `rxdecode_pipeline_runs_total{outcome="degraded"} 1`)
	})

	t.Run("failed primary with empty secondary returns the substitute", func(t *testing.T) {
		f := newFixture(nil, &rx.Prescription{Medicines: []rx.Medicine{}})
		f.primary.ShouldFail = true
		p := f.pipeline(Config{DegradeOnFailure: true})

		got, err := p.Run(context.Background(), testImage(t))
		require.NoError(t, err)
		assert.Empty(t, got.Medicines)
		assert.Equal(t, UnavailableNote("groq"), got.Notes)
	})

	t.Run("both failing is still an error", func(t *testing.T) {
		f := newFixture(nil, nil)
		f.primary.ShouldFail = true
		f.secondary.ShouldFail = true
		p := f.pipeline(Config{DegradeOnFailure: true})

		_, err := p.Run(context.Background(), testImage(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, providers.ErrMockFailure)
	})

	t.Run("missing recognizer is treated as failed", func(t *testing.T) {
		f := newFixture(&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 88}}}, nil)
		p := f.pipeline(Config{Secondary: "absent", DegradeOnFailure: true})

		got, err := p.Run(context.Background(), testImage(t))
		require.NoError(t, err)
		assert.Equal(t, "Sergel", got.Medicines[0].Drug)
	})
}

func TestPipeline_MissingRecognizers(t *testing.T) {
	f := newFixture(nil, nil)

	_, err := f.pipeline(Config{Primary: "nope", Secondary: "none"}).Run(context.Background(), testImage(t))
	assert.ErrorIs(t, err, ErrNoRecognizers)

	_, err = f.pipeline(Config{Secondary: "absent"}).Run(context.Background(), testImage(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecognizers)
	assert.Zero(t, f.primary.CallCount(), "a misconfigured pipeline calls nothing")
}

func TestPipeline_UnsupportedUpload(t *testing.T) {
	f := newFixture(nil, nil)
	p := f.pipeline(Config{Preprocess: true})

	_, err := p.Run(context.Background(), []byte("plain text, not an image"))
	assert.ErrorIs(t, err, imageprep.ErrUnsupportedFormat)
	assert.Zero(t, f.primary.CallCount())
	assert.Zero(t, f.secondary.CallCount())
}

func TestPipeline_Timeout(t *testing.T) {
	f := newFixture(nil, nil)
	f.primary.Latency = 5 * time.Second
	f.secondary.Latency = 5 * time.Second
	p := f.pipeline(Config{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := p.Run(context.Background(), testImage(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPipeline_SetConfig(t *testing.T) {
	f := newFixture(
		&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Augmentin", Confidence: 90}}},
		&rx.Prescription{Medicines: []rx.Medicine{{Drug: "Sergel", Confidence: 90}}},
	)
	p := f.pipeline(Config{})
	p.SetConfig(Config{Primary: "gemini", Secondary: "groq"})
	assert.Equal(t, "gemini", p.Config().Primary)

	got, err := p.Run(context.Background(), testImage(t))
	require.NoError(t, err)
	assert.Equal(t, "Sergel", got.Medicines[0].Drug)
}
