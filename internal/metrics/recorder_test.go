package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	reg := r.Registry()
	require.NotNil(t, reg)

	r.PipelineRun(OutcomeSuccess, 2*time.Second)
	r.PipelineRun(OutcomeSuccess, time.Second)
	r.PipelineRun(OutcomeFailure, time.Second)
	r.Selection("primary", "high_confidence")
	r.Corrected(2)
	r.Corrected(0)
	r.Flagged(1)
	r.Recognizer("groq", RecognizerOK, 3*time.Second)
	r.TextParse()

	assert.Equal(t, 2.0, gatherValue(t, reg, "rxdecode_pipeline_runs_total", map[string]string{"outcome": OutcomeSuccess}))
	assert.Equal(t, 1.0, gatherValue(t, reg, "rxdecode_pipeline_runs_total", map[string]string{"outcome": OutcomeFailure}))
	assert.Equal(t, 3.0, gatherValue(t, reg, "rxdecode_pipeline_duration_seconds", nil))
	assert.Equal(t, 1.0, gatherValue(t, reg, "rxdecode_candidate_selected_total", map[string]string{"candidate": "primary", "rule": "high_confidence"}))
	assert.Equal(t, 2.0, gatherValue(t, reg, "rxdecode_names_corrected_total", nil))
	assert.Equal(t, 1.0, gatherValue(t, reg, "rxdecode_medicines_flagged_total", nil))
	assert.Equal(t, 1.0, gatherValue(t, reg, "rxdecode_recognizer_duration_seconds", map[string]string{"provider": "groq"}))
	assert.Equal(t, 1.0, gatherValue(t, reg, "rxdecode_text_parses_total", nil))
}

func TestRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorderWith(reg)
	assert.NoError(t, err)

	_, err = NewRecorderWith(reg)
	assert.Error(t, err)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.PipelineRun(OutcomeSuccess, time.Second)
		r.Selection("secondary", "secondary_has_medicines")
		r.Corrected(1)
		r.Flagged(1)
		r.Recognizer("gemini", RecognizerTransport, time.Second)
		r.TextParse()
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Flagged(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rxdecode_medicines_flagged_total 3")
}
