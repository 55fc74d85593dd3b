// Package metrics exposes Prometheus counters and histograms for the decode
// pipeline. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rxdecode"

// Pipeline outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDegraded = "degraded"
)

// Recognizer outcomes.
const (
	RecognizerOK        = "ok"
	RecognizerEmpty     = "empty"
	RecognizerTransport = "transport_error"
)

var latencyBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80}

// Recorder records pipeline metrics on a prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	pipelineRuns       *prometheus.CounterVec
	pipelineDuration   prometheus.Histogram
	selections         *prometheus.CounterVec
	corrections        prometheus.Counter
	flagged            prometheus.Counter
	recognizerDuration *prometheus.HistogramVec
	textParses         prometheus.Counter
}

// NewRecorder registers the pipeline metrics on a fresh private registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r, err := NewRecorderWith(reg)
	if err != nil {
		// A fresh registry cannot hold duplicates.
		panic(err)
	}
	r.registry = reg
	return r
}

// NewRecorderWith registers the pipeline metrics on registerer.
func NewRecorderWith(registerer prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Decode pipeline runs by outcome.",
		}, []string{"outcome"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end decode pipeline latency.",
			Buckets:   latencyBuckets,
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_selected_total",
			Help:      "Reconciled candidate by source and selection rule.",
		}, []string{"candidate", "rule"}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "names_corrected_total",
			Help:      "Drug names rewritten by the vocabulary corrector.",
		}),
		flagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "medicines_flagged_total",
			Help:      "Medicines flagged for manual review.",
		}),
		recognizerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognizer_duration_seconds",
			Help:      "Recognizer call latency by provider and outcome.",
			Buckets:   latencyBuckets,
		}, []string{"provider", "outcome"}),
		textParses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_parses_total",
			Help:      "Raw text blocks run through the line parser.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.pipelineRuns, r.pipelineDuration, r.selections, r.corrections,
		r.flagged, r.recognizerDuration, r.textParses,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

// Registry returns the private registry, or nil when the recorder was built
// on a caller-supplied registerer.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// PipelineRun records one pipeline run.
func (r *Recorder) PipelineRun(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(outcome).Inc()
	r.pipelineDuration.Observe(d.Seconds())
}

// Selection records which candidate the reconciler picked and why.
func (r *Recorder) Selection(candidate, rule string) {
	if r == nil {
		return
	}
	r.selections.WithLabelValues(candidate, rule).Inc()
}

// Corrected adds n corrected names.
func (r *Recorder) Corrected(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.corrections.Add(float64(n))
}

// Flagged adds n medicines flagged for review.
func (r *Recorder) Flagged(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.flagged.Add(float64(n))
}

// Recognizer records one recognizer call.
func (r *Recorder) Recognizer(provider, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.recognizerDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// TextParse records one text parse request.
func (r *Recorder) TextParse() {
	if r == nil {
		return
	}
	r.textParses.Inc()
}
