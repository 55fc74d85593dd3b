package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/rxdecode/internal/imageprep"
	"github.com/jackzampolin/rxdecode/internal/metrics"
	"github.com/jackzampolin/rxdecode/internal/providers"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/svcctx"
)

// ErrNoRecognizers is returned when neither configured recognizer is registered.
var ErrNoRecognizers = errors.New("no recognizers available")

// UnavailableNote is the note on a candidate substituted for a failed recognizer.
func UnavailableNote(name string) string {
	return fmt.Sprintf("Error: %s unavailable", name)
}

// RecognizerSource looks up recognizers by name. *providers.Registry satisfies it.
type RecognizerSource interface {
	GetRecognizer(name string) (providers.Recognizer, error)
}

// Config controls a Pipeline.
type Config struct {
	Primary   string
	Secondary string
	// DegradeOnFailure substitutes an empty candidate for a recognizer that
	// fails to respond instead of failing the request.
	DegradeOnFailure bool
	// Timeout bounds one Run; zero means no deadline beyond the caller's.
	Timeout time.Duration
	// Preprocess enables grayscale, contrast and threshold variants.
	Preprocess bool
}

// Pipeline decodes a prescription image by running two recognizers
// concurrently, reconciling their answers and post-processing the winner.
type Pipeline struct {
	source    RecognizerSource
	corrector NameCorrector
	metrics   *metrics.Recorder
	logger    *slog.Logger

	mu       sync.RWMutex
	cfg      Config
	preparer *imageprep.Preparer
}

var _ svcctx.Decoder = (*Pipeline)(nil)

// NewPipeline creates a pipeline. corrector and recorder may be nil.
func NewPipeline(cfg Config, source RecognizerSource, corrector NameCorrector, recorder *metrics.Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		source:    source,
		corrector: corrector,
		metrics:   recorder,
		logger:    logger,
	}
	p.SetConfig(cfg)
	return p
}

// SetConfig replaces the pipeline configuration. Runs already in flight keep
// the configuration they started with.
func (p *Pipeline) SetConfig(cfg Config) {
	preparer := imageprep.New(imageprep.Options{Enhance: cfg.Preprocess}, p.logger)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.preparer = preparer
}

// Config returns the current configuration.
func (p *Pipeline) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Run decodes one uploaded image. Decode failures of the upload wrap
// imageprep.ErrUnsupportedFormat or imageprep.ErrNoImageInPDF.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*rx.Prescription, error) {
	start := time.Now()

	p.mu.RLock()
	cfg, preparer := p.cfg, p.preparer
	p.mu.RUnlock()

	result, outcome, err := p.run(ctx, cfg, preparer, data)
	duration := time.Since(start)
	p.metrics.PipelineRun(outcome, duration)
	if err != nil {
		p.logger.Warn("decode failed",
			"request_id", svcctx.RequestIDFrom(ctx),
			"duration", duration,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, cfg Config, preparer *imageprep.Preparer, data []byte) (*rx.Prescription, string, error) {
	const failed = metrics.OutcomeFailure

	primary, primaryErr := p.lookup(cfg.Primary)
	secondary, secondaryErr := p.lookup(cfg.Secondary)
	if primary == nil && secondary == nil {
		return nil, failed, fmt.Errorf("%w: %v", ErrNoRecognizers, errors.Join(primaryErr, secondaryErr))
	}
	if !cfg.DegradeOnFailure {
		if err := errors.Join(primaryErr, secondaryErr); err != nil {
			return nil, failed, err
		}
	}

	prepared, err := preparer.Prepare(data)
	if err != nil {
		return nil, failed, err
	}
	img := &providers.Image{
		Data:     prepared.Vision,
		OCR:      prepared.OCR,
		MIMEType: prepared.MIMEType,
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	recognizers := [2]providers.Recognizer{primary, secondary}
	names := [2]string{cfg.Primary, cfg.Secondary}
	errs := [2]error{primaryErr, secondaryErr}
	var results [2]*rx.Prescription

	g, gctx := errgroup.WithContext(ctx)
	for i := range recognizers {
		if recognizers[i] == nil {
			continue
		}
		g.Go(func() error {
			res, err := p.recognize(gctx, recognizers[i], img)
			if err != nil {
				if !cfg.DegradeOnFailure {
					return err
				}
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failed, err
	}

	outcome := metrics.OutcomeSuccess
	for i := range results {
		if errs[i] == nil {
			continue
		}
		if errs[1-i] != nil {
			return nil, failed, errors.Join(errs[0], errs[1])
		}
		outcome = metrics.OutcomeDegraded
		p.logger.Warn("recognizer failed, continuing with one candidate",
			"request_id", svcctx.RequestIDFrom(ctx),
			"recognizer", names[i],
			"error", errs[i],
		)
		results[i] = rx.Empty(UnavailableNote(names[i]))
	}

	sel := Select(results[0], results[1])
	stats := PostProcess(sel.Prescription, p.corrector)

	p.metrics.Selection(string(sel.Candidate), string(sel.Rule))
	p.metrics.Corrected(stats.Corrected)
	p.metrics.Flagged(stats.Flagged)

	p.logger.Info("prescription decoded",
		"request_id", svcctx.RequestIDFrom(ctx),
		"candidate", sel.Candidate,
		"recognizer", names[candidateIndex(sel.Candidate)],
		"rule", sel.Rule,
		"medicines", len(sel.Prescription.Medicines),
		"corrected", stats.Corrected,
		"flagged", stats.Flagged,
		"from_pdf", prepared.FromPDF,
	)
	return sel.Prescription, outcome, nil
}

// lookup returns the named recognizer, or nil and an error.
func (p *Pipeline) lookup(name string) (providers.Recognizer, error) {
	if name == "" {
		return nil, errors.New("recognizer not configured")
	}
	rec, err := p.source.GetRecognizer(name)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// recognize runs one recognizer and records its latency and outcome.
func (p *Pipeline) recognize(ctx context.Context, rec providers.Recognizer, img *providers.Image) (*rx.Prescription, error) {
	start := time.Now()
	res, err := rec.Recognize(ctx, img)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		p.metrics.Recognizer(rec.Name(), metrics.RecognizerTransport, elapsed)
		return nil, fmt.Errorf("recognizer %s: %w", rec.Name(), err)
	case !res.HasMedicines():
		p.metrics.Recognizer(rec.Name(), metrics.RecognizerEmpty, elapsed)
	default:
		p.metrics.Recognizer(rec.Name(), metrics.RecognizerOK, elapsed)
	}
	if res == nil {
		res = rx.Empty("")
	}
	p.logger.Debug("recognizer finished",
		"request_id", svcctx.RequestIDFrom(ctx),
		"recognizer", rec.Name(),
		"medicines", len(res.Medicines),
		"duration", elapsed,
	)
	return res, nil
}

func candidateIndex(c Candidate) int {
	if c == Secondary {
		return 1
	}
	return 0
}
