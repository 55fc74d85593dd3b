// Package imageprep decodes uploaded prescription images (or the first image
// of a PDF) and produces the variants sent to vision models and OCR engines.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned when the upload cannot be decoded as an image.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrNoImageInPDF is returned when a PDF upload has no image on its first page.
	ErrNoImageInPDF = errors.New("no image found on first PDF page")
)

// Defaults for Options.
const (
	DefaultContrast     = 50.0
	DefaultThreshold    = 0.55
	DefaultJPEGQuality  = 90
	DefaultMaxDimension = 2048
)

// Options controls preprocessing.
type Options struct {
	// Enhance enables grayscale and contrast for the vision variant and
	// binarization for the OCR variant.
	Enhance bool
	// Contrast is the imaging.AdjustContrast percentage.
	Contrast float64
	// Threshold is the luminance cutoff in [0,1] for the OCR variant.
	Threshold float64
	// JPEGQuality for re-encoded output.
	JPEGQuality int
	// MaxDimension bounds the longer side; larger images are downscaled.
	MaxDimension int
}

func (o Options) withDefaults() Options {
	if o.Contrast == 0 {
		o.Contrast = DefaultContrast
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.MaxDimension == 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	return o
}

// Prepared holds the encoded variants of one upload.
type Prepared struct {
	Vision   []byte // sent to vision recognizers
	OCR      []byte // sent to OCR engines; nil means use Vision
	MIMEType string // of Vision
	Format   string // decoded source format (jpeg, png, webp, ...)
	Width    int
	Height   int
	FromPDF  bool
}

// Preparer turns raw upload bytes into Prepared images.
type Preparer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Preparer.
func New(opts Options, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{opts: opts.withDefaults(), logger: logger}
}

// Prepare decodes data and builds the recognizer variants.
func (p *Preparer) Prepare(data []byte) (*Prepared, error) {
	fromPDF := IsPDF(data)
	if fromPDF {
		extracted, err := FirstPDFImage(data)
		if err != nil {
			return nil, err
		}
		data = extracted
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	out := &Prepared{
		Format:  format,
		FromPDF: fromPDF,
	}

	b := img.Bounds()
	if max(b.Dx(), b.Dy()) > p.opts.MaxDimension {
		img = imaging.Fit(img, p.opts.MaxDimension, p.opts.MaxDimension, imaging.Lanczos)
		b = img.Bounds()
	}
	out.Width, out.Height = b.Dx(), b.Dy()

	if !p.opts.Enhance {
		if format == "jpeg" && !resized(data, out) {
			out.Vision, out.MIMEType = data, "image/jpeg"
			return out, nil
		}
		out.Vision, err = p.encodeJPEG(img)
		if err != nil {
			return nil, err
		}
		out.MIMEType = "image/jpeg"
		return out, nil
	}

	enhanced := Enhance(img, p.opts.Contrast)
	if out.Vision, err = p.encodeJPEG(enhanced); err != nil {
		return nil, err
	}
	if out.OCR, err = p.encodeJPEG(Binarize(enhanced, p.opts.Threshold)); err != nil {
		return nil, err
	}
	out.MIMEType = "image/jpeg"

	p.logger.Debug("image prepared",
		"format", format,
		"width", out.Width,
		"height", out.Height,
		"from_pdf", fromPDF,
		"vision_bytes", len(out.Vision),
		"ocr_bytes", len(out.OCR),
	)
	return out, nil
}

// Enhance converts img to grayscale and raises its contrast by percentage.
func Enhance(img image.Image, percentage float64) *image.NRGBA {
	return imaging.AdjustContrast(imaging.Grayscale(img), percentage)
}

// Binarize maps every pixel to black or white at the luminance threshold.
func Binarize(img image.Image, threshold float64) *image.NRGBA {
	cutoff := threshold * 255
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		if lum >= cutoff {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return color.NRGBA{A: c.A}
	})
}

func (p *Preparer) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// resized reports whether the decoded source dimensions differ from out.
func resized(data []byte, out *Prepared) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return true
	}
	return cfg.Width != out.Width || cfg.Height != out.Height
}
