package imageprep

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// FirstPDFImage returns the raw bytes of the lowest-numbered image object on
// page 1 of a PDF. A scanned prescription is a single embedded image.
func FirstPDFImage(data []byte) ([]byte, error) {
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), []string{"1"}, pdfConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF: %v", ErrUnsupportedFormat, err)
	}

	var images []model.Image
	for _, byObj := range pages {
		for _, img := range byObj {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		return nil, ErrNoImageInPDF
	}
	sort.Slice(images, func(i, j int) bool { return images[i].ObjNr < images[j].ObjNr })

	raw, err := io.ReadAll(images[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF image: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoImageInPDF
	}
	return raw, nil
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
