// Package assemble — image-to-PDF encoder.
// Builds a document with one page per magazine image, each page sized to
// the image's pixel dimensions at the configured DPI. The document is
// accumulated in memory and only ever written to disk as a whole.
package assemble

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/jung-kurt/gofpdf"
)

const pointsPerInch = 72.0

// Encoder appends JPEG pages to an in-memory PDF.
type Encoder struct {
	pdf   *gofpdf.Fpdf
	dpi   float64
	pages int
}

// NewEncoder creates an Encoder producing pages at the given DPI.
// The title, if non-empty, becomes the document's title metadata.
func NewEncoder(dpi float64, title string) *Encoder {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: 595.28, Ht: 841.89}, // placeholder; every page sets its own size
	})
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.SetAutoPageBreak(false, 0)
	return &Encoder{pdf: pdf, dpi: dpi}
}

// AddPage appends one page holding the given JPEG at its native size.
// The CDN serves the high tiers with a .bin extension, but the payload is
// still JPEG; the bytes decide, not the URL.
func (e *Encoder) AddPage(page int, data []byte) error {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding page %d image: %w", page, err)
	}

	w := float64(cfg.Width) / e.dpi * pointsPerInch
	h := float64(cfg.Height) / e.dpi * pointsPerInch

	e.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})

	name := fmt.Sprintf("page-%d", page)
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	e.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	e.pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")

	if e.pdf.Err() {
		return fmt.Errorf("encoding page %d: %w", page, e.pdf.Error())
	}
	e.pages++
	return nil
}

// Pages returns the number of pages appended so far.
func (e *Encoder) Pages() int {
	return e.pages
}

// Bytes finalizes the document and returns it.
func (e *Encoder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("finalizing document: %w", err)
	}
	return buf.Bytes(), nil
}
