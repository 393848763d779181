// Package raster renders PDF pages to bitmaps with MuPDF.
package raster

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/gen2brain/go-fitz"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// baseDPI is the resolution of scale 1, one pixel per point
const baseDPI = 72.0

// Document is an open PDF ready for rendering. It is not safe for concurrent use.
type Document struct {
	doc *fitz.Document
}

// Open parses PDF bytes for rendering
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}
	return &Document{doc: doc}, nil
}

// NumPage returns the number of pages
func (d *Document) NumPage() int {
	return d.doc.NumPage()
}

// Render draws the 1-based page at scale times 72 dpi
func (d *Document) Render(page int, scale float64) (*image.RGBA, error) {
	if page < 1 || page > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d is outside the document (1-%d)", page, d.doc.NumPage())
	}
	if scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %v", scale)
	}
	img, err := d.doc.ImageDPI(page-1, baseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return img, nil
}

// Close releases the MuPDF document
func (d *Document) Close() error {
	return d.doc.Close()
}

// Render opens data and draws a single page
func Render(data []byte, page int, scale float64) (*image.RGBA, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.Render(page, scale)
}

// Image formats for ToImages
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// ToImagesOptions configures page export. Quality applies to JPEG only and is in (0,1].
type ToImagesOptions struct {
	Format  string  `json:"format"`
	Quality float64 `json:"quality"`
	Scale   float64 `json:"scale"`
}

// DefaultToImagesOptions exports JPEG at twice the page size
func DefaultToImagesOptions() ToImagesOptions {
	return ToImagesOptions{Format: FormatJPEG, Quality: 0.85, Scale: 2}
}

// ToImages renders every page and returns a zip of page-NN.jpg or page-NN.png files.
// Page numbers are zero padded to the width of the page count.
func ToImages(data []byte, opts ToImagesOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	if opts.Format != FormatJPEG && opts.Format != FormatPNG {
		return nil, fmt.Errorf("%w: unknown image format %q", pdf.ErrInvalidOptions, opts.Format)
	}
	if opts.Scale <= 0 || opts.Scale > 8 {
		return nil, fmt.Errorf("%w: scale must be in (0, 8]", pdf.ErrInvalidOptions)
	}

	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	total := doc.NumPage()
	ext := "png"
	if opts.Format == FormatJPEG {
		ext = "jpg"
	}
	width := len(fmt.Sprint(total))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 1; i <= total; i++ {
		img, err := doc.Render(i, opts.Scale)
		if err != nil {
			return nil, err
		}

		var encoded []byte
		if opts.Format == FormatJPEG {
			encoded, err = EncodeJPEG(img, JPEGQuality(opts.Quality))
		} else {
			encoded, err = EncodePNG(img)
		}
		if err != nil {
			return nil, err
		}

		f, err := zw.Create(fmt.Sprintf("page-%0*d.%s", width, i, ext))
		if err != nil {
			return nil, fmt.Errorf("failed to add page %d to archive: %w", i, err)
		}
		if _, err := f.Write(encoded); err != nil {
			return nil, fmt.Errorf("failed to add page %d to archive: %w", i, err)
		}
		progress.Step(i, total, 0, 100)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	return &pdf.Blob{ContentType: pdf.ContentTypeZIP, Data: buf.Bytes()}, nil
}

// JPEGQuality maps a (0,1] quality onto the encoder's 1..100 scale
func JPEGQuality(q float64) int {
	if q <= 0 || q > 1 {
		return jpeg.DefaultQuality
	}
	return max(1, int(math.Round(q*100)))
}

// EncodeJPEG flattens img onto white and encodes it at quality 1..100
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img losslessly
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Flatten composites img over an opaque white background
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
