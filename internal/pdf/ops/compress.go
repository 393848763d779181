package ops

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/raster"
)

// Compression levels
const (
	CompressLow      = "low"
	CompressMedium   = "medium"
	CompressHigh     = "high"
	CompressLossless = "lossless"
)

type compressSetting struct {
	scale   float64
	quality int
}

var compressSettings = map[string]compressSetting{
	CompressLow:    {scale: 1.5, quality: 85},
	CompressMedium: {scale: 1.2, quality: 70},
	CompressHigh:   {scale: 0.9, quality: 50},
}

// CompressOptions selects the compression level
type CompressOptions struct {
	Level string `json:"level"`
}

// Compress shrinks a document. Lossy levels rebuild every page as a JPEG at
// the page's original size; lossless only optimizes the object structure.
// The result is never larger than the optimized input.
func Compress(data []byte, opts CompressOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	level := opts.Level
	if level == "" {
		level = CompressMedium
	}
	setting, lossy := compressSettings[level]
	if !lossy && level != CompressLossless {
		return nil, fmt.Errorf("%w: unknown compression level %q", pdf.ErrInvalidOptions, opts.Level)
	}
	progress.Report(5)

	conf := newConfig()
	optimized, err := transform(data, "failed to optimize document", func(rs io.ReadSeeker, w io.Writer) error {
		return api.Optimize(rs, w, conf)
	})
	if err != nil {
		return nil, err
	}
	if len(optimized) > len(data) {
		optimized = data
	}
	progress.Report(10)

	if !lossy {
		progress.Report(100)
		return pdf.NewPDFBlob(optimized), nil
	}

	rebuilt, err := rasterize(data, setting, progress)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	if len(rebuilt) >= len(optimized) {
		return pdf.NewPDFBlob(optimized), nil
	}
	return pdf.NewPDFBlob(rebuilt), nil
}

func rasterize(data []byte, setting compressSetting, progress pdf.ProgressFunc) ([]byte, error) {
	src, err := raster.Open(data)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(true)

	total := src.NumPage()
	for i := 1; i <= total; i++ {
		img, err := src.Render(i, setting.scale)
		if err != nil {
			return nil, err
		}
		jpg, err := raster.EncodeJPEG(img, setting.quality)
		if err != nil {
			return nil, err
		}

		b := img.Bounds()
		w := float64(b.Dx()) / setting.scale
		h := float64(b.Dy()) / setting.scale
		name := fmt.Sprintf("page%d", i)
		imgOpts := fpdf.ImageOptions{ImageType: "JPG"}

		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		doc.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(jpg))
		doc.ImageOptions(name, 0, 0, w, h, false, imgOpts, 0, "")
		if doc.Err() {
			return nil, fmt.Errorf("failed to rebuild page %d: %w", i, doc.Error())
		}
		progress.Step(i, total, 10, 95)
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to write compressed PDF: %w", err)
	}
	return out.Bytes(), nil
}
