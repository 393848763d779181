package ops

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/raster"
)

// signatureOversample renders the signature image at this many pixels per point
const signatureOversample = 4

// SignaturePlacement is the box the signature is fitted into, in points from
// the top-left corner of the page. A zero Width or Height places the signature
// at the default spot relative to the page size.
type SignaturePlacement struct {
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	AllPages bool    `json:"allPages"`
}

// default placement as fractions of the page size
const (
	signXRatio      = 0.1
	signYRatio      = 0.75
	signWidthRatio  = 0.3
	signHeightRatio = 0.08
)

// Sign stamps a signature image onto the target page, or every page when
// AllPages is set. The image keeps its aspect ratio and is centred in the box.
func Sign(data, signature []byte, place SignaturePlacement, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	raw, err := decodeDataURL(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pdf.ErrInvalidOptions, err)
	}
	img, _, err := decodeImage(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", pdf.ErrInvalidOptions, err)
	}
	progress.Report(20)

	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if place.Page == 0 {
		place.Page = 1
	}
	if !place.AllPages && (place.Page < 1 || place.Page > total) {
		return nil, fmt.Errorf("%w: page %d is outside the document (1-%d)", pdf.ErrInvalidOptions, place.Page, total)
	}
	progress.Report(40)

	if place.Width <= 0 || place.Height <= 0 {
		dims, err := api.PageDims(bytes.NewReader(data), newConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to read page size: %w", err)
		}
		if len(dims) == 0 {
			return nil, fmt.Errorf("document has no pages")
		}
		d := dims[min(max(place.Page, 1), len(dims))-1]
		place.X = d.Width * signXRatio
		place.Y = d.Height * signYRatio
		place.Width = d.Width * signWidthRatio
		place.Height = d.Height * signHeightRatio
	}

	b := img.Bounds()
	drawW, drawH := fitBox(float64(b.Dx()), float64(b.Dy()), place.Width, place.Height)
	left := place.X + (place.Width-drawW)/2
	top := place.Y + (place.Height-drawH)/2

	scaled := resize(img, int(math.Round(drawW*signatureOversample)), int(math.Round(drawH*signatureOversample)))
	stampPNG, err := raster.EncodePNG(scaled)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("position:tl, offset:%.2f %.2f, scalefactor:%.4f abs, rotation:0, opacity:1",
		left, -top, 1.0/signatureOversample)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(stampPNG), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("invalid signature stamp: %w", err)
	}
	progress.Report(60)

	var pages []int
	if !place.AllPages {
		pages = []int{place.Page}
	}
	out, err := applyStamp(data, wm, pages)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}
