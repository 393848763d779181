package ops

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/raster"
)

// Page sizes in points, portrait
var (
	sizeA4     = fpdf.SizeType{Wd: 595.28, Ht: 841.89}
	sizeLetter = fpdf.SizeType{Wd: 612, Ht: 792}
)

const fitMargin = 18

// ImageToPdfOptions configures page geometry for ImagesToPDF
type ImageToPdfOptions struct {
	// fit, a4 or letter
	PageSize string `json:"pageSize"`
	// portrait, landscape or auto
	Orientation string  `json:"orientation"`
	Margin      float64 `json:"margin"`
}

// DefaultImageToPdfOptions uses the fit layout
func DefaultImageToPdfOptions() ImageToPdfOptions {
	return ImageToPdfOptions{PageSize: "fit", Orientation: "portrait"}
}

// pageFor picks the page size and margin for an image of w x h pixels
func (o ImageToPdfOptions) pageFor(w, h int) (fpdf.SizeType, float64, error) {
	landscapeImage := w > h
	swap := func(s fpdf.SizeType) fpdf.SizeType { return fpdf.SizeType{Wd: s.Ht, Ht: s.Wd} }

	if o.PageSize == "fit" || o.PageSize == "" {
		if landscapeImage {
			return swap(sizeA4), fitMargin, nil
		}
		return sizeA4, fitMargin, nil
	}

	var size fpdf.SizeType
	switch o.PageSize {
	case "a4":
		size = sizeA4
	case "letter":
		size = sizeLetter
	default:
		return size, 0, fmt.Errorf("%w: unknown page size %q", pdf.ErrInvalidOptions, o.PageSize)
	}

	switch o.Orientation {
	case "auto":
		if landscapeImage {
			size = swap(size)
		}
	case "landscape":
		size = swap(size)
	case "portrait", "":
	default:
		return size, 0, fmt.Errorf("%w: unknown orientation %q", pdf.ErrInvalidOptions, o.Orientation)
	}
	return size, o.Margin, nil
}

// ImagesToPDF puts each image on its own page, scaled to fit inside the margins and centred
func ImagesToPDF(images []pdf.Document, opts ImageToPdfOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	if len(images) == 0 {
		return nil, pdf.ErrNoInput
	}
	if opts.Margin < 0 {
		return nil, fmt.Errorf("%w: margin cannot be negative", pdf.ErrInvalidOptions)
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator("pdf-tools", true)

	for i, file := range images {
		data, imageType, w, h, err := embeddable(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}

		size, margin, err := opts.pageFor(w, h)
		if err != nil {
			return nil, err
		}
		usableW := size.Wd - 2*margin
		usableH := size.Ht - 2*margin
		if usableW <= 0 || usableH <= 0 {
			return nil, fmt.Errorf("%w: margin leaves no room on the page", pdf.ErrInvalidOptions)
		}
		drawW, drawH := fitBox(float64(w), float64(h), usableW, usableH)

		name := fmt.Sprintf("img%d", i)
		imgOpts := fpdf.ImageOptions{ImageType: imageType}
		doc.AddPageFormat("P", size)
		doc.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(data))
		doc.ImageOptions(name, margin+(usableW-drawW)/2, margin+(usableH-drawH)/2, drawW, drawH, false, imgOpts, 0, "")
		if doc.Err() {
			return nil, fmt.Errorf("failed to add %s: %w", file.Name, doc.Error())
		}
		progress.Step(i+1, len(images), 0, 95)
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out.Bytes()), nil
}

// embeddable returns image bytes fpdf can embed along with the fpdf image type
// and pixel size. JPEG passes through; PNG passes through unless fpdf rejects
// it, in which case it is re-encoded once; other formats become PNG.
func embeddable(file pdf.Document) ([]byte, string, int, int, error) {
	img, format, err := decodeImage(file.Data)
	if err != nil {
		return nil, "", 0, 0, err
	}
	b := img.Bounds()

	switch format {
	case "jpeg":
		return file.Data, "JPG", b.Dx(), b.Dy(), nil
	case "png":
		if pngEmbeddable(file.Data) {
			return file.Data, "PNG", b.Dx(), b.Dy(), nil
		}
	}

	data, err := raster.EncodePNG(img)
	if err != nil {
		return nil, "", 0, 0, err
	}
	return data, "PNG", b.Dx(), b.Dy(), nil
}

// pngEmbeddable parses the PNG with a scratch document so errors do not poison the real one
func pngEmbeddable(data []byte) bool {
	probe := fpdf.New("P", "pt", "A4", "")
	probe.RegisterImageOptionsReader("probe", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	return !probe.Err()
}
