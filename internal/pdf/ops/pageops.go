package ops

import (
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// RemovePages deletes the listed pages. Pages outside the document are ignored;
// removing every page is an error.
func RemovePages(data []byte, pages []int, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	remove := make(map[int]bool)
	for _, p := range inBounds(pages, total) {
		remove[p] = true
	}
	if len(remove) == 0 {
		return nil, fmt.Errorf("%w: no pages to remove", pdf.ErrInvalidOptions)
	}
	if len(remove) >= total {
		return nil, fmt.Errorf("%w: cannot remove every page", pdf.ErrInvalidOptions)
	}
	progress.Report(30)

	keep := make([]int, 0, total-len(remove))
	for p := 1; p <= total; p++ {
		if !remove[p] {
			keep = append(keep, p)
		}
	}

	out, err := collect(data, keep)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// Organize rebuilds the document with pages in the given order. Pages may repeat.
func Organize(data []byte, order []int, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	pages := inBounds(order, total)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: page order is empty", pdf.ErrInvalidOptions)
	}
	progress.Report(30)

	out, err := collect(data, pages)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// RotateOptions selects the angle and pages of a rotation
type RotateOptions struct {
	Angle int   `json:"angle"`
	Pages []int `json:"pages,omitempty"`
}

// Rotate adds Angle to the current rotation of the selected pages. No pages means
// every page; pages outside the document are skipped.
func Rotate(data []byte, opts RotateOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	angle := ((opts.Angle % 360) + 360) % 360
	if angle == 0 || angle%90 != 0 {
		return nil, fmt.Errorf("%w: rotation must be 90, 180 or 270, got %d", pdf.ErrInvalidOptions, opts.Angle)
	}

	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	pages := allPages(total)
	if len(opts.Pages) > 0 {
		pages = inBounds(opts.Pages, total)
	}
	if len(pages) == 0 {
		return pdf.NewPDFBlob(data), nil
	}
	progress.Report(30)

	conf := newConfig()
	out, err := transform(data, "failed to rotate pages", func(rs io.ReadSeeker, w io.Writer) error {
		return api.Rotate(rs, w, angle, pageSelection(pages), conf)
	})
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// Repair reads a damaged document leniently and writes it back optimized
func Repair(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	progress.Report(20)
	conf := newConfig()
	out, err := transform(data, "failed to repair document", func(rs io.ReadSeeker, w io.Writer) error {
		return api.Optimize(rs, w, conf)
	})
	if err != nil {
		return nil, err
	}
	progress.Report(100)
	return pdf.NewPDFBlob(out), nil
}
