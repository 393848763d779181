package ops

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// Split modes
const (
	SplitRanges  = "ranges"
	SplitExtract = "extract"
	SplitAll     = "all"
	SplitBurst   = "burst"
)

// SplitOptions selects the pages of a split. Expr, when set, is parsed as a
// range list for ranges/burst mode or a page list for extract mode.
type SplitOptions struct {
	Mode   string      `json:"mode"`
	Ranges []PageRange `json:"ranges,omitempty"`
	Pages  []int       `json:"pages,omitempty"`
	Expr   string      `json:"expr,omitempty"`
}

// selectPages resolves the options against a document of total pages
func (o SplitOptions) selectPages(total int) []int {
	ranges, pages := o.Ranges, o.Pages
	if o.Expr != "" {
		if o.Mode == SplitExtract {
			pages = ParsePages(o.Expr)
		} else {
			ranges = ParseRanges(o.Expr)
		}
	}

	switch {
	case o.Mode == SplitExtract && len(pages) > 0:
		return inBounds(pages, total)
	case (o.Mode == SplitRanges || o.Mode == SplitBurst) && len(ranges) > 0:
		return expandRanges(ranges, total)
	default:
		return allPages(total)
	}
}

// Split builds a new document from the selected pages. In burst mode the
// result is a zip holding one single page PDF per selected page.
func Split(data []byte, opts SplitOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	pages := opts.selectPages(total)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages selected", pdf.ErrInvalidOptions)
	}
	progress.Report(10)

	if opts.Mode == SplitBurst {
		return burst(data, pages, progress)
	}

	out, err := collect(data, pages)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// collect writes the given pages, in order, into a new document
func collect(data []byte, pages []int) ([]byte, error) {
	conf := newConfig()
	return transform(data, "failed to collect pages", func(rs io.ReadSeeker, w io.Writer) error {
		return api.Collect(rs, w, pageSelection(pages), conf)
	})
}

func burst(data []byte, pages []int, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	width := 0
	for _, p := range pages {
		width = max(width, len(fmt.Sprint(p)))
	}

	for i, p := range pages {
		single, err := collect(data, []int{p})
		if err != nil {
			return nil, err
		}
		f, err := zw.Create(fmt.Sprintf("page-%0*d.pdf", width, p))
		if err != nil {
			return nil, fmt.Errorf("failed to add page %d to archive: %w", p, err)
		}
		if _, err := f.Write(single); err != nil {
			return nil, fmt.Errorf("failed to add page %d to archive: %w", p, err)
		}
		progress.Step(i+1, len(pages), 10, 95)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	progress.Report(100)

	return &pdf.Blob{ContentType: pdf.ContentTypeZIP, Data: buf.Bytes()}, nil
}
