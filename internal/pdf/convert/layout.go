package convert

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// textStyle is a font size in points, a line height in mm and the space after the block in mm
type textStyle struct {
	size    float64
	bold    bool
	line    float64
	spacing float64
}

var (
	bodyStyle     = textStyle{size: 11, line: 5.5, spacing: 2.5}
	headingStyles = map[int]textStyle{
		1: {size: 18, bold: true, line: 8, spacing: 4},
		2: {size: 15, bold: true, line: 7, spacing: 3},
		3: {size: 13, bold: true, line: 6.5, spacing: 2.5},
		4: {size: 11.5, bold: true, line: 6, spacing: 2},
		5: {size: 11.5, bold: true, line: 6, spacing: 2},
		6: {size: 11.5, bold: true, line: 6, spacing: 2},
	}
)

// pageWriter flows wrapped Helvetica text down A4 pages
type pageWriter struct {
	doc       *fpdf.Fpdf
	translate func(string) string
	margin    float64
	y         float64
	maxY      float64
	width     float64
}

func newPageWriter(margin float64) *pageWriter {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, margin)
	doc.SetCreator("pdf-tools", true)
	doc.AddPage()

	w, h := doc.GetPageSize()
	return &pageWriter{
		doc:       doc,
		translate: doc.UnicodeTranslatorFromDescriptor(""),
		margin:    margin,
		y:         margin,
		maxY:      h - margin,
		width:     w - 2*margin,
	}
}

// title writes a single heading line and moves down by advance mm
func (p *pageWriter) title(text string, size, advance float64) {
	p.doc.SetFont("Helvetica", "B", size)
	for _, line := range p.doc.SplitText(p.translate(text), p.width) {
		p.line(line, advance)
	}
}

// block writes text wrapped to the page width in the given style
func (p *pageWriter) block(text string, style textStyle) {
	fontStyle := ""
	if style.bold {
		fontStyle = "B"
	}
	p.doc.SetFont("Helvetica", fontStyle, style.size)
	for _, line := range p.doc.SplitText(p.translate(strings.TrimSpace(text)), p.width) {
		p.line(line, style.line)
	}
	p.y += style.spacing
}

// line draws one line with its baseline at the cursor, breaking the page first when it would overflow
func (p *pageWriter) line(text string, height float64) {
	if p.y+height > p.maxY {
		p.doc.AddPage()
		p.y = p.margin
	}
	p.doc.Text(p.margin, p.y, text)
	p.y += height
}

func (p *pageWriter) output() (*pdf.Blob, error) {
	if err := p.doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}
	var buf bytes.Buffer
	if err := p.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return pdf.NewPDFBlob(buf.Bytes()), nil
}
