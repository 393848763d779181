package convert

import (
	"fmt"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

const wordMargin = 25

// WordToPDF renders the paragraphs and headings of a DOCX file on A4 pages
func WordToPDF(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	paragraphs, err := ReadDocx(data)
	if err != nil {
		return nil, err
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%w: document has no text", pdf.ErrInvalidOptions)
	}
	progress.Report(40)

	w := newPageWriter(wordMargin)
	for i, p := range paragraphs {
		style := bodyStyle
		if hs, ok := headingStyles[p.Level]; ok {
			style = hs
		}
		w.block(p.Text, style)
		progress.Step(i+1, len(paragraphs), 40, 95)
	}

	blob, err := w.output()
	if err != nil {
		return nil, err
	}
	progress.Report(100)
	return blob, nil
}
