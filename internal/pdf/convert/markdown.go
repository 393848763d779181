package convert

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// MarkdownToPDF renders Markdown to HTML and lays it out like HTMLToPDF
func MarkdownToPDF(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(data, &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	progress.Report(10)

	return HTMLToPDF(buf.Bytes(), func(p int) {
		progress.Report(10 + p*90/100)
	})
}
