// Package convert moves documents between PDF, plain text, DOCX, HTML and Markdown.
package convert

import (
	"fmt"
	"strings"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// ToText extracts the text of every page under "--- Page n ---" headers
func ToText(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	pages, err := pdf.ExtractPages(data)
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(pages))
	for i, text := range pages {
		parts[i] = fmt.Sprintf("--- Page %d ---\n%s", i+1, text)
		progress.Step(i+1, len(pages), 0, 100)
	}
	progress.Report(100)

	return &pdf.Blob{ContentType: pdf.ContentTypeText, Data: []byte(strings.Join(parts, "\n\n"))}, nil
}
