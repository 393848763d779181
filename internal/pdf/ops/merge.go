package ops

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// Merge concatenates the documents in the order given
func Merge(files [][]byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	if len(files) == 0 {
		return nil, pdf.ErrNoInput
	}

	conf := newConfig()
	readers := make([]io.ReadSeeker, len(files))
	for i, data := range files {
		if _, err := api.PageCount(bytes.NewReader(data), conf); err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", i+1, classify(err))
		}
		readers[i] = bytes.NewReader(data)
		progress.Step(i+1, len(files), 0, 95)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, conf); err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out.Bytes()), nil
}
