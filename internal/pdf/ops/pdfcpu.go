// Package ops implements the page level PDF tools on top of pdfcpu.
package ops

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

var disableConfigDir sync.Once

// newConfig returns a relaxed pdfcpu configuration. pdfcpu's on-disk config
// directory is never touched.
func newConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// transform runs a pdfcpu read-modify-write operation over in-memory bytes
func transform(data []byte, op string, fn func(rs io.ReadSeeker, w io.Writer) error) ([]byte, error) {
	var out bytes.Buffer
	if err := fn(bytes.NewReader(data), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return out.Bytes(), nil
}

// classify maps pdfcpu password failures onto pdf.ErrWrongPassword
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password") || strings.Contains(msg, "not authorized") {
		return fmt.Errorf("%w: %v", pdf.ErrWrongPassword, err)
	}
	return err
}

// PageCount returns the number of pages in a PDF
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", classify(err))
	}
	return n, nil
}

// pageSelection renders 1-based page numbers in pdfcpu's selection syntax
func pageSelection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = fmt.Sprintf("%d", p)
	}
	return sel
}
