// Package ocr turns scanned pages and images into text.
package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/raster"
)

// renderScale is the page scale used before recognition
const renderScale = 2

// Languages lists the trained data sets offered to users
var Languages = []string{"eng", "spa", "fra", "deu", "por", "chi_sim", "jpn", "kor", "ara", "hin"}

var languagePattern = regexp.MustCompile(`^[a-z_]{3,}(\+[a-z_]{3,})*$`)

// Input is one image submitted for recognition
type Input struct {
	Image     []byte
	Languages []string
	DPI       int
}

// Engine recognizes text in a single image
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
}

// Options configures a recognition run. Language may combine sets with "+",
// e.g. "eng+fra". Pages applies to PDF input; empty means the first page.
type Options struct {
	Language string `json:"language"`
	Pages    []int  `json:"pages,omitempty"`
}

// ParseLanguage validates a tesseract language expression and splits it
func ParseLanguage(lang string) ([]string, error) {
	lang = strings.TrimSpace(lang)
	if !languagePattern.MatchString(lang) {
		return nil, fmt.Errorf("%w: invalid OCR language %q", pdf.ErrInvalidOptions, lang)
	}
	return strings.Split(lang, "+"), nil
}

// Recognize extracts text from an image or from the selected pages of a PDF.
// Output for more than one page is separated by "--- Page n ---" headers.
func Recognize(ctx context.Context, engine Engine, doc pdf.Document, opts Options, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	langs, err := ParseLanguage(opts.Language)
	if err != nil {
		return nil, err
	}

	if !doc.IsPDF() {
		progress.Report(10)
		text, err := engine.Recognize(ctx, Input{Image: doc.Data, Languages: langs})
		if err != nil {
			return nil, fmt.Errorf("recognition failed: %w", err)
		}
		progress.Report(100)
		return textBlob(strings.TrimSpace(text)), nil
	}

	src, err := raster.Open(doc.Data)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	pages := opts.Pages
	if len(pages) == 0 {
		pages = []int{1}
	}

	var parts []string
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := src.Render(page, renderScale)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pdf.ErrInvalidOptions, err)
		}
		encoded, err := raster.EncodePNG(img)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			progress.Report(20)
		}

		text, err := engine.Recognize(ctx, Input{Image: encoded, Languages: langs, DPI: int(72 * renderScale)})
		if err != nil {
			return nil, fmt.Errorf("recognition failed on page %d: %w", page, err)
		}
		text = strings.TrimSpace(text)
		if len(pages) > 1 {
			text = fmt.Sprintf("--- Page %d ---\n%s", page, text)
		}
		parts = append(parts, text)
		progress.Step(i+1, len(pages), 20, 95)
	}
	progress.Report(100)

	return textBlob(strings.Join(parts, "\n\n")), nil
}

func textBlob(text string) *pdf.Blob {
	return &pdf.Blob{ContentType: pdf.ContentTypeText, Data: []byte(text)}
}
