package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader extracts text from PDF files and in-memory documents
type Reader struct {
	maxFileSize int64
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: 10 * 1024 * 1024,
	}
}

// ReadFile extracts text content from a PDF file on disk
func (r *Reader) ReadFile(req PDFReadFileRequest) (*PDFReadFileResult, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(req.Path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", req.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := NewValidator(r.maxFileSize).ValidateFileInfo(req.Path, fileInfo); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	pdfReader, err := openReader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := pageTexts(pdfReader)
	content := r.joinPages(pages)
	_, imageCount := detectImages(pdfReader)

	return &PDFReadFileResult{
		Content:     content,
		Path:        req.Path,
		Pages:       pdfReader.NumPage(),
		Size:        fileInfo.Size(),
		ContentType: classifyContent(content, imageCount),
		HasImages:   imageCount > 0,
		ImageCount:  imageCount,
	}, nil
}

// joinPages renders page texts with "--- Page n ---" headers, truncated to maxTextSize
func (r *Reader) joinPages(pages []string) string {
	var builder strings.Builder
	for i, text := range pages {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		fmt.Fprintf(&builder, "--- Page %d ---\n%s", i+1, text)
		if builder.Len() >= r.maxTextSize {
			return builder.String()[:r.maxTextSize]
		}
	}
	return builder.String()
}

// ExtractPages returns the plain text of every page in document order.
// Pages whose content cannot be decoded come back as empty strings.
func ExtractPages(data []byte) ([]string, error) {
	return ExtractPagesWithProgress(data, nil, 0)
}

// ExtractPagesWithProgress is ExtractPages reporting 0..upTo percent as pages are read
func ExtractPagesWithProgress(data []byte, progress ProgressFunc, upTo int) ([]string, error) {
	pdfReader, err := openReader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	pages := make([]string, pdfReader.NumPage())
	for i := range pages {
		pages[i] = pageText(pdfReader, i+1)
		progress.Step(i+1, len(pages), 0, upTo)
	}
	return pages, nil
}

// CountPages returns the number of pages using the text reader
func CountPages(data []byte) (int, error) {
	pdfReader, err := openReader(data)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	return pdfReader.NumPage(), nil
}

func openReader(data []byte) (r *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageTexts(pdfReader *pdf.Reader) []string {
	pages := make([]string, pdfReader.NumPage())
	for i := range pages {
		pages[i] = pageText(pdfReader, i+1)
	}
	return pages
}

func pageText(pdfReader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(content)
}

// classifyContent decides whether a document is mostly text, scanned or empty
func classifyContent(content string, imageCount int) string {
	const minMeaningfulTextLength = 50

	var body strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "--- Page ") && strings.HasSuffix(line, " ---") {
			continue
		}
		body.WriteString(line)
	}
	text := strings.TrimSpace(body.String())

	switch {
	case len(text) < minMeaningfulTextLength && imageCount > 0:
		return "scanned_images"
	case len(text) < minMeaningfulTextLength:
		return "no_content"
	case imageCount > 0:
		return "mixed"
	default:
		return "text"
	}
}

// detectImages counts image XObjects across all pages
func detectImages(pdfReader *pdf.Reader) (bool, int) {
	imageCount := 0
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		imageCount += countImagesOnPage(pdfReader, pageNum)
	}
	return imageCount > 0, imageCount
}

func countImagesOnPage(pdfReader *pdf.Reader, pageNum int) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return 0
	}

	xObjects := page.V.Key("Resources").Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		if xObjects.Key(key).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
