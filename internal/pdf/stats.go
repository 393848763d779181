package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Stats reports page counts and document info of PDF files
type Stats struct {
	maxFileSize int64
	validator   *Validator
}

// NewStats creates a new PDF stats analyzer with the specified constraints
func NewStats(maxFileSize int64) *Stats {
	return &Stats{
		maxFileSize: maxFileSize,
		validator:   NewValidator(maxFileSize),
	}
}

// GetFileStats returns size, page count and info dictionary entries for a PDF.
// Password protected files are reported as encrypted with no page count.
func (s *Stats) GetFileStats(req PDFStatsFileRequest) (*PDFStatsFileResult, error) {
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

	if err := s.validator.ValidateFileInfo(req.Path, fileInfo); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	result := &PDFStatsFileResult{
		Path:         req.Path,
		Size:         fileInfo.Size(),
		ModifiedDate: fileInfo.ModTime().Format("2006-01-02 15:04:05"),
	}

	r, err := openReader(data)
	if errors.Is(err, pdf.ErrInvalidPassword) {
		result.Encrypted = true
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	result.Pages = r.NumPage()
	result.Encrypted = !r.Trailer().Key("Encrypt").IsNull()
	s.extractMetadata(r, result)

	return result, nil
}

// extractMetadata copies the info dictionary entries that are present
func (s *Stats) extractMetadata(r *pdf.Reader, result *PDFStatsFileResult) {
	defer func() {
		// a broken info dictionary still leaves the basic stats usable
		_ = recover()
	}()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}

	fields := map[string]*string{
		"Title":    &result.Title,
		"Author":   &result.Author,
		"Subject":  &result.Subject,
		"Producer": &result.Producer,
		"Creator":  &result.Creator,
	}
	for key, dst := range fields {
		if v := info.Key(key); !v.IsNull() {
			*dst = strings.TrimSpace(v.Text())
		}
	}
}
