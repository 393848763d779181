package pdf

import (
	"fmt"
	"os"
	"strings"
)

// Validator checks that files are readable PDFs within the size limit
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile validates a PDF on disk. Validation problems are reported in the
// result, not as an error.
func (v *Validator) ValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	result := &PDFValidateFileResult{
		Path:  req.Path,
		Valid: false,
	}

	if err := v.validatePDFFile(req.Path); err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation failure is part of the result
	}

	result.Valid = true
	result.Message = "PDF file is valid and readable"
	return result, nil
}

func (v *Validator) validatePDFFile(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("cannot read file: %w", err)
	}

	return v.ValidateDocument(Document{Name: fileInfo.Name(), Data: data})
}

// IsValidPDF performs a quick check to see if a file is a valid PDF
func (v *Validator) IsValidPDF(filePath string) bool {
	return v.validatePDFFile(filePath) == nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	return v.checkSize(filePath, fileInfo.Size())
}

// ValidateDocument checks an in-memory PDF: size, header and that the text reader can open it
func (v *Validator) ValidateDocument(doc Document) error {
	if err := v.checkSize(doc.Name, int64(len(doc.Data))); err != nil {
		return err
	}
	if !HasPDFHeader(doc.Data) {
		return fmt.Errorf("invalid PDF file: missing %%PDF header: %s", doc.Name)
	}
	if _, err := openReader(doc.Data); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}

// CheckSize enforces the configured size limit on an upload of any kind
func (v *Validator) CheckSize(name string, size int64) error {
	return v.checkSize(name, size)
}

func (v *Validator) checkSize(name string, size int64) error {
	if size == 0 {
		return fmt.Errorf("file is empty: %s", name)
	}
	if size > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", size, v.maxFileSize)
	}
	return nil
}
