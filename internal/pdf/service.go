package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/pdf-tools/internal/pdf/security"
)

const outputDirPerm = 0o750

// Service handles file level work for the tools: path checks, loading inputs,
// writing results, and the read/validate/stats/search helpers.
type Service struct {
	maxFileSize     int64
	outputDirectory string
	reader          *Reader
	validator       *Validator
	stats           *Stats
	search          *Search
	info            *serverInfo
	pathValidator   *security.PathValidator
}

// NewService creates a new PDF service rooted at configuredDirectory. Results
// are written to outputDirectory.
func NewService(maxFileSize int64, configuredDirectory, outputDirectory string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	if outputDirectory == "" {
		outputDirectory = filepath.Join(configuredDirectory, "output")
	}

	s := &Service{
		maxFileSize:     maxFileSize,
		outputDirectory: outputDirectory,
		reader:          NewReader(maxFileSize),
		validator:       NewValidator(maxFileSize),
		stats:           NewStats(maxFileSize),
		search:          NewSearch(maxFileSize),
		pathValidator:   pathValidator,
	}
	s.info = newServerInfo(s)
	return s, nil
}

// PDFReadFile reads the content of a PDF file
func (s *Service) PDFReadFile(req PDFReadFileRequest) (*PDFReadFileResult, error) {
	path, err := s.pathValidator.SanitizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.reader.ReadFile(req)
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	path, err := s.pathValidator.SanitizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// PDFStatsFile returns detailed statistics about a single PDF file
func (s *Service) PDFStatsFile(req PDFStatsFileRequest) (*PDFStatsFileResult, error) {
	path, err := s.pathValidator.SanitizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.stats.GetFileStats(req)
}

// PDFSearchDirectory searches for input files in a directory
func (s *Service) PDFSearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.GetConfiguredDirectory()
	}

	dir, err := s.pathValidator.SanitizePath(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.pathValidator.ValidateDirectory(dir); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Directory = dir

	return s.search.SearchDirectory(req)
}

// PDFServerInfo returns server information, host capacity and a listing of the input directory
func (s *Service) PDFServerInfo(ctx context.Context, req PDFServerInfoRequest) *PDFServerInfoResult {
	return s.info.get(ctx, req)
}

// LoadDocument reads one input file from inside the configured directory
func (s *Service) LoadDocument(path string) (Document, error) {
	normalized, err := s.pathValidator.SanitizePath(path)
	if err != nil {
		return Document{}, fmt.Errorf("security validation failed: %w", err)
	}

	info, err := os.Stat(normalized)
	if os.IsNotExist(err) {
		return Document{}, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return Document{}, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if err := s.validator.CheckSize(path, info.Size()); err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(normalized)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read file: %w", err)
	}

	return Document{Name: info.Name(), Data: data}, nil
}

// LoadDocuments reads every path in order, failing on the first bad one
func (s *Service) LoadDocuments(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		doc, err := s.LoadDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CheckUpload applies the size limit to an uploaded document
func (s *Service) CheckUpload(doc Document) error {
	return s.validator.CheckSize(doc.Name, int64(len(doc.Data)))
}

// WriteOutput stores a result blob in the output directory and returns its path.
// Existing files are never overwritten; a numeric suffix is added instead.
func (s *Service) WriteOutput(blob *Blob) (string, error) {
	if blob == nil {
		return "", fmt.Errorf("nothing to write")
	}

	if err := os.MkdirAll(s.outputDirectory, outputDirPerm); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}

	name := filepath.Base(strings.ReplaceAll(blob.Name, "\x00", ""))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "result"
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	target := filepath.Join(s.outputDirectory, name)
	for i := 1; ; i++ {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			target = filepath.Join(s.outputDirectory, fmt.Sprintf("%s-%d%s", stem, i, ext))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("cannot create output file: %w", err)
		}
		if _, err := f.Write(blob.Data); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write output file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write output file: %w", err)
		}
		return target, nil
	}
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// ConfiguredDirectory returns the input root
func (s *Service) ConfiguredDirectory() string {
	return s.pathValidator.GetConfiguredDirectory()
}

// OutputDirectory returns where results are written
func (s *Service) OutputDirectory() string {
	return s.outputDirectory
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 {
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	return nil
}
