package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// supportedInputs maps the file extensions the tools accept to an input kind
var supportedInputs = map[string]string{
	"pdf":      "pdf",
	"png":      "image",
	"jpg":      "image",
	"jpeg":     "image",
	"webp":     "image",
	"tif":      "image",
	"tiff":     "image",
	"bmp":      "image",
	"docx":     "docx",
	"html":     "html",
	"htm":      "html",
	"md":       "markdown",
	"markdown": "markdown",
}

// InputKind returns the input kind for a file name, or "" when the extension is not supported
func InputKind(name string) string {
	return supportedInputs[strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")]
}

// Search discovers input files below a directory
type Search struct {
	maxFileSize int64
}

// NewSearch creates a new search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		maxFileSize: maxFileSize,
	}
}

// SearchDirectory lists supported input files under req.Directory whose names match req.Query
func (s *Search) SearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	query := strings.ToLower(strings.TrimSpace(req.Query))

	files, absDirectory, err := s.walk(req.Directory, 0, func(name string) bool {
		return s.matchesQuery(name, query)
	})
	if err != nil {
		return nil, err
	}

	return &PDFSearchDirectoryResult{
		Files:       files,
		TotalCount:  len(files),
		Directory:   absDirectory,
		SearchQuery: req.Query,
	}, nil
}

// FindFilesLimited lists at most limit supported input files, skipping hidden directories
func (s *Search) FindFilesLimited(directory string, limit int) ([]FileInfo, error) {
	files, _, err := s.walk(directory, limit, func(string) bool { return true })
	return files, err
}

func (s *Search) walk(directory string, limit int, match func(name string) bool) ([]FileInfo, string, error) {
	if directory == "" {
		return nil, "", fmt.Errorf("directory cannot be empty")
	}

	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("directory does not exist: %s", directory)
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve directory path: %w", err)
	}

	files := []FileInfo{}
	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
				return filepath.SkipDir
			}
			return nil
		}

		// symlinks could point outside the searched tree
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if limit > 0 && len(files) >= limit {
			return filepath.SkipAll
		}

		kind := InputKind(d.Name())
		if kind == "" || !match(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() == 0 || info.Size() > s.maxFileSize {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Kind:         kind,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("error walking directory: %w", err)
	}

	return files, absDirectory, nil
}

// matchesQuery performs fuzzy matching on the filename
func (s *Search) matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	fileName := strings.ToLower(filename)
	if strings.Contains(fileName, query) {
		return true
	}

	// every query word must appear inside some filename word
	words := splitIntoWords(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return strings.ContainsRune(" _-.()[]", r)
	})
}
