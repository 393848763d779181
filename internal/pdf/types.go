package pdf

import (
	"path/filepath"
	"strings"
)

// Content types produced by the tools
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeZIP  = "application/zip"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Document is a single input file handed to a tool
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ext returns the lower-cased file extension of the document name without the dot
func (d Document) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name)), ".")
}

// IsPDF reports whether the document looks like a PDF by content type, name or magic bytes
func (d Document) IsPDF() bool {
	if d.ContentType == ContentTypePDF || d.Ext() == "pdf" {
		return true
	}
	return HasPDFHeader(d.Data)
}

// Blob is the downloadable result of a tool run
type Blob struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Size returns the payload size in bytes
func (b *Blob) Size() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Data))
}

// NewPDFBlob wraps PDF bytes into a blob
func NewPDFBlob(data []byte) *Blob {
	return &Blob{ContentType: ContentTypePDF, Data: data}
}

// ProgressFunc receives coarse completion percentages between 0 and 100
type ProgressFunc func(percent int)

// Report forwards percent to the callback, clamped to [0, 100]. A nil callback is a no-op.
func (p ProgressFunc) Report(percent int) {
	if p == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p(percent)
}

// Step reports done/total of the way between from and to, rounded to the nearest integer
func (p ProgressFunc) Step(done, total, from, to int) {
	if p == nil || total <= 0 {
		return
	}
	span := float64(to - from)
	p.Report(from + int(span*float64(done)/float64(total)+0.5))
}

// HasPDFHeader checks for the %PDF- magic within the first kilobyte
func HasPDFHeader(data []byte) bool {
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	return strings.Contains(string(data[:limit]), "%PDF-")
}

// FileInfo describes an input file found on disk
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// PDFReadFileRequest represents a request to read a PDF file
type PDFReadFileRequest struct {
	Path string `json:"path"`
}

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFStatsFileRequest represents a request to get stats about a PDF file
type PDFStatsFileRequest struct {
	Path string `json:"path"`
}

// PDFSearchDirectoryRequest represents a request to search for files in a directory
type PDFSearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// Response Types

// PDFReadFileResult represents the result of a PDF read operation
type PDFReadFileResult struct {
	Content string `json:"content"`
	Path    string `json:"path"`
	Pages   int    `json:"pages"`
	Size    int64  `json:"size"`
	// text, scanned_images, mixed or no_content
	ContentType string `json:"content_type"`
	HasImages   bool   `json:"has_images"`
	ImageCount  int    `json:"image_count"`
}

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Message string `json:"message,omitempty"`
}

// PDFStatsFileResult represents the result of a PDF file stats operation
type PDFStatsFileResult struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Pages        int    `json:"pages"`
	ModifiedDate string `json:"modified_date"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Producer     string `json:"producer,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Encrypted    bool   `json:"encrypted"`
}

// PDFSearchDirectoryResult represents the result of a search operation
type PDFSearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	OutputDirectory   string     `json:"output_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	UsageGuidance     string     `json:"usage_guidance"`
	Host              HostInfo   `json:"host"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// HostInfo is a small snapshot of the machine the server runs on
type HostInfo struct {
	CPUs            int    `json:"cpus"`
	MemoryTotal     uint64 `json:"memory_total"`
	MemoryAvailable uint64 `json:"memory_available"`
}
