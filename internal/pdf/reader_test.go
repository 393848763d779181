package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-tools/internal/testutil"
)

const paragraph = "The quarterly report covers revenue, costs and the outlook for the next two quarters."

func TestReader_ReadFile(t *testing.T) {
	dir := t.TempDir()
	short := testutil.WriteFile(t, dir, "short.pdf", testutil.PDF(t, 2))
	long := testutil.WriteFile(t, dir, "long.pdf", testutil.PDFWithText(t, paragraph, paragraph))

	reader := NewReader(1024 * 1024)

	result, err := reader.ReadFile(PDFReadFileRequest{Path: short})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, short, result.Path)
	assert.Contains(t, result.Content, "--- Page 1 ---")
	assert.Contains(t, result.Content, "--- Page 2 ---")
	assert.Contains(t, result.Content, "Page 2 of 2")
	assert.Equal(t, "no_content", result.ContentType)
	assert.False(t, result.HasImages)

	result, err = reader.ReadFile(PDFReadFileRequest{Path: long})
	require.NoError(t, err)
	assert.Equal(t, "text", result.ContentType)
	assert.Contains(t, result.Content, "quarterly report")
}

func TestReader_ReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	txt := testutil.WriteFile(t, dir, "notes.txt", []byte("hello"))
	big := testutil.WriteFile(t, dir, "big.pdf", make([]byte, 2048))
	garbage := testutil.WriteFile(t, dir, "garbage.pdf", []byte("not a pdf at all"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0o755))

	reader := NewReader(1024)
	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty path", "", "path cannot be empty"},
		{"missing", filepath.Join(dir, "missing.pdf"), "does not exist"},
		{"directory", filepath.Join(dir, "folder.pdf"), "is a directory"},
		{"wrong extension", txt, "not a PDF"},
		{"too large", big, "file too large"},
		{"garbage", garbage, "failed to open PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.ReadFile(PDFReadFileRequest{Path: tt.path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReader_joinPagesTruncates(t *testing.T) {
	r := &Reader{maxTextSize: 30}
	out := r.joinPages([]string{strings.Repeat("a", 20), strings.Repeat("b", 20)})
	assert.Len(t, out, 30)
	assert.True(t, strings.HasPrefix(out, "--- Page 1 ---\naaaa"))

	r.maxTextSize = 1000
	assert.Equal(t, "--- Page 1 ---\none\n\n--- Page 2 ---\ntwo", r.joinPages([]string{"one", "two"}))
}

func TestClassifyContent(t *testing.T) {
	long := strings.Repeat("word ", 20)
	tests := []struct {
		name    string
		content string
		images  int
		want    string
	}{
		{"text only", "--- Page 1 ---\n" + long, 0, "text"},
		{"mixed", long, 2, "mixed"},
		{"scanned", "--- Page 1 ---\n\n\n--- Page 2 ---\n", 2, "scanned_images"},
		{"empty", "--- Page 1 ---\n", 0, "no_content"},
		{"headers do not count as text", strings.Repeat("--- Page 1 ---\n", 10), 0, "no_content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyContent(tt.content, tt.images))
		})
	}
}

func TestExtractPagesAndCount(t *testing.T) {
	data := testutil.PDF(t, 3)

	pages, err := ExtractPages(data)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Contains(t, pages[2], "Page 3 of 3")

	n, err := CountPages(data)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = ExtractPages(nil)
	assert.Error(t, err)
	_, err = CountPages([]byte("%PDF-1.7 truncated"))
	assert.Error(t, err)
}
