package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/ocr"
	"github.com/a3tai/pdf-tools/internal/pdf/ops"
	"github.com/a3tai/pdf-tools/internal/testutil"
)

type stubEngine struct{ lang []string }

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(_ context.Context, in ocr.Input) (string, error) {
	s.lang = in.Languages
	return "recognized", nil
}

func pdfDoc(t *testing.T, name string, pages int) pdf.Document {
	return pdf.Document{Name: name, Data: testutil.PDF(t, pages)}
}

func TestRunErrors(t *testing.T) {
	d := NewDispatcher(nil, "")
	ctx := context.Background()

	tests := []struct {
		name    string
		slug    string
		req     Request
		wantErr error
	}{
		{"unknown", "shred-pdf", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1)}}, ErrUnknownTool},
		{"not implemented", "pdf-to-pptx", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1)}}, ErrNotImplemented},
		{"no input", "rotate-pdf", Request{}, pdf.ErrNoInput},
		{"single file tool", "rotate-pdf", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1), pdfDoc(t, "b.pdf", 1)}}, pdf.ErrInvalidOptions},
		{"wrong kind", "merge-pdf", Request{Files: []pdf.Document{{Name: "a.png", Data: testutil.PNG(t, 2, 2)}}}, pdf.ErrInvalidOptions},
		{"unknown option", "rotate-pdf", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1)}, Options: json.RawMessage(`{"angel": 90}`)}, pdf.ErrInvalidOptions},
		{"options on optionless tool", "pdf-to-text", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1)}, Options: json.RawMessage(`{"x": 1}`)}, pdf.ErrInvalidOptions},
		{"sign without image", "sign-pdf", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1)}}, pdf.ErrNoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Run(ctx, tt.slug, tt.req, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunMerge(t *testing.T) {
	d := NewDispatcher(nil, "eng")
	req := Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 2), pdfDoc(t, "b.pdf", 3)}}

	var last int
	blob, err := d.Run(context.Background(), "merge-pdf", req, func(p int) { last = p })
	require.NoError(t, err)

	assert.Equal(t, "merged.pdf", blob.Name)
	assert.Equal(t, 100, last)
	n, err := ops.PageCount(blob.Data)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRunRotateDefaultsAndNaming(t *testing.T) {
	d := NewDispatcher(nil, "eng")
	blob, err := d.Run(context.Background(), "rotate-pdf", Request{Files: []pdf.Document{pdfDoc(t, "scan.pdf", 2)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "rotated-scan.pdf", blob.Name)
	assert.Equal(t, pdf.ContentTypePDF, blob.ContentType)
}

func TestRunSplitBurstRenamesToZip(t *testing.T) {
	d := NewDispatcher(nil, "eng")
	req := Request{
		Files:   []pdf.Document{pdfDoc(t, "book.pdf", 3)},
		Options: json.RawMessage(`{"mode":"burst","expr":"1-2"}`),
	}
	blob, err := d.Run(context.Background(), "split-pdf", req, nil)
	require.NoError(t, err)

	assert.Equal(t, "split-book.zip", blob.Name)
	zr, err := zip.NewReader(bytes.NewReader(blob.Data), int64(len(blob.Data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestRunOCRUsesDefaultLanguage(t *testing.T) {
	engine := &stubEngine{}
	d := NewDispatcher(engine, "deu")
	req := Request{Files: []pdf.Document{{Name: "scan.png", Data: testutil.PNG(t, 8, 8)}}}

	blob, err := d.Run(context.Background(), "ocr-pdf", req, nil)
	require.NoError(t, err)
	assert.Equal(t, "scan-ocr.txt", blob.Name)
	assert.Equal(t, "recognized", string(blob.Data))
	assert.Equal(t, []string{"deu"}, engine.lang)
}

func TestRunOCRWithoutEngine(t *testing.T) {
	d := NewDispatcher(nil, "eng")
	req := Request{Files: []pdf.Document{{Name: "scan.png", Data: testutil.PNG(t, 8, 8)}}}
	_, err := d.Run(context.Background(), "ocr-pdf", req, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR engine")
}

func TestRunSignWithDataURL(t *testing.T) {
	d := NewDispatcher(nil, "eng")
	png := testutil.PNG(t, 40, 20)
	opts, err := json.Marshal(map[string]any{
		"page":      1,
		"signature": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
	require.NoError(t, err)

	blob, err := d.Run(context.Background(), "sign-pdf", Request{Files: []pdf.Document{pdfDoc(t, "c.pdf", 1)}, Options: opts}, nil)
	require.NoError(t, err)
	assert.Equal(t, "signed-c.pdf", blob.Name)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDispatcher(nil, "eng").Run(ctx, "rotate-pdf", Request{Files: []pdf.Document{pdfDoc(t, "a.pdf", 1)}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		doc  pdf.Document
		want string
	}{
		{pdf.Document{Name: "a.PDF"}, "pdf"},
		{pdf.Document{Name: "upload", Data: []byte("%PDF-1.7\n")}, "pdf"},
		{pdf.Document{Name: "upload", Data: testutil.PNG(t, 1, 1)}, "image"},
		{pdf.Document{Name: "page", Data: []byte("<!DOCTYPE html><html></html>")}, "html"},
		{pdf.Document{Name: "notes.md"}, "markdown"},
		{pdf.Document{Name: "blob", Data: []byte("plain")}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.doc), tt.doc.Name)
	}
}

func TestDecodeOptionsOverlaysDefaults(t *testing.T) {
	opts, err := decodeOptions(json.RawMessage(`{"text":"DRAFT"}`), ops.DefaultWatermarkOptions())
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", opts.Text)
	assert.Equal(t, ops.DefaultWatermarkOptions().Opacity, opts.Opacity)

	opts, err = decodeOptions(json.RawMessage(" null "), ops.DefaultWatermarkOptions())
	require.NoError(t, err)
	assert.Equal(t, ops.DefaultWatermarkOptions(), opts)

	_, err = decodeOptions(json.RawMessage(`[1]`), ops.DefaultWatermarkOptions())
	assert.ErrorIs(t, err, pdf.ErrInvalidOptions)
}
