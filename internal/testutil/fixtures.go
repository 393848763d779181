// Package testutil builds small documents in memory for tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

// PDF returns an A4 document with one line of text per page, "Page n of total"
func PDF(t testing.TB, pages int) []byte {
	t.Helper()
	texts := make([]string, pages)
	for i := range texts {
		texts[i] = fmt.Sprintf("Page %d of %d", i+1, pages)
	}
	return PDFWithText(t, texts...)
}

// PDFWithText returns a document with one page per string
func PDFWithText(t testing.TB, pages ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		doc.SetXY(56, 72)
		doc.MultiCell(480, 16, text, "", "L", false)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// Image returns a solid w x h image with a dark diagonal
func Image(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 220, B: 240, A: 255})
		}
	}
	for i := 0; i < min(w, h); i++ {
		img.Set(i, i, color.Black)
	}
	return img
}

// PNG encodes Image(w, h) as PNG
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, Image(w, h)))
	return buf.Bytes()
}

// JPEG encodes Image(w, h) as JPEG
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, Image(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// WriteFile writes data under dir and returns the full path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
