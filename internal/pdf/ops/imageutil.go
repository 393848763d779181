package ops

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeDataURL accepts raw image bytes or a base64 data URL
func decodeDataURL(data []byte) ([]byte, error) {
	s := string(bytes.TrimSpace(data))
	if !strings.HasPrefix(s, "data:") {
		return data, nil
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.Contains(s[:comma], ";base64") {
		return nil, fmt.Errorf("unsupported data URL")
	}
	decoded, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid data URL: %w", err)
	}
	return decoded, nil
}

// decodeImage decodes any registered format and reports the format name
func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// resize scales img to exactly w x h pixels
func resize(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// fitBox scales a w x h box into a boxW x boxH area keeping the aspect ratio
func fitBox(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	aspect := w / h
	if aspect > boxW/boxH {
		return boxW, boxW / aspect
	}
	return boxH * aspect, boxH
}
