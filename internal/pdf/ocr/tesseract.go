package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognizes text with a fresh gosseract client per image
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image
func (e *TesseractEngine) Recognize(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
