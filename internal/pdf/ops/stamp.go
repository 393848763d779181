package ops

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// RGB is a colour with channels in [0,1]
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Hex renders the colour as #RRGGBB
func (c RGB) Hex() string {
	ch := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X", ch(c.R), ch(c.G), ch(c.B))
}

// Named watermark colours
var (
	ColorGray  = RGB{R: 0.5, G: 0.5, B: 0.5}
	ColorRed   = RGB{R: 0.8, G: 0.1, B: 0.1}
	ColorBlue  = RGB{R: 0.1, G: 0.1, B: 0.8}
	ColorBlack = RGB{}
)

// textStyle describes a text stamp in pdfcpu's watermark description syntax
type textStyle struct {
	font     string
	points   float64
	position string
	dx, dy   float64
	rotation float64
	opacity  float64
	color    RGB
}

func (s textStyle) desc() string {
	parts := []string{
		"fontname:" + s.font,
		fmt.Sprintf("points:%d", max(1, int(math.Round(s.points)))),
		"position:" + s.position,
		fmt.Sprintf("offset:%.2f %.2f", s.dx, s.dy),
		"scalefactor:1 abs",
		fmt.Sprintf("rotation:%.2f", s.rotation),
		fmt.Sprintf("opacity:%.2f", s.opacity),
		"fillcolor:" + s.color.Hex(),
	}
	return strings.Join(parts, ", ")
}

func textWatermark(text string, style textStyle) (*model.Watermark, error) {
	wm, err := api.TextWatermark(text, style.desc(), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("invalid stamp: %w", err)
	}
	return wm, nil
}

// stampText draws text on the selected pages. An empty selection means every page.
func stampText(data []byte, text string, style textStyle, pages []int) ([]byte, error) {
	wm, err := textWatermark(text, style)
	if err != nil {
		return nil, err
	}
	return applyStamp(data, wm, pages)
}

// stampPerPage applies a different set of stamps to each page in one read and write
func stampPerPage(data []byte, stamps map[int][]*model.Watermark) ([]byte, error) {
	conf := newConfig()
	return transform(data, "failed to stamp pages", func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarksSliceMap(rs, w, stamps, conf)
	})
}

func applyStamp(data []byte, wm *model.Watermark, pages []int) ([]byte, error) {
	var sel []string
	if len(pages) > 0 {
		sel = pageSelection(pages)
	}
	conf := newConfig()
	return transform(data, "failed to stamp pages", func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarks(rs, w, sel, wm, conf)
	})
}

// WatermarkOptions configures a diagonal text watermark
type WatermarkOptions struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
	Color    RGB     `json:"color"`
}

// DefaultWatermarkOptions returns the stock CONFIDENTIAL watermark
func DefaultWatermarkOptions() WatermarkOptions {
	return WatermarkOptions{
		Text:     "CONFIDENTIAL",
		FontSize: 60,
		Opacity:  0.15,
		Rotation: -45,
		Color:    ColorGray,
	}
}

// Watermark draws Helvetica-Bold text centred on every page
func Watermark(data []byte, opts WatermarkOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return nil, fmt.Errorf("%w: watermark text is empty", pdf.ErrInvalidOptions)
	}
	if opts.Opacity < 0 || opts.Opacity > 1 {
		return nil, fmt.Errorf("%w: opacity must be between 0 and 1", pdf.ErrInvalidOptions)
	}
	progress.Report(10)

	out, err := stampText(data, opts.Text, textStyle{
		font:     "Helvetica-Bold",
		points:   opts.FontSize,
		position: "c",
		rotation: opts.Rotation,
		opacity:  opts.Opacity,
		color:    opts.Color,
	}, nil)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// Page number formats
const (
	NumberFormatPlain  = "number"
	NumberFormatOfPage = "page-of-total"
)

const pageNumberMargin = 40

// anchors maps a page number position to a pdfcpu anchor and the margin offset direction
var anchors = map[string]struct {
	position string
	dx, dy   float64
}{
	"bottom-left":   {"bl", 1, 1},
	"bottom-center": {"bc", 0, 1},
	"bottom-right":  {"br", -1, 1},
	"top-left":      {"tl", 1, -1},
	"top-center":    {"tc", 0, -1},
	"top-right":     {"tr", -1, -1},
}

// PageNumberOptions configures page numbering
type PageNumberOptions struct {
	Position    string  `json:"position"`
	FontSize    float64 `json:"fontSize"`
	StartNumber int     `json:"startNumber"`
	Format      string  `json:"format"`
}

// DefaultPageNumberOptions numbers pages from 1 at the bottom centre
func DefaultPageNumberOptions() PageNumberOptions {
	return PageNumberOptions{
		Position:    "bottom-center",
		FontSize:    12,
		StartNumber: 1,
		Format:      NumberFormatPlain,
	}
}

// pageLabel renders the number drawn on page index i (0-based) of total
func (o PageNumberOptions) pageLabel(i, total int) string {
	n := o.StartNumber + i
	if o.Format == NumberFormatOfPage {
		return fmt.Sprintf("Page %d of %d", n, total+o.StartNumber-1)
	}
	return fmt.Sprintf("%d", n)
}

// PageNumbers stamps a grey Helvetica page number on every page, one label per
// page applied in a single pass
func PageNumbers(data []byte, opts PageNumberOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	anchor, ok := anchors[opts.Position]
	if !ok {
		return nil, fmt.Errorf("%w: unknown position %q", pdf.ErrInvalidOptions, opts.Position)
	}
	if opts.Format != NumberFormatPlain && opts.Format != NumberFormatOfPage {
		return nil, fmt.Errorf("%w: unknown format %q", pdf.ErrInvalidOptions, opts.Format)
	}

	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	style := textStyle{
		font:     "Helvetica",
		points:   opts.FontSize,
		position: anchor.position,
		dx:       anchor.dx * pageNumberMargin,
		dy:       anchor.dy * pageNumberMargin,
		opacity:  1,
		color:    RGB{R: 0.3, G: 0.3, B: 0.3},
	}

	labels := make(map[int]*model.Watermark, total)
	for i := 0; i < total; i++ {
		wm, err := textWatermark(opts.pageLabel(i, total), style)
		if err != nil {
			return nil, err
		}
		labels[i+1] = wm
		progress.Step(i+1, total, 0, 60)
	}

	conf := newConfig()
	out, err := transform(data, "failed to stamp page numbers", func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarksMap(rs, w, labels, conf)
	})
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// TextAnnotation is a line of text placed on a page. X and Y are in points
// from the left and top edges.
type TextAnnotation struct {
	Text     string  `json:"text"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
	Color    RGB     `json:"color"`
}

// Annotate draws each annotation as Helvetica text on its page. All stamps go
// into the document in a single pass.
func Annotate(data []byte, annotations []TextAnnotation, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	if len(annotations) == 0 {
		return nil, fmt.Errorf("%w: no annotations", pdf.ErrInvalidOptions)
	}

	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	for _, ann := range annotations {
		if ann.Page < 1 || ann.Page > total {
			return nil, fmt.Errorf("%w: page %d is outside the document (1-%d)", pdf.ErrInvalidOptions, ann.Page, total)
		}
	}
	progress.Report(30)

	stamps := make(map[int][]*model.Watermark)
	for i, ann := range annotations {
		if strings.TrimSpace(ann.Text) == "" {
			continue
		}
		fontSize := ann.FontSize
		if fontSize <= 0 {
			fontSize = 14
		}
		wm, err := textWatermark(ann.Text, textStyle{
			font:     "Helvetica",
			points:   fontSize,
			position: "tl",
			dx:       ann.X,
			dy:       -ann.Y,
			opacity:  1,
			color:    ann.Color,
		})
		if err != nil {
			return nil, err
		}
		stamps[ann.Page] = append(stamps[ann.Page], wm)
		progress.Step(i+1, len(annotations), 30, 90)
	}
	if len(stamps) == 0 {
		progress.Report(100)
		return pdf.NewPDFBlob(data), nil
	}

	out, err := stampPerPage(data, stamps)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}
