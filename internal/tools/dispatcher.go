package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/metrics"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/convert"
	"github.com/a3tai/pdf-tools/internal/pdf/ocr"
	"github.com/a3tai/pdf-tools/internal/pdf/ops"
	"github.com/a3tai/pdf-tools/internal/pdf/raster"
	"github.com/a3tai/pdf-tools/internal/summarize"
)

// Request is the input of one tool run. Options is the tool's JSON options
// object; Signature is the image for sign-pdf.
type Request struct {
	Files     []pdf.Document
	Signature *pdf.Document
	Options   json.RawMessage
}

func (r Request) inputSize() int64 {
	var n int64
	for _, f := range r.Files {
		n += int64(len(f.Data))
	}
	if r.Signature != nil {
		n += int64(len(r.Signature.Data))
	}
	return n
}

// Dispatcher runs tools by slug
type Dispatcher struct {
	engine      ocr.Engine
	ocrLanguage string
}

// NewDispatcher creates a dispatcher. engine may be nil, in which case ocr-pdf fails.
func NewDispatcher(engine ocr.Engine, ocrLanguage string) *Dispatcher {
	if ocrLanguage == "" {
		ocrLanguage = "eng"
	}
	return &Dispatcher{engine: engine, ocrLanguage: ocrLanguage}
}

// Run resolves slug, validates the inputs against the catalog entry, decodes
// the options and runs the processing function. The blob comes back named
// after the tool's result template.
func (d *Dispatcher) Run(ctx context.Context, slug string, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	tool, err := BySlug(slug)
	if err != nil {
		return nil, err
	}
	run, ok := runners[slug]
	if !tool.Implemented || !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, slug)
	}
	if err := checkInputs(tool, req.Files); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	blob, err := run(ctx, d, req, progress)
	metrics.ObserveToolRun(slug, req.inputSize(), time.Since(start), err)
	if err != nil {
		logx.Log.Debug().Str("tool", slug).Err(err).Msg("tool run failed")
		return nil, err
	}

	blob.Name = resultName(tool, req.Files[0].Name, blob.ContentType)
	logx.Log.Debug().Str("tool", slug).Str("result", blob.Name).Int64("size", blob.Size()).
		Dur("took", time.Since(start)).Msg("tool run finished")
	return blob, nil
}

func checkInputs(tool Tool, files []pdf.Document) error {
	if len(files) == 0 {
		return pdf.ErrNoInput
	}
	if !tool.MultiFile && len(files) > 1 {
		return fmt.Errorf("%w: %s takes a single file, got %d", pdf.ErrInvalidOptions, tool.Slug, len(files))
	}
	for _, f := range files {
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: %s is empty", pdf.ErrNoInput, f.Name)
		}
		if kind := KindOf(f); !tool.Accepts(kind) {
			return fmt.Errorf("%w: %s accepts %s files, %q is not one", pdf.ErrInvalidOptions,
				tool.Slug, strings.Join(tool.Inputs, " or "), f.Name)
		}
	}
	return nil
}

// KindOf classifies a document by extension, falling back to its content
func KindOf(doc pdf.Document) string {
	if kind := pdf.InputKind(doc.Name); kind != "" {
		return kind
	}
	if doc.IsPDF() {
		return "pdf"
	}
	ct := doc.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(doc.Data)
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case strings.HasPrefix(ct, "text/html"):
		return "html"
	case strings.HasPrefix(ct, "text/markdown"):
		return "markdown"
	case strings.HasPrefix(ct, pdf.ContentTypeDOCX):
		return "docx"
	}
	return ""
}

// resultName applies the template and makes the extension agree with the content type
func resultName(tool Tool, input, contentType string) string {
	name := tool.ResultName(input)
	want := map[string]string{
		pdf.ContentTypePDF:  ".pdf",
		pdf.ContentTypeZIP:  ".zip",
		pdf.ContentTypeText: ".txt",
		pdf.ContentTypeDOCX: ".docx",
	}[contentType]
	if want != "" && !strings.EqualFold(filepath.Ext(name), want) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + want
	}
	return name
}

// decodeOptions overlays raw JSON on defaults. Unknown fields are rejected.
func decodeOptions[T any](raw json.RawMessage, defaults T) (T, error) {
	opts := defaults
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return opts, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return opts, fmt.Errorf("%w: %v", pdf.ErrInvalidOptions, err)
	}
	return opts, nil
}

type runner func(ctx context.Context, d *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error)

// noOptions rejects any options object with fields
type noOptions struct{}

type pageListOptions struct {
	Pages []int  `json:"pages,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

func (o pageListOptions) list() []int {
	if len(o.Pages) > 0 {
		return o.Pages
	}
	return ops.ParsePages(o.Expr)
}

type organizeOptions struct {
	Order []int  `json:"order,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

type unlockOptions struct {
	Password string `json:"password"`
}

type signOptions struct {
	ops.SignaturePlacement
	// data URL, used when no signature file is attached
	Signature string `json:"signature,omitempty"`
}

type annotateOptions struct {
	Annotations []ops.TextAnnotation `json:"annotations"`
}

// single wraps a runner for tools that take one file and no options
func single(fn func([]byte, pdf.ProgressFunc) (*pdf.Blob, error)) runner {
	return func(_ context.Context, _ *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		if _, err := decodeOptions(req.Options, noOptions{}); err != nil {
			return nil, err
		}
		return fn(req.Files[0].Data, progress)
	}
}

// withOptions wraps a runner for tools that take one file and typed options
func withOptions[T any](defaults func() T, fn func([]byte, T, pdf.ProgressFunc) (*pdf.Blob, error)) runner {
	return func(_ context.Context, _ *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		opts, err := decodeOptions(req.Options, defaults())
		if err != nil {
			return nil, err
		}
		return fn(req.Files[0].Data, opts, progress)
	}
}

func zero[T any]() T {
	var v T
	return v
}

func imagesToPDF(_ context.Context, _ *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	opts, err := decodeOptions(req.Options, ops.DefaultImageToPdfOptions())
	if err != nil {
		return nil, err
	}
	return ops.ImagesToPDF(req.Files, opts, progress)
}

var runners = map[string]runner{
	"merge-pdf": func(_ context.Context, _ *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		if _, err := decodeOptions(req.Options, noOptions{}); err != nil {
			return nil, err
		}
		files := make([][]byte, len(req.Files))
		for i, f := range req.Files {
			files[i] = f.Data
		}
		return ops.Merge(files, progress)
	},
	"split-pdf":    withOptions(zero[ops.SplitOptions], ops.Split),
	"compress-pdf": withOptions(zero[ops.CompressOptions], ops.Compress),
	"repair-pdf":   single(ops.Repair),
	"rotate-pdf": withOptions(func() ops.RotateOptions { return ops.RotateOptions{Angle: 90} }, ops.Rotate),
	"remove-pages": withOptions(zero[pageListOptions], func(data []byte, o pageListOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		return ops.RemovePages(data, o.list(), progress)
	}),
	"organize-pages": withOptions(zero[organizeOptions], func(data []byte, o organizeOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		order := o.Order
		if len(order) == 0 {
			order = ops.ParsePages(o.Expr)
		}
		return ops.Organize(data, order, progress)
	}),
	"add-watermark": withOptions(ops.DefaultWatermarkOptions, ops.Watermark),
	"page-numbers":  withOptions(ops.DefaultPageNumberOptions, ops.PageNumbers),
	"annotate-pdf": withOptions(zero[annotateOptions], func(data []byte, o annotateOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		return ops.Annotate(data, o.Annotations, progress)
	}),
	"sign-pdf": func(_ context.Context, _ *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		opts, err := decodeOptions(req.Options, signOptions{})
		if err != nil {
			return nil, err
		}
		var signature []byte
		switch {
		case req.Signature != nil && len(req.Signature.Data) > 0:
			signature = req.Signature.Data
		case opts.Signature != "":
			signature = []byte(opts.Signature)
		default:
			return nil, fmt.Errorf("%w: a signature image is required", pdf.ErrNoInput)
		}
		return ops.Sign(req.Files[0].Data, signature, opts.SignaturePlacement, progress)
	},
	"protect-pdf": withOptions(zero[ops.ProtectOptions], ops.Protect),
	"unlock-pdf": withOptions(zero[unlockOptions], func(data []byte, o unlockOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		return ops.Unlock(data, o.Password, progress)
	}),
	"jpg-to-pdf": imagesToPDF,
	"png-to-pdf": imagesToPDF,
	"pdf-to-jpg": withOptions(raster.DefaultToImagesOptions, raster.ToImages),
	"pdf-to-png": withOptions(func() raster.ToImagesOptions {
		o := raster.DefaultToImagesOptions()
		o.Format = raster.FormatPNG
		return o
	}, raster.ToImages),
	"pdf-to-text":     single(convert.ToText),
	"pdf-to-word":     single(convert.ToWord),
	"word-to-pdf":     single(convert.WordToPDF),
	"html-to-pdf":     single(convert.HTMLToPDF),
	"markdown-to-pdf": single(convert.MarkdownToPDF),
	"summarize-pdf":   single(summarize.PDF),
	"ocr-pdf": func(ctx context.Context, d *Dispatcher, req Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		if d.engine == nil {
			return nil, errors.New("no OCR engine configured")
		}
		opts, err := decodeOptions(req.Options, ocr.Options{Language: d.ocrLanguage})
		if err != nil {
			return nil, err
		}
		return ocr.Recognize(ctx, d.engine, req.Files[0], opts, progress)
	},
}
