package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/tools"
)

const (
	// multipart parts above this size spill to temp files
	multipartMemory = 32 << 20
	// a request may carry this many maximum-size files
	maxUploadFiles = 20
)

// readUpload decodes a multipart tool request: "files" (repeatable), an
// optional "options" JSON field and an optional "signature" file
func (a *api) readUpload(w http.ResponseWriter, r *http.Request) (tools.Request, error) {
	maxFile := a.service.GetMaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*maxUploadFiles+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tools.Request{}, badRequest("request exceeds %d bytes", tooLarge.Limit)
		}
		return tools.Request{}, badRequest("expected multipart/form-data: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	var req tools.Request
	for _, fh := range r.MultipartForm.File["files"] {
		doc, err := a.readPart(fh)
		if err != nil {
			return tools.Request{}, err
		}
		req.Files = append(req.Files, doc)
	}

	if sigs := r.MultipartForm.File["signature"]; len(sigs) > 0 {
		sig, err := a.readPart(sigs[0])
		if err != nil {
			return tools.Request{}, err
		}
		req.Signature = &sig
	}

	if opts := strings.TrimSpace(r.FormValue("options")); opts != "" {
		if !json.Valid([]byte(opts)) {
			return tools.Request{}, fmt.Errorf("%w: options is not valid JSON", pdf.ErrInvalidOptions)
		}
		req.Options = json.RawMessage(opts)
	}

	return req, nil
}

func (a *api) readPart(fh *multipart.FileHeader) (pdf.Document, error) {
	if fh.Size > a.service.GetMaxFileSize() {
		return pdf.Document{}, badRequest("%s exceeds the maximum file size of %d bytes", fh.Filename, a.service.GetMaxFileSize())
	}

	f, err := fh.Open()
	if err != nil {
		return pdf.Document{}, badRequest("cannot open %s: %v", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return pdf.Document{}, badRequest("cannot read %s: %v", fh.Filename, err)
	}

	doc := pdf.Document{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}
	if err := a.service.CheckUpload(doc); err != nil {
		return pdf.Document{}, badRequest("%v", err)
	}
	return doc, nil
}
