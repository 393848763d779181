package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/a3tai/pdf-tools/internal/jobs"
	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/tools"
)

// errBadRequest marks malformed requests that never reached a tool
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logx.Log.Error().Err(err).Msg("write json response")
	}
}

// statusFor maps an error to an HTTP status. Errors without a sentinel come
// from processing the document and count as unprocessable input.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, pdf.ErrInvalidOptions),
		errors.Is(err, pdf.ErrNoInput):
		return http.StatusBadRequest
	case errors.Is(err, tools.ErrUnknownTool),
		errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrResultNotReady):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorStatus(w, statusFor(err), err)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeBlob sends a tool result as a download
func writeBlob(w http.ResponseWriter, blob *pdf.Blob) {
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": blob.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		logx.Log.Warn().Err(err).Str("name", blob.Name).Msg("write result")
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}
