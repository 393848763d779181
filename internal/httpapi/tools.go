package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/a3tai/pdf-tools/internal/pdf/ops"
	"github.com/a3tai/pdf-tools/internal/tools"
)

func (a *api) listTools(w http.ResponseWriter, r *http.Request) {
	found := tools.Filter(r.URL.Query().Get("q"), r.URL.Query().Get("category"))
	if found == nil {
		found = []tools.Tool{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": found})
}

func (a *api) getTool(w http.ResponseWriter, r *http.Request) {
	tool, err := tools.BySlug(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (a *api) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": tools.Categories()})
}

// runTool processes the upload synchronously and answers with the result file
func (a *api) runTool(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, err := tools.BySlug(slug); err != nil {
		writeError(w, err)
		return
	}

	req, err := a.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	blob, err := a.dispatcher.Run(r.Context(), slug, req, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBlob(w, blob)
}

func (a *api) pageCount(w http.ResponseWriter, r *http.Request) {
	req, err := a.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.Files) != 1 {
		writeError(w, badRequest("expected exactly one file"))
		return
	}
	if !req.Files[0].IsPDF() {
		writeError(w, badRequest("%s is not a PDF", req.Files[0].Name))
		return
	}

	pages, err := ops.PageCount(req.Files[0].Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pages": pages})
}
