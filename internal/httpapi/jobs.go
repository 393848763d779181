package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/a3tai/pdf-tools/internal/jobs"
	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/tools"
)

const eventWriteTimeout = 10 * time.Second

func (a *api) submitJob(w http.ResponseWriter, r *http.Request) {
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

	job, err := a.jobs.Submit(r.Context(), slug, req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (a *api) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// resetJob aborts a running job and returns it to idle
func (a *api) resetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.jobs.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *api) jobResult(w http.ResponseWriter, r *http.Request) {
	blob, err := a.jobs.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeBlob(w, blob)
}

// jobEvents streams job states as JSON text messages until the job leaves
// the processing stage or the client goes away
func (a *api) jobEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	updates, cancel, err := a.jobs.Subscribe(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: a.origins})
	if err != nil {
		return
	}
	defer func() {
		_ = c.Close(websocket.StatusInternalError, "server error")
	}()

	// the client only listens, reads are drained to notice when it leaves
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(ctx, c, job); err != nil {
				logx.Log.Debug().Err(err).Str("job", id).Msg("job events write")
				return
			}
			if job.Stage != jobs.StageProcessing {
				_ = c.Close(websocket.StatusNormalClosure, string(job.Stage))
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, job jobs.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, b)
}
