package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-tools/internal/jobs"
	"github.com/a3tai/pdf-tools/internal/metrics"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/ops"
	"github.com/a3tai/pdf-tools/internal/testutil"
	"github.com/a3tai/pdf-tools/internal/tools"
)

type part struct {
	field string
	name  string
	data  []byte
}

func newTestAPI(t *testing.T, origins ...string) *httptest.Server {
	t.Helper()
	service, err := pdf.NewService(5*1024*1024, t.TempDir(), "")
	require.NoError(t, err)

	dispatcher := tools.NewDispatcher(nil, "eng")
	manager := jobs.NewManager(jobs.NewMemoryStore(time.Hour), dispatcher, 2)
	t.Cleanup(func() { _ = manager.Close() })

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	ts := httptest.NewServer(New(Deps{
		Service:        service,
		Dispatcher:     dispatcher,
		Jobs:           manager,
		MCP:            http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		Gatherer:       reg,
		AllowedOrigins: origins,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func multipartRequest(t *testing.T, url string, parts []part, options string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	if options != "" {
		require.NoError(t, mw.WriteField("options", options))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return do(t, req)
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Error
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pdftools_jobs_in_flight")

	resp, _ = get(t, ts.URL+"/mcp")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := get(t, ts.URL+"/api/tools?category=security")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Tools []tools.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.NotEmpty(t, list.Tools)
	for _, tool := range list.Tools {
		assert.Equal(t, "security", tool.Category)
	}

	resp, body = get(t, ts.URL+"/api/tools?q=nothing-matches-this")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"tools":[]}`, string(body))

	resp, body = get(t, ts.URL+"/api/tools/merge-pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tool tools.Tool
	require.NoError(t, json.Unmarshal(body, &tool))
	assert.Equal(t, "merge-pdf", tool.Slug)
	assert.True(t, tool.MultiFile)

	resp, body = get(t, ts.URL+"/api/tools/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, errorMessage(t, body), "nope")

	resp, body = get(t, ts.URL+"/api/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cats struct {
		Categories []tools.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(body, &cats))
	assert.Len(t, cats.Categories, len(tools.Categories()))
}

func TestRunToolMerge(t *testing.T) {
	ts := newTestAPI(t)

	req := multipartRequest(t, ts.URL+"/api/tools/merge-pdf", []part{
		{"files", "a.pdf", testutil.PDF(t, 2)},
		{"files", "b.pdf", testutil.PDF(t, 3)},
	}, "")
	resp, body := do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	assert.Equal(t, pdf.ContentTypePDF, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename=merged.pdf`)

	pages, err := ops.PageCount(body)
	require.NoError(t, err)
	assert.Equal(t, 5, pages)
}

func TestRunToolWithOptions(t *testing.T) {
	ts := newTestAPI(t)

	req := multipartRequest(t, ts.URL+"/api/tools/remove-pages", []part{
		{"files", "doc.pdf", testutil.PDF(t, 4)},
	}, `{"pages":[1,4]}`)
	resp, body := do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "trimmed-doc.pdf")

	pages, err := ops.PageCount(body)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestRunToolErrors(t *testing.T) {
	ts := newTestAPI(t)
	onePDF := []part{{"files", "doc.pdf", testutil.PDF(t, 1)}}

	tests := []struct {
		name    string
		slug    string
		parts   []part
		options string
		status  int
	}{
		{"unknown tool", "nope", onePDF, "", http.StatusNotFound},
		{"no files", "compress-pdf", nil, "", http.StatusBadRequest},
		{"options not json", "rotate-pdf", onePDF, "{angle", http.StatusBadRequest},
		{"unknown option", "rotate-pdf", onePDF, `{"spin":1}`, http.StatusBadRequest},
		{"bad angle", "rotate-pdf", onePDF, `{"angle":45}`, http.StatusBadRequest},
		{"not implemented", "pdf-to-pptx", onePDF, "", http.StatusUnprocessableEntity},
		{"empty file", "compress-pdf", []part{{"files", "empty.pdf", nil}}, "", http.StatusBadRequest},
		{"corrupt pdf", "compress-pdf", []part{{"files", "bad.pdf", []byte("%PDF-1.4 garbage")}}, "", http.StatusUnprocessableEntity},
		{"too many files", "rotate-pdf", append(onePDF, onePDF...), "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, multipartRequest(t, ts.URL+"/api/tools/"+tt.slug, tt.parts, tt.options))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.NotEmpty(t, errorMessage(t, body))
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/tools/compress-pdf", strings.NewReader("{}"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, body := do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	})
}

func TestPageCount(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := do(t, multipartRequest(t, ts.URL+"/api/page-count", []part{{"files", "doc.pdf", testutil.PDF(t, 3)}}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"pages":3}`, string(body))

	resp, _ = do(t, multipartRequest(t, ts.URL+"/api/page-count", []part{{"files", "photo.png", testutil.PNG(t, 2, 2)}}, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func submit(t *testing.T, ts *httptest.Server, slug string, parts []part, options string) jobs.Job {
	t.Helper()
	resp, body := do(t, multipartRequest(t, ts.URL+"/api/jobs/"+slug, parts, options))
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var job jobs.Job
	require.NoError(t, json.Unmarshal(body, &job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, "/api/jobs/"+job.ID, resp.Header.Get("Location"))
	assert.Equal(t, jobs.StageProcessing, job.Stage)
	return job
}

func TestJobLifecycle(t *testing.T) {
	ts := newTestAPI(t)
	job := submit(t, ts, "rotate-pdf", []part{{"files", "scan.pdf", testutil.PDF(t, 2)}}, `{"angle":180}`)

	var current jobs.Job
	require.Eventually(t, func() bool {
		resp, body := get(t, ts.URL+"/api/jobs/"+job.ID)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		current = jobs.Job{}
		return json.Unmarshal(body, &current) == nil && current.Finished()
	}, 10*time.Second, 20*time.Millisecond)

	require.Equal(t, jobs.StageDone, current.Stage, current.Error)
	assert.Equal(t, 100, current.Progress)
	require.NotNil(t, current.Result)
	assert.Equal(t, "rotated-scan.pdf", current.Result.Name)

	resp, body := get(t, ts.URL+"/api/jobs/"+job.ID+"/result")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, pdf.HasPDFHeader(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "rotated-scan.pdf")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/jobs/"+job.ID, nil)
	require.NoError(t, err)
	resp, body = do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reset jobs.Job
	require.NoError(t, json.Unmarshal(body, &reset))
	assert.Equal(t, jobs.StageIdle, reset.Stage)
	assert.Zero(t, reset.Progress)

	resp, body = get(t, ts.URL+"/api/jobs/"+job.ID+"/result")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
}

func TestJobErrors(t *testing.T) {
	ts := newTestAPI(t)

	resp, _ := get(t, ts.URL+"/api/jobs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/jobs/missing/result")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, multipartRequest(t, ts.URL+"/api/jobs/nope", []part{{"files", "a.pdf", testutil.PDF(t, 1)}}, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, multipartRequest(t, ts.URL+"/api/jobs/compress-pdf", nil, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	job := submit(t, ts, "compress-pdf", []part{{"files", "bad.pdf", []byte("%PDF-1.4 garbage")}}, "")
	require.Eventually(t, func() bool {
		_, body := get(t, ts.URL+"/api/jobs/"+job.ID)
		var j jobs.Job
		return json.Unmarshal(body, &j) == nil && j.Stage == jobs.StageError && j.Error != ""
	}, 10*time.Second, 20*time.Millisecond)
}

func TestJobEvents(t *testing.T) {
	ts := newTestAPI(t)
	job := submit(t, ts, "merge-pdf", []part{
		{"files", "a.pdf", testutil.PDF(t, 1)},
		{"files", "b.pdf", testutil.PDF(t, 1)},
	}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/jobs/" + job.ID + "/events"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer c.CloseNow()

	var states []jobs.Job
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err), err)
			break
		}
		var j jobs.Job
		require.NoError(t, json.Unmarshal(data, &j))
		states = append(states, j)
	}

	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.Equal(t, jobs.StageDone, last.Stage)
	assert.Equal(t, 100, last.Progress)
	for i := 1; i < len(states); i++ {
		assert.GreaterOrEqual(t, states[i].Progress, states[i-1].Progress)
	}

	_, _, err = websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/jobs/missing/events", nil)
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	ts := newTestAPI(t, "http://ui.test")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/tools", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, _ := do(t, req)
	assert.Equal(t, "http://ui.test", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/api/tools", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.test")
	resp, _ = do(t, req)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pdf.ErrInvalidOptions, http.StatusBadRequest},
		{pdf.ErrNoInput, http.StatusBadRequest},
		{badRequest("x"), http.StatusBadRequest},
		{tools.ErrUnknownTool, http.StatusNotFound},
		{jobs.ErrJobNotFound, http.StatusNotFound},
		{jobs.ErrResultNotReady, http.StatusConflict},
		{tools.ErrNotImplemented, http.StatusUnprocessableEntity},
		{pdf.ErrWrongPassword, http.StatusUnprocessableEntity},
		{io.ErrUnexpectedEOF, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
