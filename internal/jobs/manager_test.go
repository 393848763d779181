package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/tools"
)

type runnerFunc func(ctx context.Context, slug string, req tools.Request, progress pdf.ProgressFunc) (*pdf.Blob, error)

func (f runnerFunc) Run(ctx context.Context, slug string, req tools.Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	return f(ctx, slug, req, progress)
}

func request() tools.Request {
	return tools.Request{Files: []pdf.Document{{Name: "a.pdf", Data: []byte("%PDF-1.4")}}}
}

func waitFinished(t *testing.T, ch <-chan Job) Job {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case job := <-ch:
			if job.Finished() {
				return job
			}
		case <-timeout:
			t.Fatal("job did not finish")
		}
	}
}

func newManager(t *testing.T, runner Runner, limit int) *Manager {
	t.Helper()
	m := NewManager(NewMemoryStore(time.Hour), runner, limit)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestSubmitSuccess(t *testing.T) {
	release := make(chan struct{})
	m := newManager(t, runnerFunc(func(_ context.Context, slug string, _ tools.Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		<-release
		progress(30)
		progress(20)
		progress(60)
		return &pdf.Blob{Name: "rotated-a.pdf", ContentType: pdf.ContentTypePDF, Data: []byte("out")}, nil
	}), 2)
	ctx := context.Background()

	job, err := m.Submit(ctx, "rotate-pdf", request())
	require.NoError(t, err)
	assert.Equal(t, StageProcessing, job.Stage)
	assert.Equal(t, 0, job.Progress)
	assert.NotEmpty(t, job.ID)

	_, err = m.Result(ctx, job.ID)
	assert.ErrorIs(t, err, ErrResultNotReady)

	updates, cancel, err := m.Subscribe(ctx, job.ID)
	require.NoError(t, err)
	defer cancel()
	close(release)

	var seen []int
	var final Job
	timeout := time.After(5 * time.Second)
	for final.ID == "" {
		select {
		case j := <-updates:
			seen = append(seen, j.Progress)
			if j.Finished() {
				final = j
			}
		case <-timeout:
			t.Fatal("job did not finish")
		}
	}

	assert.Equal(t, []int{0, 30, 60, 100}, seen)
	assert.Equal(t, StageDone, final.Stage)
	require.NotNil(t, final.Result)
	assert.Equal(t, "rotated-a.pdf", final.Result.Name)

	blob, err := m.Result(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "out", string(blob.Data))
	assert.Equal(t, pdf.ContentTypePDF, blob.ContentType)
}

func TestSubmitFailure(t *testing.T) {
	m := newManager(t, runnerFunc(func(_ context.Context, _ string, _ tools.Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		progress(40)
		return nil, errors.New("broken xref")
	}), 1)
	ctx := context.Background()

	job, err := m.Submit(ctx, "compress-pdf", request())
	require.NoError(t, err)
	updates, cancel, err := m.Subscribe(ctx, job.ID)
	require.NoError(t, err)
	defer cancel()

	final := waitFinished(t, updates)
	assert.Equal(t, StageError, final.Stage)
	assert.Equal(t, 0, final.Progress)
	assert.Equal(t, "broken xref", final.Error)

	_, err = m.Result(ctx, job.ID)
	assert.ErrorIs(t, err, ErrResultNotReady)
}

func TestSubmitRejects(t *testing.T) {
	m := newManager(t, runnerFunc(func(context.Context, string, tools.Request, pdf.ProgressFunc) (*pdf.Blob, error) {
		t.Fatal("runner should not be called")
		return nil, nil
	}), 1)
	ctx := context.Background()

	_, err := m.Submit(ctx, "no-such-tool", request())
	assert.ErrorIs(t, err, tools.ErrUnknownTool)

	_, err = m.Submit(ctx, "pdf-to-pptx", request())
	assert.ErrorIs(t, err, tools.ErrNotImplemented)

	_, err = m.Submit(ctx, "merge-pdf", tools.Request{})
	assert.ErrorIs(t, err, pdf.ErrNoInput)
}

func TestResetAbortsJob(t *testing.T) {
	started := make(chan struct{})
	exited := make(chan struct{})
	m := newManager(t, runnerFunc(func(ctx context.Context, _ string, _ tools.Request, progress pdf.ProgressFunc) (*pdf.Blob, error) {
		defer close(exited)
		close(started)
		<-ctx.Done()
		progress(90)
		return &pdf.Blob{Name: "late.pdf", Data: []byte("late")}, nil
	}), 1)
	ctx := context.Background()

	job, err := m.Submit(ctx, "split-pdf", request())
	require.NoError(t, err)
	<-started

	reset, err := m.Reset(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StageIdle, reset.Stage)

	<-exited
	m.wg.Wait()

	got, err := m.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StageIdle, got.Stage)
	assert.Equal(t, 0, got.Progress)
	assert.Nil(t, got.Result)

	_, err = m.Result(ctx, job.ID)
	assert.ErrorIs(t, err, ErrResultNotReady)
}

func TestConcurrencyLimit(t *testing.T) {
	var active, peak int32
	var mu sync.Mutex
	m := newManager(t, runnerFunc(func(context.Context, string, tools.Request, pdf.ProgressFunc) (*pdf.Blob, error) {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &pdf.Blob{Name: "x.pdf"}, nil
	}), 2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		job, err := m.Submit(ctx, "repair-pdf", request())
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}
	m.wg.Wait()

	mu.Lock()
	assert.LessOrEqual(t, peak, int32(2))
	mu.Unlock()
	for _, id := range ids {
		job, err := m.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StageDone, job.Stage)
	}
}

func TestGetUnknown(t *testing.T) {
	m := newManager(t, runnerFunc(nil), 1)
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, _, err = m.Subscribe(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = m.Reset(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	m := newManager(t, runnerFunc(func(ctx context.Context, _ string, _ tools.Request, _ pdf.ProgressFunc) (*pdf.Blob, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 1)
	ctx := context.Background()

	job, err := m.Submit(ctx, "rotate-pdf", request())
	require.NoError(t, err)
	ch, cancel, err := m.Subscribe(ctx, job.ID)
	require.NoError(t, err)

	<-ch
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}
