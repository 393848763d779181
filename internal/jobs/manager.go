package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/metrics"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/tools"
)

// Runner executes one tool. *tools.Dispatcher implements it.
type Runner interface {
	Run(ctx context.Context, slug string, req tools.Request, progress pdf.ProgressFunc) (*pdf.Blob, error)
}

// subscriberBuffer is how many states a slow subscriber may lag behind
const subscriberBuffer = 16

// run is one attempt at a job. Reset replaces it so late updates from the
// cancelled attempt can be told apart and dropped.
type run struct {
	cancel context.CancelFunc
}

// Manager submits jobs, tracks their state in a Store and fans updates out to subscribers
type Manager struct {
	store  Store
	runner Runner
	sem    chan struct{}
	now    func() time.Time

	mu      sync.Mutex
	running map[string]*run
	subs    map[string]map[chan Job]struct{}

	wg sync.WaitGroup
}

// NewManager creates a manager running at most maxConcurrent jobs at a time
func NewManager(store Store, runner Runner, maxConcurrent int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Manager{
		store:   store,
		runner:  runner,
		sem:     make(chan struct{}, maxConcurrent),
		now:     time.Now,
		running: make(map[string]*run),
		subs:    make(map[string]map[chan Job]struct{}),
	}
}

// Submit stores a new job in the processing stage and runs it in the background
func (m *Manager) Submit(ctx context.Context, slug string, req tools.Request) (Job, error) {
	tool, err := tools.BySlug(slug)
	if err != nil {
		return Job{}, err
	}
	if !tool.Implemented {
		return Job{}, fmt.Errorf("%w: %s", tools.ErrNotImplemented, slug)
	}
	if len(req.Files) == 0 {
		return Job{}, pdf.ErrNoInput
	}

	now := m.now()
	job := Job{
		ID:        uuid.NewString(),
		Tool:      slug,
		Stage:     StageProcessing,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, job); err != nil {
		return Job{}, fmt.Errorf("failed to store job: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel}
	m.mu.Lock()
	m.running[job.ID] = r
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(runCtx, r, job.ID, slug, req)

	logx.Log.Info().Str("job", job.ID).Str("tool", slug).Int("files", len(req.Files)).Msg("job submitted")
	return job, nil
}

func (m *Manager) execute(ctx context.Context, r *run, id, slug string, req tools.Request) {
	defer m.wg.Done()
	defer r.cancel()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-m.sem }()

	metrics.JobStarted()
	defer metrics.JobFinished()

	blob, err := m.runner.Run(ctx, slug, req, func(p int) {
		m.update(r, id, func(j *Job) bool {
			if p <= j.Progress || p >= 100 {
				return false
			}
			j.Progress = p
			return true
		})
	})

	m.update(r, id, func(j *Job) bool {
		if err == nil {
			if serr := m.store.SaveResult(context.Background(), id, blob.Data); serr != nil {
				err = fmt.Errorf("failed to store result: %w", serr)
			}
		}
		if err != nil {
			j.Stage = StageError
			j.Progress = 0
			j.Error = err.Error()
			return true
		}
		j.Stage = StageDone
		j.Progress = 100
		j.Result = &pdf.Blob{Name: blob.Name, ContentType: blob.ContentType}
		return true
	})

	m.mu.Lock()
	if m.running[id] == r {
		delete(m.running, id)
	}
	m.mu.Unlock()

	ev := logx.Log.Info()
	if err != nil {
		ev = logx.Log.Warn().Err(err)
	}
	ev.Str("job", id).Str("tool", slug).Msg("job finished")
}

// update applies fn to the stored job when r is still the live attempt and
// publishes the new state if fn reports a change
func (m *Manager) update(r *run, id string, fn func(*Job) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r != nil && m.running[id] != r {
		return
	}
	ctx := context.Background()
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return
	}
	if !fn(&job) {
		return
	}
	job.UpdatedAt = m.now()
	if err := m.store.Save(ctx, job); err != nil {
		logx.Log.Warn().Err(err).Str("job", id).Msg("failed to save job state")
		return
	}
	m.publishLocked(job)
}

// Get returns the current state of a job
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	return m.store.Get(ctx, id)
}

// Result returns the blob of a finished job. It fails with ErrResultNotReady
// unless the job is done.
func (m *Manager) Result(ctx context.Context, id string) (*pdf.Blob, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Stage != StageDone || job.Result == nil {
		return nil, ErrResultNotReady
	}
	data, err := m.store.Result(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pdf.Blob{Name: job.Result.Name, ContentType: job.Result.ContentType, Data: data}, nil
}

// Reset aborts a job. Its context is cancelled, later progress and completion
// are ignored and the job returns to idle with no result.
func (m *Manager) Reset(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, err := m.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if r, ok := m.running[id]; ok {
		r.cancel()
		delete(m.running, id)
	}

	job.Stage = StageIdle
	job.Progress = 0
	job.Error = ""
	job.Result = nil
	job.UpdatedAt = m.now()
	if err := m.store.DeleteResult(ctx, id); err != nil {
		return Job{}, err
	}
	if err := m.store.Save(ctx, job); err != nil {
		return Job{}, err
	}
	m.publishLocked(job)
	return job, nil
}

// Subscribe streams every state change of a job, starting with its current
// state. The channel closes when cancel is called.
func (m *Manager) Subscribe(ctx context.Context, id string) (<-chan Job, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Job, subscriberBuffer)
	ch <- job
	if m.subs[id] == nil {
		m.subs[id] = make(map[chan Job]struct{})
	}
	m.subs[id][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[id], ch)
			if len(m.subs[id]) == 0 {
				delete(m.subs, id)
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}

// publishLocked delivers job to subscribers, dropping the oldest queued
// state of any subscriber that has fallen behind. Callers hold m.mu.
func (m *Manager) publishLocked(job Job) {
	for ch := range m.subs[job.ID] {
		select {
		case ch <- job:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- job:
		default:
		}
	}
}

// Close cancels running jobs and waits for them to stop
func (m *Manager) Close() error {
	m.mu.Lock()
	for id, r := range m.running {
		r.cancel()
		delete(m.running, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
	return m.store.Close()
}
