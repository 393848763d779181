package jobs

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	job     Job
	result  []byte
	expires time.Time
}

// MemoryStore keeps jobs in process. Entries expire ttl after their last write.
type MemoryStore struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	jobs map[string]*memoryEntry
	stop chan struct{}
	once sync.Once
}

// NewMemoryStore creates a store and starts its expiry sweep
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:  ttl,
		now:  time.Now,
		jobs: make(map[string]*memoryEntry),
		stop: make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval(ttl))
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}

func (s *MemoryStore) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.jobs {
		if now.After(e.expires) {
			delete(s.jobs, id)
		}
	}
}

// entry returns a live entry. Callers hold s.mu.
func (s *MemoryStore) entry(id string) (*memoryEntry, bool) {
	e, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expires) {
		delete(s.jobs, id)
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) Save(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entry(job.ID)
	if !ok {
		e = &memoryEntry{}
		s.jobs[job.ID] = e
	}
	e.job = job
	e.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entry(id)
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

func (s *MemoryStore) SaveResult(_ context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entry(id)
	if !ok {
		return ErrJobNotFound
	}
	e.result = data
	e.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Result(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	if e.result == nil {
		return nil, ErrResultNotReady
	}
	return e.result, nil
}

func (s *MemoryStore) DeleteResult(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entry(id); ok {
		e.result = nil
	}
	return nil
}

// Close stops the sweep
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
