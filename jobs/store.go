package jobs

import "sync"

// Job is the tracked record for one document identifier.
type Job struct {
	Status State  `json:"status"`
	Pages  int    `json:"pages"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

// Store abstracts the status map so the tracker can be backed by an
// in-memory map in tests and something durable elsewhere.
type Store interface {
	Get(id string) (Job, bool)
	Set(id string, job Job)
	Remove(id string)
	List() map[string]Job
	Clear()
}

type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *MemoryStore) Set(id string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = job
}

func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *MemoryStore) List() map[string]Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Job, len(s.jobs))
	for id, job := range s.jobs {
		out[id] = job
	}
	return out
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]Job)
}

var _ Store = (*MemoryStore)(nil)
