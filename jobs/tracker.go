package jobs

import "sync"

// Tracker applies the job state machine on top of a Store. Transitions
// are serialized so two concurrent uploads of the same file cannot both
// win the duplicate check.
type Tracker struct {
	mu    sync.Mutex
	store Store
}

func NewTracker(store Store) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{store: store}
}

// Accept registers a new upload attempt. It reports false when a
// non-terminal job for the identifier already exists, in which case the
// existing job is left untouched.
func (t *Tracker) Accept(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, _ := t.store.Get(id)
	next, ok := Next(current.Status, EventAccept)
	if !ok {
		return false
	}
	t.store.Set(id, Job{Status: next})
	return true
}

// Begin moves a job to processing. It reports false when the job is
// already processing, guarding against double execution.
func (t *Tracker) Begin(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, _ := t.store.Get(id)
	next, ok := Next(current.Status, EventStart)
	if !ok {
		return false
	}
	t.store.Set(id, Job{Status: next})
	return true
}

func (t *Tracker) Complete(id string, pages, chunks int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, _ := t.store.Get(id)
	next, ok := Next(current.Status, EventComplete)
	if !ok {
		return
	}
	t.store.Set(id, Job{Status: next, Pages: pages, Chunks: chunks})
}

func (t *Tracker) Fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, _ := t.store.Get(id)
	next, ok := Next(current.Status, EventFail)
	if !ok {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.store.Set(id, Job{Status: next, Error: msg})
}

func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.Remove(id)
}

func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.Clear()
}

// Status never fails: unknown identifiers come back as not_found.
func (t *Tracker) Status(id string) Job {
	job, ok := t.store.Get(id)
	if !ok {
		return Job{Status: StateNotFound}
	}
	return job
}

func (t *Tracker) All() map[string]Job {
	return t.store.List()
}
