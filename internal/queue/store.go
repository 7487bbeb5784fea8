package queue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Status is the lifecycle state of a stored job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is the stored form of an enqueued payload.
type Job struct {
	ID               string          `db:"id"`
	Name             string          `db:"name"`
	Payload          json.RawMessage `db:"payload"`
	Attempts         int             `db:"attempts"`
	MaxAttempts      int             `db:"max_attempts"`
	RemoveOnComplete bool            `db:"remove_on_complete"`
	Status           Status          `db:"status"`
	LastError        string          `db:"last_error"`
	CreatedAt        time.Time       `db:"created_at"`
}

// Store persists jobs across restarts.
type Store interface {
	// Save inserts or replaces a job.
	Save(ctx context.Context, job Job) error
	Delete(ctx context.Context, id string) error
	// Pending returns jobs that still need to run, oldest first.
	Pending(ctx context.Context) ([]Job, error)
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

// Save stores a copy of the job.
func (s *MemoryStore) Save(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// Delete forgets the job; unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

// Pending returns pending jobs, oldest first.
func (s *MemoryStore) Pending(context.Context) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.Status == StatusPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

// Get returns a stored job by id.
func (s *MemoryStore) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Len reports the number of stored jobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
