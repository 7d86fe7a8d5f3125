package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds in-flight and recently finished jobs in memory. Snapshots are
// value copies so concurrent polling never races the pipeline's mutations.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	clock func() time.Time
}

func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]*Job),
		clock: time.Now,
	}
}

// Create registers a new job in queued state and returns its snapshot.
func (s *Store) Create(filename, sourcePath string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	j := &Job{
		ID:         uuid.New().String(),
		Filename:   filename,
		SourcePath: sourcePath,
		State:      StateQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.jobs[j.ID] = j
	return j.clone()
}

// Snapshot returns a stable copy of the job's current state and artifacts.
func (s *Store) Snapshot(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j.clone(), nil
}

// Transition moves the job along the state machine, rejecting skips,
// reorders, and any exit from a terminal state.
func (s *Store) Transition(id string, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State.Terminal() {
		return fmt.Errorf("%w: %s", ErrAlreadyTerminal, j.State)
	}
	if !validTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, j.State, to)
	}
	j.State = to
	j.UpdatedAt = s.clock().UTC()
	return nil
}

// StoreTranscript records the transcription artifact. The transcript stays
// visible to pollers from this point on, also across a later failure.
func (s *Store) StoreTranscript(id string, t Transcript, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Transcript = &t
	j.Timings.TranscriptionMS = elapsed.Milliseconds()
	j.UpdatedAt = s.clock().UTC()
	return nil
}

// Complete stores the summary and moves the job to its terminal success
// state in one step.
func (s *Store) Complete(id string, summary StructuredSummary, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !validTransition(j.State, StateCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, j.State, StateCompleted)
	}
	now := s.clock().UTC()
	j.Summary = &summary
	j.Timings.SummarizationMS = elapsed.Milliseconds()
	j.Timings.TotalMS = now.Sub(j.CreatedAt).Milliseconds()
	j.State = StateCompleted
	j.UpdatedAt = now
	return nil
}

// Fail moves the job to its terminal failure state. Artifacts produced by
// earlier stages are retained.
func (s *Store) Fail(id string, code Code, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State.Terminal() {
		return fmt.Errorf("%w: %s", ErrAlreadyTerminal, j.State)
	}
	now := s.clock().UTC()
	j.State = StateFailed
	j.Failure = &Failure{Code: code, Message: message}
	j.Timings.TotalMS = now.Sub(j.CreatedAt).Milliseconds()
	j.UpdatedAt = now
	return nil
}

// Expired lists terminal jobs whose last update is older than the retention
// window. The caller reclaims their staged audio before removal.
func (s *Store) Expired(olderThan time.Duration) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.clock().UTC().Add(-olderThan)
	var out []Job
	for _, j := range s.jobs {
		if j.State.Terminal() && j.UpdatedAt.Before(cutoff) {
			out = append(out, j.clone())
		}
	}
	return out
}

// Remove drops a job record. Only terminal jobs may be removed.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !j.State.Terminal() {
		return fmt.Errorf("cannot remove job in state %s", j.State)
	}
	delete(s.jobs, id)
	return nil
}

// Len reports the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
