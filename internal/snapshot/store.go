// Package snapshot holds the latest materialized task list for the active
// course and the session tying it to a feed subscription.
package snapshot

import (
	"sync"

	"github.com/studytrack/coursetasks/internal"
)

// Store mirrors the remote state of one course. It never patches records
// itself, Replace is the only mutator and fully overwrites the previous
// sequence.
type Store struct {
	mu      sync.RWMutex
	tasks   []internal.TaskRecord
	loading bool
}

// NewStore instantiates an empty store in the loading state, it stays there
// until the first Replace.
func NewStore() *Store {
	return &Store{
		loading: true,
	}
}

// Replace overwrites the snapshot wholesale. Called exclusively from the
// feed's update callback.
func (s *Store) Replace(tasks []internal.TaskRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = tasks
	s.loading = false
}

// Reset clears the snapshot and re-enters the loading state, used while
// switching courses.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.loading = true
}

// Tasks returns the current snapshot. Callers must not mutate the returned
// slice.
func (s *Store) Tasks() []internal.TaskRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tasks
}

// Loading indicates whether the first snapshot of the active course is still
// outstanding.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}
