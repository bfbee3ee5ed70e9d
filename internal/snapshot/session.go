package snapshot

import (
	"context"
	"sync"

	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/view"
)

// Subscriber defines the feed capability consumed by a Session.
type Subscriber interface {
	Subscribe(ctx context.Context, courseID string, onUpdate func([]internal.TaskRecord), onError func(error)) (func(), error)
}

// Session owns the exclusive subscription of one viewer: at most one course
// feed at a time, the local store it populates and the query shaping the
// derived view. All methods are safe for concurrent use, feed callbacks
// arrive from the consumer goroutine.
type Session struct {
	feed Subscriber

	mu       sync.Mutex
	store    *Store
	courseID string
	query    view.Query
	unsub    func()
	err      error

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// NewSession instantiates a Session without an active subscription.
func NewSession(feed Subscriber) *Session {
	return &Session{
		feed:     feed,
		store:    NewStore(),
		watchers: make(map[int]chan struct{}),
	}
}

// SwitchCourse tears down the previous subscription before establishing the
// new one, the store is reset to the loading state for the interim. Holding
// two subscriptions at once would let late callbacks of the old course
// overwrite the new snapshot.
func (s *Session) SwitchCourse(ctx context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}

	s.store.Reset()
	s.courseID = courseID
	s.err = nil

	unsub, err := s.feed.Subscribe(ctx, courseID,
		func(tasks []internal.TaskRecord) {
			s.store.Replace(tasks)
			s.notify()
		},
		func(err error) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.notify()
		},
	)
	if err != nil {
		return err
	}

	s.unsub = unsub

	return nil
}

// SetQuery merges the partial query change and wakes the watchers so they
// recompute their view.
func (s *Session) SetQuery(p view.Patch) {
	s.mu.Lock()
	s.query = s.query.Apply(p)
	s.mu.Unlock()

	s.notify()
}

// Query returns the active view query.
func (s *Session) Query() view.Query {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.query
}

// View computes the derived view of the current snapshot with the active
// query, plus the loading flag.
func (s *Session) View() (view.View, bool) {
	s.mu.Lock()
	q := s.query
	s.mu.Unlock()

	return view.ComputeView(s.store.Tasks(), q), s.store.Loading()
}

// Assignees enumerates the assignee values usable for filtering.
func (s *Session) Assignees() []string {
	return view.Assignees(s.store.Tasks())
}

// Err returns the terminal feed error, if any. A non-nil result means the
// subscription is dead and SwitchCourse must be called again.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Watch registers for change notifications until ctx is done. The channel
// has a one-slot buffer, bursts of updates coalesce.
func (s *Session) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()

		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}()

	return ch
}

// Close tears down the active subscription. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

func (s *Session) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
