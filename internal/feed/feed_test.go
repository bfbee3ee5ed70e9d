package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

type fakeReader struct {
	courseTasksFn func(ctx context.Context, courseID string) ([]internal.TaskRecord, error)
}

func (r *fakeReader) CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error) {
	return r.courseTasksFn(ctx, courseID)
}

type fakeSource struct {
	changesFn func(ctx context.Context, courseID string) (<-chan struct{}, error)
}

func (s *fakeSource) Changes(ctx context.Context, courseID string) (<-chan struct{}, error) {
	return s.changesFn(ctx, courseID)
}

type collector struct {
	mu        sync.Mutex
	snapshots [][]internal.TaskRecord
	errs      []error
	updated   chan struct{}
	failed    chan struct{}
}

func newCollector() *collector {
	return &collector{
		updated: make(chan struct{}, 16),
		failed:  make(chan struct{}, 16),
	}
}

func (c *collector) onUpdate(tasks []internal.TaskRecord) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, tasks)
	c.mu.Unlock()

	c.updated <- struct{}{}
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()

	c.failed <- struct{}{}
}

func (c *collector) snapshotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.snapshots)
}

func (c *collector) errCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.errs)
}

func waitFor(t *testing.T, ch chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSubscribe_InitialSnapshotBeforeReturn(t *testing.T) {
	reader := &fakeReader{
		courseTasksFn: func(_ context.Context, courseID string) ([]internal.TaskRecord, error) {
			return []internal.TaskRecord{{ID: "a", CourseID: courseID}}, nil
		},
	}
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return make(chan struct{}), nil
		},
	}

	c := newCollector()

	unsub, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err != nil {
		t.Fatalf("Subscribe() err=%v, want nil", err)
	}
	defer unsub()

	// The initial snapshot is delivered synchronously.
	if got := c.snapshotCount(); got != 1 {
		t.Fatalf("snapshots=%d, want 1 before any change signal", got)
	}
}

func TestSubscribe_PushPerChangeSignal(t *testing.T) {
	reader := &fakeReader{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			return nil, nil
		},
	}

	changes := make(chan struct{})
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return changes, nil
		},
	}

	c := newCollector()

	unsub, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err != nil {
		t.Fatalf("Subscribe() err=%v, want nil", err)
	}
	defer unsub()

	waitFor(t, c.updated, "initial snapshot")

	changes <- struct{}{}
	waitFor(t, c.updated, "snapshot after first signal")

	changes <- struct{}{}
	waitFor(t, c.updated, "snapshot after second signal")

	if got := c.snapshotCount(); got != 3 {
		t.Fatalf("snapshots=%d, want 3", got)
	}

	if got := c.errCount(); got != 0 {
		t.Fatalf("errors=%d, want 0", got)
	}
}

func TestSubscribe_SourceClosedFailsOnce(t *testing.T) {
	reader := &fakeReader{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			return nil, nil
		},
	}

	changes := make(chan struct{})
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return changes, nil
		},
	}

	c := newCollector()

	unsub, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err != nil {
		t.Fatalf("Subscribe() err=%v, want nil", err)
	}
	defer unsub()

	close(changes)
	waitFor(t, c.failed, "terminal error")

	if got := c.errCount(); got != 1 {
		t.Fatalf("errors=%d, want exactly 1", got)
	}

	var ierr *internal.Error
	c.mu.Lock()
	err = c.errs[0]
	c.mu.Unlock()

	if !errors.As(err, &ierr) || ierr.Code() != internal.ErrorCodeFeedClosed {
		t.Fatalf("onError err=%v, want code FeedClosed", err)
	}
}

func TestSubscribe_ReadErrorFailsSubscription(t *testing.T) {
	reads := 0

	reader := &fakeReader{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			reads++
			if reads == 1 {
				return nil, nil
			}

			return nil, errors.New("store down")
		},
	}

	changes := make(chan struct{})
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return changes, nil
		},
	}

	c := newCollector()

	unsub, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err != nil {
		t.Fatalf("Subscribe() err=%v, want nil", err)
	}
	defer unsub()

	changes <- struct{}{}
	waitFor(t, c.failed, "terminal error")

	if got := c.snapshotCount(); got != 1 {
		t.Fatalf("snapshots=%d, want only the initial one", got)
	}
}

func TestSubscribe_InitialReadErrorReturnsError(t *testing.T) {
	reader := &fakeReader{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			return nil, errors.New("store down")
		},
	}
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return make(chan struct{}), nil
		},
	}

	c := newCollector()

	_, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err == nil {
		t.Fatalf("Subscribe() err=nil, want initial read failure")
	}

	if got := c.snapshotCount(); got != 0 {
		t.Fatalf("snapshots=%d, want 0", got)
	}
}

func TestSubscribe_UnsubscribeStopsCallbacks(t *testing.T) {
	reader := &fakeReader{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			return nil, nil
		},
	}

	changes := make(chan struct{}, 1)
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return changes, nil
		},
	}

	c := newCollector()

	unsub, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err != nil {
		t.Fatalf("Subscribe() err=%v, want nil", err)
	}

	waitFor(t, c.updated, "initial snapshot")

	unsub()
	unsub() // idempotent

	// A close after unsubscribing must stay silent.
	close(changes)

	time.Sleep(50 * time.Millisecond)

	if got := c.errCount(); got != 0 {
		t.Fatalf("errors=%d, want 0 after unsubscribe", got)
	}
}

func TestSubscribe_SnapshotsAreOrdered(t *testing.T) {
	due := func(d int) *time.Time {
		v := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	reader := &fakeReader{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			return []internal.TaskRecord{
				{ID: "later", DueDate: due(9)},
				{ID: "sooner", DueDate: due(2)},
			}, nil
		},
	}
	source := &fakeSource{
		changesFn: func(context.Context, string) (<-chan struct{}, error) {
			return make(chan struct{}), nil
		},
	}

	c := newCollector()

	unsub, err := New(reader, source, zap.NewNop()).Subscribe(context.Background(), "cs335", c.onUpdate, c.onError)
	if err != nil {
		t.Fatalf("Subscribe() err=%v, want nil", err)
	}
	defer unsub()

	c.mu.Lock()
	snap := c.snapshots[0]
	c.mu.Unlock()

	if snap[0].ID != "sooner" || snap[1].ID != "later" {
		t.Fatalf("snapshot order=%v, want canonical due-date order", []string{snap[0].ID, snap[1].ID})
	}
}
