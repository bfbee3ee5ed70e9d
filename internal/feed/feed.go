// Package feed turns per-course change signals from the message broker into
// full-snapshot pushes: every confirmed mutation triggers a complete re-read
// of the course's task list, so subscribers always observe a consistent
// snapshot and out-of-order partial updates cannot corrupt local state.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/mercari/go-circuitbreaker"
	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

// SnapshotReader defines the datastore returning the complete ordered task
// list of one course.
type SnapshotReader interface {
	CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error)
}

// ChangeSource defines the broker subscription delivering one signal per
// server-confirmed change in a course. The channel closes when the source
// dies, consecutive signals may be coalesced.
type ChangeSource interface {
	Changes(ctx context.Context, courseID string) (<-chan struct{}, error)
}

// Feed adapts a ChangeSource plus a SnapshotReader into the subscription
// contract consumed by the snapshot layer.
type Feed struct {
	reader SnapshotReader
	source ChangeSource
	cb     *circuitbreaker.CircuitBreaker
	logger *zap.Logger
}

// New instantiates the Feed. Snapshot re-reads run behind a circuit breaker,
// a tripped breaker kills the affected subscriptions instead of hammering a
// failing store.
func New(reader SnapshotReader, source ChangeSource, logger *zap.Logger) *Feed {
	return &Feed{
		reader: reader,
		source: source,
		cb: circuitbreaker.New(
			circuitbreaker.WithTripFunc(circuitbreaker.NewTripFuncConsecutiveFailures(3)),
			circuitbreaker.WithOpenTimeout(10 * time.Second),
		),
		logger: logger,
	}
}

// Subscribe establishes the single feed for courseID. onUpdate receives the
// complete ordered snapshot once immediately and again after every change
// signal. onError is invoked at most once, after which the subscription is
// dead and must be re-established by the caller; no automatic retry happens
// here. The returned handle is idempotent and stops all further callbacks.
func (f *Feed) Subscribe(ctx context.Context, courseID string, onUpdate func([]internal.TaskRecord), onError func(error)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	changes, err := f.source.Changes(subCtx, courseID)
	if err != nil {
		cancel()

		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "source.Changes")
	}

	tasks, err := f.read(subCtx, courseID)
	if err != nil {
		cancel()

		return nil, err
	}

	onUpdate(tasks)

	go f.pump(subCtx, courseID, changes, onUpdate, onError)

	var once sync.Once

	return func() {
		once.Do(cancel)
	}, nil
}

func (f *Feed) pump(ctx context.Context, courseID string, changes <-chan struct{}, onUpdate func([]internal.TaskRecord), onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				f.fail(ctx, onError, internal.NewErrorf(internal.ErrorCodeFeedClosed, "change source closed"))

				return
			}

			tasks, err := f.read(ctx, courseID)
			if err != nil {
				f.fail(ctx, onError, err)

				return
			}

			select {
			case <-ctx.Done():
				return
			default:
			}

			onUpdate(tasks)
		}
	}
}

// fail surfaces the terminal error unless the subscription was already torn
// down, unsubscribed feeds stay silent.
func (f *Feed) fail(ctx context.Context, onError func(error), err error) {
	if ctx.Err() != nil {
		return
	}

	f.logger.Warn("feed terminated", zap.Error(err))

	onError(err)
}

func (f *Feed) read(ctx context.Context, courseID string) ([]internal.TaskRecord, error) {
	res, err := f.cb.Do(ctx, func() (interface{}, error) {
		return f.reader.CourseTasks(ctx, courseID)
	})
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "reader.CourseTasks")
	}

	tasks, _ := res.([]internal.TaskRecord)

	internal.OrderSnapshot(tasks)

	return tasks, nil
}
