package memcached

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

// TaskStore defines the datastore being decorated.
type TaskStore interface {
	Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error)
	Delete(ctx context.Context, courseID, taskID string) (bool, error)
	Find(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error)
	Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) (internal.TaskRecord, error)
	CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error)
	Courses(ctx context.Context) ([]string, error)
}

// Task decorates a TaskStore with cache-aside course snapshots. Every local
// write invalidates the course's snapshot key; the short expiration bounds
// staleness from writers on other nodes between their event and our re-read.
type Task struct {
	client     *memcache.Client
	orig       TaskStore
	expiration time.Duration
	logger     *zap.Logger
}

// NewTask instantiates the decorated repository.
func NewTask(client *memcache.Client, orig TaskStore, logger *zap.Logger) *Task {
	return &Task{
		client:     client,
		orig:       orig,
		expiration: 30 * time.Second,
		logger:     logger,
	}
}

// Create delegates and invalidates the course snapshot.
func (t *Task) Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.Create").End()

	task, err := t.orig.Create(ctx, params)
	if err != nil {
		return internal.TaskRecord{}, err
	}

	deleteSnapshot(ctx, t.client, snapshotKey(params.CourseID))

	return task, nil
}

// Delete delegates and invalidates the course snapshot.
func (t *Task) Delete(ctx context.Context, courseID, taskID string) (bool, error) {
	defer newOTELSpan(ctx, "Task.Delete").End()

	found, err := t.orig.Delete(ctx, courseID, taskID)
	if err != nil {
		return false, err
	}

	if found {
		deleteSnapshot(ctx, t.client, snapshotKey(courseID))
	}

	return found, nil
}

// Find delegates, single records are not cached.
func (t *Task) Find(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.Find").End()

	return t.orig.Find(ctx, courseID, taskID)
}

// Update delegates and invalidates the course snapshot.
func (t *Task) Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) (internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.Update").End()

	task, err := t.orig.Update(ctx, courseID, taskID, params)
	if err != nil {
		return internal.TaskRecord{}, err
	}

	deleteSnapshot(ctx, t.client, snapshotKey(courseID))

	return task, nil
}

// CourseTasks returns the cached snapshot when present, otherwise reads
// through and caches the result.
func (t *Task) CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.CourseTasks").End()

	var res []internal.TaskRecord

	if err := getSnapshot(ctx, t.client, snapshotKey(courseID), &res); err == nil {
		return res, nil
	}

	t.logger.Debug("snapshot cache miss", zap.String("course_id", courseID))

	res, err := t.orig.CourseTasks(ctx, courseID)
	if err != nil {
		return nil, err
	}

	setSnapshot(ctx, t.client, snapshotKey(courseID), res, t.expiration)

	return res, nil
}

// Courses delegates, the course enumeration is cheap and rarely requested.
func (t *Task) Courses(ctx context.Context) ([]string, error) {
	defer newOTELSpan(ctx, "Task.Courses").End()

	return t.orig.Courses(ctx)
}

func snapshotKey(courseID string) string {
	return "tasks:" + courseID
}
