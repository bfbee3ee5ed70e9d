package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

const otelName = "github.com/studytrack/coursetasks/internal/service"

// TaskRepository defines the datastore handling persisting Task Records.
type TaskRepository interface {
	Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error)
	Delete(ctx context.Context, courseID, taskID string) (bool, error)
	Find(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error)
	Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) (internal.TaskRecord, error)
	CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error)
	Courses(ctx context.Context) ([]string, error)
}

// TaskSearchRepository defines the datastore handling searching Task Records.
type TaskSearchRepository interface {
	Search(ctx context.Context, args internal.SearchParams) (internal.SearchResults, error)
}

// TaskMessageBrokerRepository defines the broker propagating confirmed
// changes, every publication eventually triggers a feed push.
type TaskMessageBrokerRepository interface {
	Created(ctx context.Context, task internal.TaskRecord) error
	Deleted(ctx context.Context, courseID, taskID string) error
	Updated(ctx context.Context, task internal.TaskRecord) error
}

// Task is the mutation gateway: it validates intents and forwards them to
// the remote store. No local snapshot is touched here, viewers rely on the
// next feed push to observe the change.
type Task struct {
	logger    *zap.Logger
	repo      TaskRepository
	search    TaskSearchRepository
	msgBroker TaskMessageBrokerRepository
}

// NewTask instantiates the Task service.
func NewTask(logger *zap.Logger, repo TaskRepository, search TaskSearchRepository, msgBroker TaskMessageBrokerRepository) *Task {
	return &Task{
		logger:    logger,
		repo:      repo,
		search:    search,
		msgBroker: msgBroker,
	}
}

// Create validates the draft and stores a new record, status is forced to
// pending and a missing priority defaults to medium. The remote store stamps
// id and creation time.
func (t *Task) Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Create")
	defer span.End()

	if params.Priority == internal.PriorityUnknown {
		params.Priority = internal.PriorityMedium
	}

	if err := params.Validate(); err != nil {
		return internal.TaskRecord{}, fmt.Errorf("params validate: %w", err)
	}

	task, err := t.repo.Create(ctx, params)
	if err != nil {
		return internal.TaskRecord{}, fmt.Errorf("repo create: %w", err)
	}

	t.publish(ctx, t.msgBroker.Created, task)

	return task, nil
}

// Update validates the patch and forwards it as-is. A vanished target
// surfaces as a not-found remote error, it is not validated locally.
func (t *Task) Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Update")
	defer span.End()

	if err := params.Validate(); err != nil {
		return fmt.Errorf("params validate: %w", err)
	}

	task, err := t.repo.Update(ctx, courseID, taskID, params)
	if err != nil {
		return fmt.Errorf("repo update: %w", err)
	}

	t.publish(ctx, t.msgBroker.Updated, task)

	return nil
}

// ToggleStatus flips the caller-observed status via Update. This is a
// convenience composition, not a compare-and-swap: two viewers toggling from
// a stale status can race and the last write wins at the remote store.
func (t *Task) ToggleStatus(ctx context.Context, courseID, taskID string, current internal.Status) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.ToggleStatus")
	defer span.End()

	next := current.Toggle()

	if err := t.Update(ctx, courseID, taskID, internal.UpdateParams{Status: &next}); err != nil {
		return fmt.Errorf("toggle: %w", err)
	}

	return nil
}

// Delete removes an existing record. Deleting an already absent record is a
// no-op success by policy, not a user-visible error.
func (t *Task) Delete(ctx context.Context, courseID, taskID string) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Delete")
	defer span.End()

	found, err := t.repo.Delete(ctx, courseID, taskID)
	if err != nil {
		var ierr *internal.Error
		if errors.As(err, &ierr) && ierr.Code() == internal.ErrorCodeNotFound {
			return nil
		}

		return fmt.Errorf("repo delete: %w", err)
	}

	if found {
		if err := t.msgBroker.Deleted(ctx, courseID, taskID); err != nil {
			t.logger.Warn("broker deleted", zap.Error(err))
		}
	}

	return nil
}

// Task gets an existing record from the datastore.
func (t *Task) Task(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Task")
	defer span.End()

	task, err := t.repo.Find(ctx, courseID, taskID)
	if err != nil {
		return internal.TaskRecord{}, fmt.Errorf("repo find: %w", err)
	}

	return task, nil
}

// CourseTasks returns the complete ordered snapshot of one course, the same
// read the feed performs.
func (t *Task) CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.CourseTasks")
	defer span.End()

	tasks, err := t.repo.CourseTasks(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("repo course tasks: %w", err)
	}

	internal.OrderSnapshot(tasks)

	return tasks, nil
}

// Courses enumerates the course keys currently holding records.
func (t *Task) Courses(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Courses")
	defer span.End()

	res, err := t.repo.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo courses: %w", err)
	}

	return res, nil
}

// By searches indexed records matching the received values.
func (t *Task) By(ctx context.Context, args internal.SearchParams) (internal.SearchResults, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.By")
	defer span.End()

	res, err := t.search.Search(ctx, args)
	if err != nil {
		return internal.SearchResults{}, fmt.Errorf("search: %w", err)
	}

	return res, nil
}

// publish propagates a confirmed change. Failures are logged and swallowed,
// the next full snapshot read self-heals and the write already succeeded.
func (t *Task) publish(ctx context.Context, fn func(context.Context, internal.TaskRecord) error, task internal.TaskRecord) {
	if err := fn(ctx, task); err != nil {
		t.logger.Warn("broker publish", zap.String("task_id", task.ID), zap.Error(err))
	}
}
