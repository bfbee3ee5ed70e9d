package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

// --- fakes ---

type fakeRepo struct {
	createFn      func(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error)
	deleteFn      func(ctx context.Context, courseID, taskID string) (bool, error)
	findFn        func(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error)
	updateFn      func(ctx context.Context, courseID, taskID string, params internal.UpdateParams) (internal.TaskRecord, error)
	courseTasksFn func(ctx context.Context, courseID string) ([]internal.TaskRecord, error)
	coursesFn     func(ctx context.Context) ([]string, error)
}

func (r *fakeRepo) Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error) {
	return r.createFn(ctx, params)
}
func (r *fakeRepo) Delete(ctx context.Context, courseID, taskID string) (bool, error) {
	return r.deleteFn(ctx, courseID, taskID)
}
func (r *fakeRepo) Find(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error) {
	return r.findFn(ctx, courseID, taskID)
}
func (r *fakeRepo) Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) (internal.TaskRecord, error) {
	return r.updateFn(ctx, courseID, taskID, params)
}
func (r *fakeRepo) CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error) {
	return r.courseTasksFn(ctx, courseID)
}
func (r *fakeRepo) Courses(ctx context.Context) ([]string, error) {
	return r.coursesFn(ctx)
}

type fakeBroker struct {
	createdFn func(ctx context.Context, task internal.TaskRecord) error
	deletedFn func(ctx context.Context, courseID, taskID string) error
	updatedFn func(ctx context.Context, task internal.TaskRecord) error
}

func (b *fakeBroker) Created(ctx context.Context, task internal.TaskRecord) error {
	return b.createdFn(ctx, task)
}
func (b *fakeBroker) Deleted(ctx context.Context, courseID, taskID string) error {
	return b.deletedFn(ctx, courseID, taskID)
}
func (b *fakeBroker) Updated(ctx context.Context, task internal.TaskRecord) error {
	return b.updatedFn(ctx, task)
}

type fakeSearch struct {
	searchFn func(ctx context.Context, args internal.SearchParams) (internal.SearchResults, error)
}

func (s *fakeSearch) Search(ctx context.Context, args internal.SearchParams) (internal.SearchResults, error) {
	return s.searchFn(ctx, args)
}

func silentBroker() *fakeBroker {
	return &fakeBroker{
		createdFn: func(context.Context, internal.TaskRecord) error { return nil },
		deletedFn: func(context.Context, string, string) error { return nil },
		updatedFn: func(context.Context, internal.TaskRecord) error { return nil },
	}
}

// --- tests ---

func TestCreate_InvalidDraftNeverReachesRepo(t *testing.T) {
	repo := &fakeRepo{
		createFn: func(context.Context, internal.CreateParams) (internal.TaskRecord, error) {
			t.Fatalf("Create() should not be called on invalid input")
			return internal.TaskRecord{}, nil
		},
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, silentBroker())

	_, err := svc.Create(context.Background(), internal.CreateParams{CourseID: "cs335", Title: "   "})
	if err == nil {
		t.Fatalf("Create() err=nil, want validation failure")
	}

	var ierr *internal.Error
	if !errors.As(err, &ierr) || ierr.Code() != internal.ErrorCodeInvalidArgument {
		t.Fatalf("Create() err=%v, want code InvalidArgument", err)
	}
}

func TestCreate_DefaultsAndPublishes(t *testing.T) {
	var published *internal.TaskRecord

	repo := &fakeRepo{
		createFn: func(_ context.Context, params internal.CreateParams) (internal.TaskRecord, error) {
			if params.Priority != internal.PriorityMedium {
				t.Fatalf("Create(params.Priority)=%v, want medium default", params.Priority)
			}

			return internal.TaskRecord{
				ID:        "t1",
				CourseID:  params.CourseID,
				Title:     params.Title,
				Priority:  params.Priority,
				Status:    internal.StatusPending,
				CreatedAt: time.Now(),
			}, nil
		},
	}

	broker := silentBroker()
	broker.createdFn = func(_ context.Context, task internal.TaskRecord) error {
		published = &task
		return nil
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, broker)

	task, err := svc.Create(context.Background(), internal.CreateParams{CourseID: "cs335", Title: "read notes"})
	if err != nil {
		t.Fatalf("Create() err=%v, want nil", err)
	}

	if task.Status != internal.StatusPending {
		t.Fatalf("task.Status=%v, want pending", task.Status)
	}

	if published == nil || published.ID != "t1" {
		t.Fatalf("Created event not published for the stored record")
	}
}

func TestCreate_BrokerFailureNotSurfaced(t *testing.T) {
	repo := &fakeRepo{
		createFn: func(_ context.Context, params internal.CreateParams) (internal.TaskRecord, error) {
			return internal.TaskRecord{ID: "t1", CourseID: params.CourseID}, nil
		},
	}

	broker := silentBroker()
	broker.createdFn = func(context.Context, internal.TaskRecord) error {
		return errors.New("broker down")
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, broker)

	// The write succeeded, a lost event only delays the next push.
	if _, err := svc.Create(context.Background(), internal.CreateParams{CourseID: "cs335", Title: "read notes"}); err != nil {
		t.Fatalf("Create() err=%v, want nil despite broker failure", err)
	}
}

func TestToggleStatus_SendsInverse(t *testing.T) {
	var got *internal.Status

	repo := &fakeRepo{
		updateFn: func(_ context.Context, _, _ string, params internal.UpdateParams) (internal.TaskRecord, error) {
			got = params.Status
			return internal.TaskRecord{ID: "t1"}, nil
		},
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, silentBroker())

	if err := svc.ToggleStatus(context.Background(), "cs335", "t1", internal.StatusPending); err != nil {
		t.Fatalf("ToggleStatus() err=%v, want nil", err)
	}

	if got == nil || *got != internal.StatusDone {
		t.Fatalf("Update(params.Status)=%v, want done", got)
	}

	if err := svc.ToggleStatus(context.Background(), "cs335", "t1", internal.StatusDone); err != nil {
		t.Fatalf("ToggleStatus() err=%v, want nil", err)
	}

	if got == nil || *got != internal.StatusPending {
		t.Fatalf("Update(params.Status)=%v, want pending", got)
	}
}

func TestUpdate_PublishesUpdated(t *testing.T) {
	updatedPublished := false

	repo := &fakeRepo{
		updateFn: func(_ context.Context, courseID, taskID string, _ internal.UpdateParams) (internal.TaskRecord, error) {
			return internal.TaskRecord{ID: taskID, CourseID: courseID}, nil
		},
	}

	broker := silentBroker()
	broker.updatedFn = func(context.Context, internal.TaskRecord) error {
		updatedPublished = true
		return nil
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, broker)

	title := "renamed"
	if err := svc.Update(context.Background(), "cs335", "t1", internal.UpdateParams{Title: &title}); err != nil {
		t.Fatalf("Update() err=%v, want nil", err)
	}

	if !updatedPublished {
		t.Fatalf("Updated event not published")
	}
}

func TestDelete_AbsentIsNoOpSuccess(t *testing.T) {
	repo := &fakeRepo{
		deleteFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}

	broker := silentBroker()
	broker.deletedFn = func(context.Context, string, string) error {
		t.Fatalf("Deleted() should not be published for an absent record")
		return nil
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, broker)

	if err := svc.Delete(context.Background(), "cs335", "gone"); err != nil {
		t.Fatalf("Delete() err=%v, want nil for absent record", err)
	}
}

func TestDelete_NotFoundErrorIsNoOpSuccess(t *testing.T) {
	repo := &fakeRepo{
		deleteFn: func(context.Context, string, string) (bool, error) {
			return false, internal.NewErrorf(internal.ErrorCodeNotFound, "no row")
		},
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, silentBroker())

	if err := svc.Delete(context.Background(), "cs335", "gone"); err != nil {
		t.Fatalf("Delete() err=%v, want nil for not-found error", err)
	}
}

func TestDelete_FoundPublishes(t *testing.T) {
	var deletedCourse, deletedTask string

	repo := &fakeRepo{
		deleteFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}

	broker := silentBroker()
	broker.deletedFn = func(_ context.Context, courseID, taskID string) error {
		deletedCourse, deletedTask = courseID, taskID
		return nil
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, broker)

	if err := svc.Delete(context.Background(), "cs335", "t1"); err != nil {
		t.Fatalf("Delete() err=%v, want nil", err)
	}

	if deletedCourse != "cs335" || deletedTask != "t1" {
		t.Fatalf("Deleted(%q, %q), want (cs335, t1)", deletedCourse, deletedTask)
	}
}

func TestCourseTasks_CanonicalOrder(t *testing.T) {
	due := func(d int) *time.Time {
		v := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	repo := &fakeRepo{
		courseTasksFn: func(context.Context, string) ([]internal.TaskRecord, error) {
			return []internal.TaskRecord{
				{ID: "later", DueDate: due(9)},
				{ID: "undated"},
				{ID: "sooner", DueDate: due(2)},
			}, nil
		},
	}

	svc := NewTask(zap.NewNop(), repo, &fakeSearch{}, silentBroker())

	tasks, err := svc.CourseTasks(context.Background(), "cs335")
	if err != nil {
		t.Fatalf("CourseTasks() err=%v, want nil", err)
	}

	want := []string{"sooner", "later", "undated"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("tasks[%d].ID=%q, want %q", i, tasks[i].ID, id)
		}
	}
}

func TestBy_DelegatesToSearch(t *testing.T) {
	search := &fakeSearch{
		searchFn: func(_ context.Context, args internal.SearchParams) (internal.SearchResults, error) {
			if args.Title == nil || *args.Title != "essay" {
				t.Fatalf("Search(args.Title)=%v, want essay", args.Title)
			}

			return internal.SearchResults{Total: 1}, nil
		},
	}

	svc := NewTask(zap.NewNop(), &fakeRepo{}, search, silentBroker())

	title := "essay"
	res, err := svc.By(context.Background(), internal.SearchParams{Title: &title, Size: 10})
	if err != nil {
		t.Fatalf("By() err=%v, want nil", err)
	}

	if res.Total != 1 {
		t.Fatalf("res.Total=%d, want 1", res.Total)
	}
}
