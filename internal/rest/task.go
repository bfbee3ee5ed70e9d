package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/view"
)

const dateLayout = "2006-01-02"

// TaskService defines the mutation gateway and read surface consumed by the
// handlers.
type TaskService interface {
	By(ctx context.Context, args internal.SearchParams) (internal.SearchResults, error)
	Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error)
	Delete(ctx context.Context, courseID, taskID string) error
	Task(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error)
	ToggleStatus(ctx context.Context, courseID, taskID string, current internal.Status) error
	Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) error
	CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error)
	Courses(ctx context.Context) ([]string, error)
}

// TaskHandler exposes the task collection over HTTP.
type TaskHandler struct {
	svc TaskService
}

// NewTaskHandler instantiates the handler.
func NewTaskHandler(svc TaskService) *TaskHandler {
	return &TaskHandler{
		svc: svc,
	}
}

// Register connects the handlers to the router.
func (t *TaskHandler) Register(r chi.Router) {
	r.Get("/courses", t.courses)
	r.Get("/search", t.search)
	r.Post("/tasks/validate", t.validateField)

	r.Route("/courses/{courseID}/tasks", func(r chi.Router) {
		r.Get("/", t.list)
		r.Post("/", t.create)
		r.Put("/{taskID}", t.update)
		r.Delete("/{taskID}", t.delete)
		r.Post("/{taskID}/toggle", t.toggle)
	})
}

// Task is an activity tracked for one course.
type Task struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	DueDate     *string   `json:"due_date"`
	AssignedTo  string    `json:"assigned_to"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTask converts a domain record for rendering.
func NewTask(rec internal.TaskRecord) Task {
	res := Task{
		ID:          rec.ID,
		CourseID:    rec.CourseID,
		Title:       rec.Title,
		Description: rec.Description,
		Priority:    rec.Priority.String(),
		Status:      string(rec.Status),
		AssignedTo:  rec.AssignedTo,
		CreatedAt:   rec.CreatedAt,
	}

	if rec.DueDate != nil {
		due := rec.DueDate.Format(dateLayout)
		res.DueDate = &due
	}

	return res
}

func newTasks(recs []internal.TaskRecord) []Task {
	res := make([]Task, len(recs))
	for i, rec := range recs {
		res[i] = NewTask(rec)
	}

	return res
}

// CreateTaskRequest defines the request used for creating tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	AssignedTo  string `json:"assigned_to"`
}

// CreateTaskResponse defines the response returned back after creating a
// task.
type CreateTaskResponse struct {
	Task Task `json:"task"`
}

func (t *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid due date", err)
		return
	}

	task, err := t.svc.Create(r.Context(), internal.CreateParams{
		CourseID:    chi.URLParam(r, "courseID"),
		Title:       req.Title,
		Description: req.Description,
		Priority:    internal.ParsePriority(req.Priority),
		DueDate:     due,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		renderErrorResponse(r.Context(), w, "create failed", err)
		return
	}

	renderResponse(w, &CreateTaskResponse{Task: NewTask(task)}, http.StatusCreated)
}

// UpdateTaskRequest defines the partial patch forwarded to the remote
// store, absent fields stay untouched.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	DueDate     *string `json:"due_date"`
	AssignedTo  *string `json:"assigned_to"`
}

func (t *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	params := internal.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
	}

	if req.Priority != nil {
		p := internal.ParsePriority(*req.Priority)
		params.Priority = &p
	}

	if req.Status != nil {
		s := internal.ParseStatus(*req.Status)
		params.Status = &s
	}

	if req.AssignedTo != nil {
		params.AssignedTo = req.AssignedTo
	}

	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			renderErrorResponse(r.Context(), w, "invalid due date", err)
			return
		}

		params.DueDate = due
	}

	courseID := chi.URLParam(r, "courseID")
	taskID := chi.URLParam(r, "taskID")

	if err := t.svc.Update(r.Context(), courseID, taskID, params); err != nil {
		renderErrorResponse(r.Context(), w, "update failed", err)
		return
	}

	renderResponse(w, struct{}{}, http.StatusOK)
}

// ToggleTaskRequest carries the status the caller last observed, the new
// status is its inverse. Not a compare-and-swap, see the service.
type ToggleTaskRequest struct {
	CurrentStatus string `json:"current_status"`
}

func (t *TaskHandler) toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	courseID := chi.URLParam(r, "courseID")
	taskID := chi.URLParam(r, "taskID")

	if err := t.svc.ToggleStatus(r.Context(), courseID, taskID, internal.ParseStatus(req.CurrentStatus)); err != nil {
		renderErrorResponse(r.Context(), w, "toggle failed", err)
		return
	}

	renderResponse(w, struct{}{}, http.StatusOK)
}

func (t *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	taskID := chi.URLParam(r, "taskID")

	if err := t.svc.Delete(r.Context(), courseID, taskID); err != nil {
		renderErrorResponse(r.Context(), w, "delete failed", err)
		return
	}

	renderResponse(w, struct{}{}, http.StatusOK)
}

// ListTasksResponse is the one-shot equivalent of one stream frame.
type ListTasksResponse struct {
	Tasks     []Task      `json:"tasks"`
	Counts    view.Counts `json:"counts"`
	Assignees []string    `json:"assignees"`
}

func (t *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	tasks, err := t.svc.CourseTasks(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		renderErrorResponse(r.Context(), w, "list failed", err)
		return
	}

	res := view.ComputeView(tasks, queryFromRequest(r))

	renderResponse(w, &ListTasksResponse{
		Tasks:     newTasks(res.Visible),
		Counts:    res.Counts,
		Assignees: view.Assignees(tasks),
	}, http.StatusOK)
}

// ListCoursesResponse defines the response returned for the course
// dashboard.
type ListCoursesResponse struct {
	Courses []string `json:"courses"`
}

func (t *TaskHandler) courses(w http.ResponseWriter, r *http.Request) {
	courses, err := t.svc.Courses(r.Context())
	if err != nil {
		renderErrorResponse(r.Context(), w, "courses failed", err)
		return
	}

	renderResponse(w, &ListCoursesResponse{Courses: courses}, http.StatusOK)
}

// SearchTasksResponse defines the response returned back after searching.
type SearchTasksResponse struct {
	Tasks []Task `json:"tasks"`
	Total int64  `json:"total"`
}

func (t *TaskHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	args := internal.SearchParams{
		Size: 10,
	}

	if v := q.Get("title"); v != "" {
		args.Title = &v
	}

	if v := q.Get("assignee"); v != "" {
		args.Assignee = &v
	}

	if v := q.Get("priority"); v != "" {
		p := internal.ParsePriority(v)
		args.Priority = &p
	}

	if v := q.Get("status"); v != "" {
		s := internal.ParseStatus(v)
		args.Status = &s
	}

	if v := q.Get("from"); v != "" {
		args.From, _ = strconv.ParseInt(v, 10, 64)
	}

	if v := q.Get("size"); v != "" {
		args.Size, _ = strconv.ParseInt(v, 10, 64)
	}

	res, err := t.svc.By(r.Context(), args)
	if err != nil {
		renderErrorResponse(r.Context(), w, "search failed", err)
		return
	}

	renderResponse(w, &SearchTasksResponse{
		Tasks: newTasks(res.Tasks),
		Total: res.Total,
	}, http.StatusOK)
}

// ValidateFieldRequest defines one draft field to check in isolation.
type ValidateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ValidateFieldResponse carries the field error, empty when the value is
// acceptable.
type ValidateFieldResponse struct {
	Error string `json:"error,omitempty"`
}

func (t *TaskHandler) validateField(w http.ResponseWriter, r *http.Request) {
	var req ValidateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	res := ValidateFieldResponse{}
	if err := internal.ValidateField(req.Field, req.Value); err != nil {
		res.Error = err.Error()
	}

	renderResponse(w, &res, http.StatusOK)
}

func queryFromRequest(r *http.Request) view.Query {
	q := r.URL.Query()

	res := view.Query{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Assignee: q.Get("assignee"),
		SortBy:   q.Get("sortBy"),
	}

	// "all" and empty both pass everything.
	if res.Status == "all" {
		res.Status = view.FilterAll
	}

	if res.Priority == "all" {
		res.Priority = view.FilterAll
	}

	if res.Assignee == "all" {
		res.Assignee = view.FilterAll
	}

	return res
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	due, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "due date")
	}

	return &due, nil
}
