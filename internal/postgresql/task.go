package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/postgresql/db"
)

// Task represents the repository used for interacting with Task Records.
// This is the single source of truth the feed reads its snapshots from.
type Task struct {
	pool *pgxpool.Pool
}

// NewTask instantiates the Task repository.
func NewTask(pool *pgxpool.Pool) *Task {
	return &Task{
		pool: pool,
	}
}

// Create inserts a new record, the database assigns id and creation time.
func (t *Task) Create(ctx context.Context, params internal.CreateParams) (internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.Create").End()

	task := internal.TaskRecord{
		CourseID:    params.CourseID,
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		Status:      internal.StatusPending,
		DueDate:     params.DueDate,
		AssignedTo:  params.AssignedTo,
	}

	row := t.pool.QueryRow(ctx, `
		INSERT INTO tasks (course_id, title, description, priority, status, due_date, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, created_at`,
		params.CourseID,
		params.Title,
		params.Description,
		string(newPriority(params.Priority)),
		string(db.StatusPending),
		newNullTime(params.DueDate),
		params.AssignedTo,
	)

	var rec db.Task
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return internal.TaskRecord{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "insert task")
	}

	task.ID = rec.ID.String()
	task.CreatedAt = rec.CreatedAt.Time

	return task, nil
}

// Delete removes an existing record, reporting whether a row was actually
// deleted.
func (t *Task) Delete(ctx context.Context, courseID, taskID string) (bool, error) {
	defer newOTELSpan(ctx, "Task.Delete").End()

	tag, err := t.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE course_id = $1 AND id = $2`,
		courseID,
		taskID,
	)
	if err != nil {
		return false, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "delete task")
	}

	return tag.RowsAffected() > 0, nil
}

// Find returns the requested record.
func (t *Task) Find(ctx context.Context, courseID, taskID string) (internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.Find").End()

	row := t.pool.QueryRow(ctx, selectColumns+`
		WHERE course_id = $1 AND id = $2`,
		courseID,
		taskID,
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.TaskRecord{}, internal.WrapErrorf(err, internal.ErrorCodeNotFound, "task not found")
		}

		return internal.TaskRecord{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "select task")
	}

	return task, nil
}

// Update patches an existing record, unset fields keep their stored values.
func (t *Task) Update(ctx context.Context, courseID, taskID string, params internal.UpdateParams) (internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.Update").End()

	var priority, status *string

	if params.Priority != nil {
		s := string(newPriority(*params.Priority))
		priority = &s
	}

	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}

	row := t.pool.QueryRow(ctx, `
		UPDATE tasks SET
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			priority    = COALESCE($5, priority),
			status      = COALESCE($6, status),
			due_date    = COALESCE($7, due_date),
			assigned_to = COALESCE($8, assigned_to)
		WHERE course_id = $1 AND id = $2
		RETURNING id, course_id, title, description, priority, status, due_date, assigned_to, created_at`,
		courseID,
		taskID,
		params.Title,
		params.Description,
		priority,
		status,
		params.DueDate,
		params.AssignedTo,
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.TaskRecord{}, internal.WrapErrorf(err, internal.ErrorCodeNotFound, "task not found")
		}

		return internal.TaskRecord{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "update task")
	}

	return task, nil
}

// CourseTasks returns every record of one course in the canonical feed
// order: due date ascending with undated records last, then creation time.
func (t *Task) CourseTasks(ctx context.Context, courseID string) ([]internal.TaskRecord, error) {
	defer newOTELSpan(ctx, "Task.CourseTasks").End()

	rows, err := t.pool.Query(ctx, selectColumns+`
		WHERE course_id = $1
		ORDER BY due_date ASC NULLS LAST, created_at ASC`,
		courseID,
	)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "select course tasks")
	}
	defer rows.Close()

	var res []internal.TaskRecord

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "scan task")
		}

		res = append(res, task)
	}

	if err := rows.Err(); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "rows")
	}

	return res, nil
}

// Courses enumerates the distinct course keys currently holding records.
func (t *Task) Courses(ctx context.Context) ([]string, error) {
	defer newOTELSpan(ctx, "Task.Courses").End()

	rows, err := t.pool.Query(ctx, `
		SELECT DISTINCT course_id FROM tasks ORDER BY course_id`)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "select courses")
	}
	defer rows.Close()

	var res []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "scan course")
		}

		res = append(res, id)
	}

	if err := rows.Err(); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "rows")
	}

	return res, nil
}

const selectColumns = `
		SELECT id, course_id, title, description, priority, status, due_date, assigned_to, created_at
		FROM tasks`

func scanTask(row pgx.Row) (internal.TaskRecord, error) {
	var rec db.Task

	if err := row.Scan(
		&rec.ID,
		&rec.CourseID,
		&rec.Title,
		&rec.Description,
		&rec.Priority,
		&rec.Status,
		&rec.DueDate,
		&rec.AssignedTo,
		&rec.CreatedAt,
	); err != nil {
		return internal.TaskRecord{}, err
	}

	return internal.TaskRecord{
		ID:          rec.ID.String(),
		CourseID:    rec.CourseID,
		Title:       rec.Title,
		Description: rec.Description,
		Priority:    convertPriority(rec.Priority),
		Status:      convertStatus(rec.Status),
		DueDate:     convertNullTime(rec.DueDate),
		AssignedTo:  rec.AssignedTo.String,
		CreatedAt:   rec.CreatedAt.Time,
	}, nil
}
