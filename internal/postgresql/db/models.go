package db

import (
	"database/sql"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityUnknown Priority = "unknown"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

type Task struct {
	ID          uuid.UUID
	CourseID    string
	Title       string
	Description string
	Priority    Priority
	Status      Status
	DueDate     sql.NullTime
	AssignedTo  sql.NullString
	CreatedAt   sql.NullTime
}
