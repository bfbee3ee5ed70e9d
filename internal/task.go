package internal

import (
	"errors"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Field length limits applied when validating drafts.
const (
	MaxTitleLength = 100
	MaxDescLength  = 500
)

// Priority indicates how important a Task Record is, it also defines its sort
// rank: High > Medium > Low > Unknown.
type Priority int8

const (
	// PriorityUnknown is the zero value, kept for records carrying an
	// unrecognized priority. It ranks below every concrete priority.
	PriorityUnknown Priority = iota

	// PriorityLow indicates a non urgent record.
	PriorityLow

	// PriorityMedium indicates a task record with normal priority, the
	// default when a draft does not set one.
	PriorityMedium

	// PriorityHigh indicates an urgent record.
	PriorityHigh
)

// ParsePriority interprets the remote representation of a priority. A missing
// value defaults to Medium, an unrecognized one maps to Unknown.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	}

	return PriorityUnknown
}

// Validate indicates the Priority is one of the three concrete values.
func (p Priority) Validate() error {
	if p < PriorityLow || p > PriorityHigh {
		return NewErrorf(ErrorCodeInvalidArgument, "unknown priority")
	}

	return nil
}

// String returns the remote representation. Unknown priorities display as
// medium while keeping their distinct sort rank.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	}

	return "medium"
}

// Status indicates whether a Task Record is still actionable.
type Status string

const (
	// StatusPending indicates a record that still needs work, the status
	// every record is created with.
	StatusPending Status = "pending"

	// StatusDone indicates a finished record.
	StatusDone Status = "done"
)

// ParseStatus interprets the remote representation of a status, normalizing
// the legacy "completed" spelling.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "done", "completed":
		return StatusDone
	}

	return StatusPending
}

// Toggle returns the inverse status.
func (s Status) Toggle() Status {
	if s == StatusDone {
		return StatusPending
	}

	return StatusDone
}

// Validate indicates the Status is a supported value.
func (s Status) Validate() error {
	if s != StatusPending && s != StatusDone {
		return NewErrorf(ErrorCodeInvalidArgument, "unknown status")
	}

	return nil
}

// TaskRecord is an activity tracked for one course. ID and CreatedAt are
// assigned by the remote store on creation and immutable thereafter.
type TaskRecord struct {
	ID          string
	CourseID    string
	Title       string
	Description string
	Priority    Priority
	Status      Status
	DueDate     *time.Time
	AssignedTo  string
	CreatedAt   time.Time
}

// CreateParams carries the validated draft values used for creating a record.
type CreateParams struct {
	CourseID    string
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	AssignedTo  string
}

// Validate checks the draft against the field rules, the returned error
// wraps the per-field violations.
func (p CreateParams) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.CourseID, validation.Required),
		validation.Field(&p.Title, titleRules()...),
		validation.Field(&p.Description, descriptionRules()...),
		validation.Field(&p.DueDate, validation.By(dueDateNotBeforeToday)),
	); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation")
	}

	return nil
}

// UpdateParams carries a partial patch, nil fields are left untouched at the
// remote store.
type UpdateParams struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time
	AssignedTo  *string
}

// Validate checks every set field against the same rules used for creation,
// nil fields are skipped.
func (p UpdateParams) Validate() error {
	if p.Title != nil {
		if err := validation.Validate(*p.Title, titleRules()...); err != nil {
			return WrapErrorf(err, ErrorCodeInvalidArgument, "title")
		}
	}

	if p.Description != nil {
		if err := validation.Validate(*p.Description, descriptionRules()...); err != nil {
			return WrapErrorf(err, ErrorCodeInvalidArgument, "description")
		}
	}

	if p.DueDate != nil {
		if err := dueDateNotBeforeToday(*p.DueDate); err != nil {
			return WrapErrorf(err, ErrorCodeInvalidArgument, "dueDate")
		}
	}

	if p.Priority != nil {
		if err := p.Priority.Validate(); err != nil {
			return WrapErrorf(err, ErrorCodeInvalidArgument, "priority")
		}
	}

	if p.Status != nil {
		if err := p.Status.Validate(); err != nil {
			return WrapErrorf(err, ErrorCodeInvalidArgument, "status")
		}
	}

	return nil
}

// ValidateField checks one draft field in isolation, used for validating
// change-by-change before a full submit. Supported names are "title",
// "description" and "dueDate" (layout 2006-01-02).
func ValidateField(name, value string) error {
	var err error

	switch name {
	case "title":
		err = validation.Validate(value, titleRules()...)
	case "description":
		err = validation.Validate(value, descriptionRules()...)
	case "dueDate":
		if value == "" {
			return nil
		}

		t, perr := time.Parse("2006-01-02", value)
		if perr != nil {
			return WrapErrorf(perr, ErrorCodeInvalidArgument, "dueDate")
		}

		err = dueDateNotBeforeToday(t)
	default:
		return NewErrorf(ErrorCodeInvalidArgument, "unknown field %q", name)
	}

	if err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "%s", name)
	}

	return nil
}

func titleRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("cannot be blank"),
		validation.By(notBlank),
		validation.Length(1, MaxTitleLength),
	}
}

func descriptionRules() []validation.Rule {
	return []validation.Rule{
		validation.Length(0, MaxDescLength),
	}
}

// notBlank receives whatever validation.By hands it, pointers included, so
// it normalizes through validation.Indirect first.
func notBlank(value interface{}) error {
	v, _ := validation.Indirect(value)

	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}

	return nil
}

// dueDateNotBeforeToday rejects dates strictly before the current calendar
// day, compared at day granularity. Skipped for unset dates.
func dueDateNotBeforeToday(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}

	t, ok := v.(time.Time)
	if !ok {
		return nil
	}

	y, m, d := t.Date()
	ty, tm, td := time.Now().Date()

	due := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	today := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	if due.Before(today) {
		return errors.New("must not be before today")
	}

	return nil
}

// LessByDueDate orders dated records ascending, undated records last.
func LessByDueDate(a, b TaskRecord) bool {
	switch {
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	}

	return a.DueDate.Before(*b.DueDate)
}

// OrderSnapshot sorts records into the canonical feed order: due date
// ascending with undated records last, creation time ascending as tie-break.
// The sort is stable so equal records keep their incoming order.
func OrderSnapshot(tasks []TaskRecord) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if LessByDueDate(tasks[i], tasks[j]) {
			return true
		}

		if LessByDueDate(tasks[j], tasks[i]) {
			return false
		}

		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
