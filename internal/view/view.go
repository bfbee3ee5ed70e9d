// Package view computes filtered, sorted derived lists and aggregate counts
// from a course snapshot. Everything here is pure, snapshots are never
// mutated.
package view

import (
	"sort"
	"strings"

	"github.com/studytrack/coursetasks/internal"
)

// Filter values accepted by Query. The empty string passes everything.
const (
	FilterAll = ""

	StatusPending = "pending"
	StatusDone    = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Sort keys accepted by Query.
const (
	SortByDueDate   = "dueDate"
	SortByCreatedAt = "createdAt"
	SortByPriority  = "priority"
)

// Query selects and orders the records of a snapshot. Zero value means
// everything visible in due-date order.
type Query struct {
	Status   string
	Priority string
	Assignee string
	SortBy   string
}

// Patch carries partial query changes, nil fields keep the current value.
type Patch struct {
	Status   *string
	Priority *string
	Assignee *string
	SortBy   *string
}

// Apply returns the query with the patch merged in.
func (q Query) Apply(p Patch) Query {
	if p.Status != nil {
		q.Status = *p.Status
	}

	if p.Priority != nil {
		q.Priority = *p.Priority
	}

	if p.Assignee != nil {
		q.Assignee = *p.Assignee
	}

	if p.SortBy != nil {
		q.SortBy = *p.SortBy
	}

	return q
}

// Counts aggregates statuses over the whole snapshot, independent of the
// active filters.
type Counts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Done    int `json:"done"`
}

// View is the displayable projection of one snapshot.
type View struct {
	Visible []internal.TaskRecord
	Counts  Counts
}

// ComputeView filters and sorts tasks according to q. Filters are
// conjunctive, counts always reflect the unfiltered input.
func ComputeView(tasks []internal.TaskRecord, q Query) View {
	res := View{
		Visible: make([]internal.TaskRecord, 0, len(tasks)),
	}

	res.Counts.Total = len(tasks)

	for _, t := range tasks {
		switch t.Status {
		case internal.StatusDone:
			res.Counts.Done++
		case internal.StatusPending:
			res.Counts.Pending++
		}

		if visible(t, q) {
			res.Visible = append(res.Visible, t)
		}
	}

	sortVisible(res.Visible, q.SortBy)

	return res
}

// Assignees enumerates the distinct non-empty assignee values of a snapshot
// preserving first-seen order, case-sensitive for display.
func Assignees(tasks []internal.TaskRecord) []string {
	seen := make(map[string]struct{}, len(tasks))
	res := make([]string, 0, len(tasks))

	for _, t := range tasks {
		key := strings.ToLower(t.AssignedTo)
		if t.AssignedTo == "" {
			continue
		}

		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		res = append(res, t.AssignedTo)
	}

	return res
}

func visible(t internal.TaskRecord, q Query) bool {
	if q.Status != FilterAll && string(t.Status) != q.Status {
		return false
	}

	if q.Priority != FilterAll && t.Priority.String() != q.Priority {
		return false
	}

	// Assignee matching is case-insensitive, display stays case-sensitive.
	if q.Assignee != FilterAll && !strings.EqualFold(t.AssignedTo, q.Assignee) {
		return false
	}

	return true
}

func sortVisible(tasks []internal.TaskRecord, sortBy string) {
	switch sortBy {
	case SortByCreatedAt:
		// Zero creation times sort first by construction.
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		})
	case SortByPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority > tasks[j].Priority
		})
	default:
		sort.SliceStable(tasks, func(i, j int) bool {
			return internal.LessByDueDate(tasks[i], tasks[j])
		})
	}
}
