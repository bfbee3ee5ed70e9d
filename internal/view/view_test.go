package view

import (
	"testing"
	"time"

	"github.com/studytrack/coursetasks/internal"
)

func day(d int) *time.Time {
	v := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func created(h int) time.Time {
	return time.Date(2026, 8, 1, h, 0, 0, 0, time.UTC)
}

func snapshot() []internal.TaskRecord {
	return []internal.TaskRecord{
		{ID: "a", Title: "essay", Priority: internal.PriorityLow, Status: internal.StatusPending, AssignedTo: "Alex", DueDate: day(5), CreatedAt: created(1)},
		{ID: "b", Title: "lab", Priority: internal.PriorityHigh, Status: internal.StatusDone, AssignedTo: "jordan", DueDate: day(2), CreatedAt: created(2)},
		{ID: "c", Title: "quiz prep", Priority: internal.PriorityMedium, Status: internal.StatusPending, AssignedTo: "ALEX", CreatedAt: created(3)},
		{ID: "d", Title: "reading", Priority: internal.PriorityHigh, Status: internal.StatusPending, AssignedTo: "", DueDate: day(9), CreatedAt: created(4)},
	}
}

func ids(tasks []internal.TaskRecord) []string {
	res := make([]string, len(tasks))
	for i, t := range tasks {
		res[i] = t.ID
	}

	return res
}

func equalIDs(got []internal.TaskRecord, want ...string) bool {
	if len(got) != len(want) {
		return false
	}

	for i, id := range want {
		if got[i].ID != id {
			return false
		}
	}

	return true
}

func TestComputeView_ZeroQuery(t *testing.T) {
	res := ComputeView(snapshot(), Query{})

	if !equalIDs(res.Visible, "b", "a", "d", "c") {
		t.Fatalf("Visible=%v, want [b a d c]", ids(res.Visible))
	}

	if res.Counts != (Counts{Total: 4, Pending: 3, Done: 1}) {
		t.Fatalf("Counts=%+v, want {4 3 1}", res.Counts)
	}
}

func TestComputeView_CountsIgnoreFilters(t *testing.T) {
	res := ComputeView(snapshot(), Query{Status: StatusDone})

	if !equalIDs(res.Visible, "b") {
		t.Fatalf("Visible=%v, want [b]", ids(res.Visible))
	}

	// Counts cover the whole snapshot, not the filtered list.
	if res.Counts != (Counts{Total: 4, Pending: 3, Done: 1}) {
		t.Fatalf("Counts=%+v, want {4 3 1}", res.Counts)
	}
}

func TestComputeView_ConjunctiveFilters(t *testing.T) {
	res := ComputeView(snapshot(), Query{Status: StatusPending, Priority: PriorityHigh})

	if !equalIDs(res.Visible, "d") {
		t.Fatalf("Visible=%v, want [d]", ids(res.Visible))
	}
}

func TestComputeView_AssigneeCaseInsensitive(t *testing.T) {
	res := ComputeView(snapshot(), Query{Assignee: "alex"})

	if !equalIDs(res.Visible, "a", "c") {
		t.Fatalf("Visible=%v, want [a c]", ids(res.Visible))
	}
}

func TestComputeView_SortByPriority(t *testing.T) {
	tasks := []internal.TaskRecord{
		{ID: "low", Priority: internal.PriorityLow, Status: internal.StatusPending},
		{ID: "high-1", Priority: internal.PriorityHigh, Status: internal.StatusPending},
		{ID: "medium", Priority: internal.PriorityMedium, Status: internal.StatusPending},
		{ID: "high-2", Priority: internal.PriorityHigh, Status: internal.StatusPending},
	}

	res := ComputeView(tasks, Query{SortBy: SortByPriority})

	// Equal priorities keep their snapshot order.
	if !equalIDs(res.Visible, "high-1", "high-2", "medium", "low") {
		t.Fatalf("Visible=%v, want [high-1 high-2 medium low]", ids(res.Visible))
	}
}

func TestComputeView_SortByPriority_UnknownLast(t *testing.T) {
	tasks := []internal.TaskRecord{
		{ID: "unknown", Priority: internal.PriorityUnknown, Status: internal.StatusPending},
		{ID: "low", Priority: internal.PriorityLow, Status: internal.StatusPending},
	}

	res := ComputeView(tasks, Query{SortBy: SortByPriority})

	if !equalIDs(res.Visible, "low", "unknown") {
		t.Fatalf("Visible=%v, want [low unknown]", ids(res.Visible))
	}
}

func TestComputeView_SortByCreatedAt(t *testing.T) {
	res := ComputeView(snapshot(), Query{SortBy: SortByCreatedAt})

	if !equalIDs(res.Visible, "a", "b", "c", "d") {
		t.Fatalf("Visible=%v, want [a b c d]", ids(res.Visible))
	}
}

func TestComputeView_InputUntouched(t *testing.T) {
	tasks := snapshot()

	ComputeView(tasks, Query{SortBy: SortByPriority, Status: StatusDone})

	if !equalIDs(tasks, "a", "b", "c", "d") {
		t.Fatalf("input reordered: %v", ids(tasks))
	}
}

func TestComputeView_Idempotent(t *testing.T) {
	q := Query{Status: StatusPending, SortBy: SortByPriority}

	first := ComputeView(snapshot(), q)
	second := ComputeView(first.Visible, q)

	if !equalIDs(second.Visible, ids(first.Visible)...) {
		t.Fatalf("recomputing changed order: %v vs %v", ids(first.Visible), ids(second.Visible))
	}
}

func TestQueryApply(t *testing.T) {
	status := StatusDone
	q := Query{Priority: PriorityHigh}.Apply(Patch{Status: &status})

	if q.Status != StatusDone || q.Priority != PriorityHigh {
		t.Fatalf("Apply()=%+v, want status done with priority kept", q)
	}
}

func TestAssignees(t *testing.T) {
	got := Assignees(snapshot())

	// First-seen spelling wins, duplicates collapse case-insensitively,
	// unassigned records are skipped.
	want := []string{"Alex", "jordan"}

	if len(got) != len(want) {
		t.Fatalf("Assignees()=%v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Assignees()=%v, want %v", got, want)
		}
	}
}
