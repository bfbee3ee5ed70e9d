package internal

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	cases := []struct {
		input string
		want  Priority
	}{
		{"", PriorityMedium},
		{"low", PriorityLow},
		{"medium", PriorityMedium},
		{"high", PriorityHigh},
		{"HIGH", PriorityHigh},
		{"  low ", PriorityLow},
		{"urgent", PriorityUnknown},
	}

	for _, tc := range cases {
		if got := ParsePriority(tc.input); got != tc.want {
			t.Fatalf("ParsePriority(%q)=%v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPriorityString_UnknownDisplaysMedium(t *testing.T) {
	if got := PriorityUnknown.String(); got != "medium" {
		t.Fatalf("PriorityUnknown.String()=%q, want %q", got, "medium")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
	}{
		{"pending", StatusPending},
		{"done", StatusDone},
		{"completed", StatusDone},
		{"DONE", StatusDone},
		{"", StatusPending},
		{"garbage", StatusPending},
	}

	for _, tc := range cases {
		if got := ParseStatus(tc.input); got != tc.want {
			t.Fatalf("ParseStatus(%q)=%v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestStatusToggle(t *testing.T) {
	if got := StatusPending.Toggle(); got != StatusDone {
		t.Fatalf("StatusPending.Toggle()=%v, want %v", got, StatusDone)
	}

	if got := StatusDone.Toggle(); got != StatusPending {
		t.Fatalf("StatusDone.Toggle()=%v, want %v", got, StatusPending)
	}
}

func TestCreateParamsValidate_Title(t *testing.T) {
	base := CreateParams{CourseID: "cs335", Priority: PriorityMedium}

	cases := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"single char", "a", false},
		{"at limit", strings.Repeat("a", MaxTitleLength), false},
		{"over limit", strings.Repeat("a", MaxTitleLength+1), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			p.Title = tc.title

			err := p.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err=%v, wantErr %t", err, tc.wantErr)
			}

			if err != nil {
				var ierr *Error
				if !errors.As(err, &ierr) || ierr.Code() != ErrorCodeInvalidArgument {
					t.Fatalf("Validate() err=%v, want code %v", err, ErrorCodeInvalidArgument)
				}
			}
		})
	}
}

func TestCreateParamsValidate_Description(t *testing.T) {
	p := CreateParams{
		CourseID:    "cs335",
		Title:       "read notes",
		Description: strings.Repeat("d", MaxDescLength+1),
	}

	if err := p.Validate(); err == nil {
		t.Fatalf("Validate() err=nil, want length violation")
	}

	p.Description = strings.Repeat("d", MaxDescLength)

	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() err=%v, want nil", err)
	}
}

func TestCreateParamsValidate_DueDate(t *testing.T) {
	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	cases := []struct {
		name    string
		due     *time.Time
		wantErr bool
	}{
		{"unset", nil, false},
		{"today", &today, false},
		{"tomorrow", &tomorrow, false},
		{"yesterday", &yesterday, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := CreateParams{CourseID: "cs335", Title: "read notes", DueDate: tc.due}

			err := p.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err=%v, wantErr %t", err, tc.wantErr)
			}
		})
	}
}

func TestUpdateParamsValidate_NilFieldsPass(t *testing.T) {
	if err := (UpdateParams{}).Validate(); err != nil {
		t.Fatalf("Validate() err=%v, want nil", err)
	}
}

func TestUpdateParamsValidate_StatusOnlyPatch(t *testing.T) {
	done := StatusDone

	// The toggle path sends exactly this patch.
	if err := (UpdateParams{Status: &done}).Validate(); err != nil {
		t.Fatalf("Validate() err=%v, want nil for a status-only patch", err)
	}
}

func TestUpdateParamsValidate_BlankTitle(t *testing.T) {
	title := "   "

	err := (UpdateParams{Title: &title}).Validate()

	var ierr *Error
	if !errors.As(err, &ierr) || ierr.Code() != ErrorCodeInvalidArgument {
		t.Fatalf("Validate() err=%v, want invalid argument for a blank title patch", err)
	}
}

func TestUpdateParamsValidate_PastDueDate(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)

	err := (UpdateParams{DueDate: &yesterday}).Validate()

	var ierr *Error
	if !errors.As(err, &ierr) || ierr.Code() != ErrorCodeInvalidArgument {
		t.Fatalf("Validate() err=%v, want invalid argument for a past due date patch", err)
	}
}

func TestUpdateParamsValidate_UnknownPriority(t *testing.T) {
	p := PriorityUnknown

	if err := (UpdateParams{Priority: &p}).Validate(); err == nil {
		t.Fatalf("Validate() err=nil, want unknown priority rejection")
	}
}

func TestValidateField(t *testing.T) {
	cases := []struct {
		field   string
		value   string
		wantErr bool
	}{
		{"title", "read notes", false},
		{"title", "   ", true},
		{"title", strings.Repeat("a", MaxTitleLength+1), true},
		{"description", "", false},
		{"description", strings.Repeat("d", MaxDescLength+1), true},
		{"dueDate", "", false},
		{"dueDate", "2199-01-01", false},
		{"dueDate", "2001-01-01", true},
		{"dueDate", "not-a-date", true},
		{"owner", "x", true},
	}

	for _, tc := range cases {
		err := ValidateField(tc.field, tc.value)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ValidateField(%q, %q) err=%v, wantErr %t", tc.field, tc.value, err, tc.wantErr)
		}
	}
}

func TestOrderSnapshot(t *testing.T) {
	day := func(d int) *time.Time {
		v := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	created := func(h int) time.Time {
		return time.Date(2026, 8, 1, h, 0, 0, 0, time.UTC)
	}

	tasks := []TaskRecord{
		{ID: "undated-late", CreatedAt: created(5)},
		{ID: "due-10", DueDate: day(10), CreatedAt: created(3)},
		{ID: "undated-early", CreatedAt: created(1)},
		{ID: "due-2", DueDate: day(2), CreatedAt: created(4)},
		{ID: "due-10-earlier", DueDate: day(10), CreatedAt: created(2)},
	}

	OrderSnapshot(tasks)

	want := []string{"due-2", "due-10-earlier", "due-10", "undated-early", "undated-late"}

	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("tasks[%d].ID=%q, want %q", i, tasks[i].ID, id)
		}
	}
}

func TestOrderSnapshot_Stable(t *testing.T) {
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tasks := []TaskRecord{
		{ID: "first", DueDate: &due, CreatedAt: at},
		{ID: "second", DueDate: &due, CreatedAt: at},
	}

	OrderSnapshot(tasks)

	if tasks[0].ID != "first" || tasks[1].ID != "second" {
		t.Fatalf("equal records reordered: got %q, %q", tasks[0].ID, tasks[1].ID)
	}
}
