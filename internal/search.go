package internal

// SearchParams defines the arguments used for searching indexed Task Records
// across courses, nil fields are ignored.
type SearchParams struct {
	Title    *string
	Assignee *string
	Priority *Priority
	Status   *Status
	From     int64
	Size     int64
}

// IsZero determines whether the receiver has no search arguments set.
func (a SearchParams) IsZero() bool {
	return a.Title == nil && a.Assignee == nil && a.Priority == nil && a.Status == nil
}

// SearchResults defines the collection of records found plus the total count
// of matches ignoring pagination.
type SearchResults struct {
	Tasks []TaskRecord
	Total int64
}
