package lifecycle

import "time"

// Lifecycle carries the soft-delete flag and last-modified time shared by every record.
// Modified is maintained by storage on each write.
type Lifecycle struct {
	Inactive bool      `json:"inactive"`
	Modified time.Time `json:"modified"`
}

// Active reports whether the record is not soft-deleted.
func (l Lifecycle) Active() bool {
	return !l.Inactive
}

// ListFilter narrows list queries over lifecycle-bearing tables.
type ListFilter struct {
	IncludeInactive bool
}
