package domain

import "time"

// StatusHistory is an append-only audit entry. OldStatus is nil for the
// creation event. Every status or assignment mutation commits exactly one of
// these alongside the complaint row.
type StatusHistory struct {
	ID          int64
	ComplaintID int64
	OldStatus   *ComplaintStatus
	NewStatus   ComplaintStatus
	Notes       string
	ChangedBy   int64
	CreatedAt   time.Time
}
