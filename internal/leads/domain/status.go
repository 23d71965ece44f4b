// Package domain provides core business rules for the leads bounded context:
// the status state machine, the per-status action sets, and the classification
// enums used by triage.
package domain

// Status is the canonical lead lifecycle status. The paused sub-states some
// clients display ("verify_paused", "process_paused") are UI affordances over
// in_verification/in_progress and are not engine states.
type Status string

const (
	StatusNew            Status = "new"
	StatusInVerification Status = "in_verification"
	StatusInProgress     Status = "in_progress"
	StatusResolved       Status = "resolved"
	StatusRejected       Status = "rejected"
	StatusCancelled      Status = "cancelled"
)

// AllStatuses lists every valid status in lifecycle order.
var AllStatuses = []Status{
	StatusNew,
	StatusInVerification,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInVerification, StatusInProgress, StatusResolved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status. Terminal is not
// immutable: resolved leads can be re-opened, rejected and cancelled cannot.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether s counts toward an entity's active lead count.
func (s Status) IsActive() bool {
	switch s {
	case StatusNew, StatusInVerification, StatusInProgress:
		return true
	}
	return false
}

// Label returns the display label for a status.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInVerification:
		return "In Verification"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusRejected:
		return "Rejected"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}
