package domain

// Action is a closed set of operations that can be requested against a lead.
// Adding a new action means extending this enum, the allowedActions table, and
// the exhaustive switch in the service's ApplyAction.
type Action string

const (
	ActionView                 Action = "view"
	ActionNote                 Action = "note"
	ActionStartVerification    Action = "start_verification"
	ActionAssign               Action = "assign"
	ActionReject               Action = "reject"
	ActionHold                 Action = "hold"
	ActionCancel               Action = "cancel"
	ActionAddEvidence          Action = "add_evidence"
	ActionUpdateSLA            Action = "update_sla"
	ActionComplete             Action = "complete"
	ActionExport               Action = "export"
	ActionReopenToProgress     Action = "reopen_to_progress"
	ActionReopenToVerification Action = "reopen_to_verification"

	// ActionEscalate raises a lead to a higher organizational tier. It is
	// permission-checked like any action but is not part of the status table:
	// escalation never changes status and is valid from any non-terminal state.
	ActionEscalate Action = "escalate"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionNote, ActionStartVerification, ActionAssign,
		ActionReject, ActionHold, ActionCancel, ActionAddEvidence,
		ActionUpdateSLA, ActionComplete, ActionExport,
		ActionReopenToProgress, ActionReopenToVerification, ActionEscalate:
		return true
	}
	return false
}

// allowedActions is the authoritative per-status action table. An action
// outside the set for the lead's current status fails with an invalid
// transition error.
var allowedActions = map[Status][]Action{
	StatusNew: {
		ActionView, ActionNote, ActionStartVerification,
	},
	StatusInVerification: {
		ActionView, ActionNote, ActionAssign, ActionReject, ActionHold, ActionCancel,
	},
	StatusInProgress: {
		ActionView, ActionNote, ActionAddEvidence, ActionUpdateSLA, ActionComplete, ActionHold, ActionCancel,
	},
	StatusResolved: {
		ActionView, ActionNote, ActionExport, ActionReopenToProgress, ActionReopenToVerification,
	},
	StatusRejected: {
		ActionView, ActionExport,
	},
	StatusCancelled: {
		ActionView, ActionExport,
	},
}

// AllowedActions returns the action set that may be offered or executed for a
// lead in the given status. The returned slice is a copy.
func AllowedActions(status Status) []Action {
	actions := allowedActions[status]
	return append([]Action(nil), actions...)
}

// CanApply reports whether action is in the allowed set for status.
func CanApply(status Status, action Action) bool {
	for _, allowed := range allowedActions[status] {
		if allowed == action {
			return true
		}
	}
	return false
}

// TransitionTarget returns the status the lead moves to when action is applied
// from status, and whether the action changes status at all. It assumes the
// action has already passed CanApply.
func TransitionTarget(status Status, action Action) (Status, bool) {
	switch action {
	case ActionStartVerification:
		return StatusInVerification, true
	case ActionReject:
		return StatusRejected, true
	case ActionCancel:
		// Cancel is irreversible within the engine: no reopen-from-cancelled
		// transition exists.
		return StatusCancelled, true
	case ActionComplete:
		return StatusResolved, true
	case ActionReopenToProgress:
		return StatusInProgress, true
	case ActionReopenToVerification:
		return StatusInVerification, true
	default:
		// view, note, assign, hold, add_evidence, update_sla, export, escalate
		return status, false
	}
}
